package migrations

import (
	"io/fs"
	"sort"
	"testing"
)

func TestOutboxMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(OutboxFS, "outbox")
	if err != nil {
		t.Fatalf("read outbox migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected outbox migrations to be embedded")
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	if files[0] != "001_outbox.sql" {
		t.Fatalf("expected first outbox migration 001_outbox.sql, got %s", files[0])
	}
}
