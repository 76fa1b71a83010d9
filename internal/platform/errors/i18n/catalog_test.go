package i18n

import (
	"fmt"
	"testing"

	apperrors "github.com/louisbranch/runbook/internal/platform/errors"
	"github.com/louisbranch/runbook/internal/platform/i18n/catalog"
)

func TestGetCatalogFallsBackToBaseLocale(t *testing.T) {
	if got := GetCatalog("missing-locale"); got != GetCatalog(catalog.BaseLocale) {
		t.Fatalf("catalog locale = %s, want %s", got.Locale(), catalog.BaseLocale)
	}
	if got := GetCatalog("pt").Locale(); got != "pt-BR" {
		t.Fatalf("locale = %q, want pt-BR", got)
	}
}

func TestEveryCodeHasMessageInEveryLocale(t *testing.T) {
	for _, locale := range catalog.Default().Locales() {
		resolved, messages := catalog.Default().Namespace(locale, "errors")
		cat, err := NewCatalog(resolved, messages)
		if err != nil {
			t.Fatalf("parse %s: %v", locale, err)
		}
		for _, code := range apperrors.Codes() {
			if !cat.Has(code) {
				t.Fatalf("locale %s has no message for %s", locale, code)
			}
		}
	}
}

func TestFormat(t *testing.T) {
	cat, err := NewCatalog("test", map[string]string{
		"code":   "hello {{.Name}}",
		"broken": "{{ if .Name }}",
	})
	if err == nil {
		t.Fatal("expected parse error for broken template")
	}

	tests := []struct {
		code     apperrors.Code
		metadata map[string]string
		want     string
	}{
		{code: "code", metadata: map[string]string{"Name": "ops"}, want: "hello ops"},
		{code: "code", want: "hello "},
		{code: "broken", want: "{{ if .Name }}"},
		{code: "absent", want: "absent"},
	}
	for _, tc := range tests {
		if got := cat.Format(tc.code, tc.metadata); got != tc.want {
			t.Fatalf("Format(%s) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestMessageRendersDomainErrors(t *testing.T) {
	err := apperrors.WithMetadata(apperrors.CodeTaskAssigneeMismatch, "task assigned to different user", map[string]string{
		"TaskID": "task-1",
		"UserID": "user-2",
	})

	tests := []struct {
		locale string
		want   string
	}{
		{locale: "en-US", want: "Task task-1 is assigned to a different user."},
		{locale: "pt-BR", want: "A tarefa task-1 está atribuída a outro usuário."},
	}
	for _, tc := range tests {
		if got := Message(fmt.Errorf("start task: %w", err), tc.locale); got != tc.want {
			t.Fatalf("Message(%s) = %q, want %q", tc.locale, got, tc.want)
		}
	}
}

func TestMessageUnknownError(t *testing.T) {
	if got := Message(fmt.Errorf("boom"), "en-US"); got != "An unexpected error occurred." {
		t.Fatalf("message = %q", got)
	}
	if got := Message(nil, "en-US"); got != "" {
		t.Fatalf("message for nil = %q, want empty", got)
	}
}
