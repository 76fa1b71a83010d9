package catalog

import (
	"strings"
	"testing"
	"testing/fstest"
)

func catalogFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func TestEmbeddedCatalogsAreComplete(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	if got := strings.Join(bundle.Locales(), ","); got != "en-US,pt-BR" {
		t.Fatalf("locales = %s, want en-US,pt-BR", got)
	}
	for _, locale := range bundle.Locales() {
		if missing := bundle.MissingKeys(locale); len(missing) > 0 {
			t.Fatalf("locale %s missing %v", locale, missing)
		}
	}
}

func TestLoadFromFSRejectsMalformedCatalogs(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name:  "locale does not match directory",
			files: map[string]string{"locales/en-US/errors.yaml": "locale: pt-BR\nnamespace: errors\nmessages: {a: a}\n"},
		},
		{
			name:  "namespace does not match file",
			files: map[string]string{"locales/en-US/errors.yaml": "locale: en-US\nnamespace: runner\nmessages: {a: a}\n"},
		},
		{
			name:  "empty messages",
			files: map[string]string{"locales/en-US/errors.yaml": "locale: en-US\nnamespace: errors\n"},
		},
		{
			name: "key repeated across namespaces",
			files: map[string]string{
				"locales/en-US/errors.yaml": "locale: en-US\nnamespace: errors\nmessages: {a: a}\n",
				"locales/en-US/runner.yaml": "locale: en-US\nnamespace: runner\nmessages: {a: b}\n",
			},
		},
		{
			name:  "no base locale",
			files: map[string]string{"locales/pt-BR/errors.yaml": "locale: pt-BR\nnamespace: errors\nmessages: {a: a}\n"},
		},
		{
			name:  "no files",
			files: map[string]string{"README": "x"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFromFS(catalogFS(tc.files)); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		requested string
		want      string
	}{
		{requested: "", want: BaseLocale},
		{requested: "pt-BR", want: "pt-BR"},
		{requested: "pt", want: "pt-BR"},
		{requested: "pt-BR,pt;q=0.9,en;q=0.5", want: "pt-BR"},
		{requested: "fr-FR", want: BaseLocale},
		{requested: "not a locale!", want: BaseLocale},
	}
	for _, tc := range tests {
		if got := Default().Resolve(tc.requested); got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.requested, got, tc.want)
		}
	}
}

func TestNamespaceFillsUntranslatedKeysFromBase(t *testing.T) {
	bundle, err := LoadFromFS(catalogFS(map[string]string{
		"locales/en-US/runner.yaml": "locale: en-US\nnamespace: runner\nmessages: {hello: Hello, bye: Bye}\n",
		"locales/pt-BR/runner.yaml": "locale: pt-BR\nnamespace: runner\nmessages: {hello: Olá}\n",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	locale, messages := bundle.Namespace("pt-BR", "runner")
	if locale != "pt-BR" {
		t.Fatalf("locale = %s, want pt-BR", locale)
	}
	if messages["hello"] != "Olá" || messages["bye"] != "Bye" {
		t.Fatalf("messages = %v", messages)
	}
	if missing := bundle.MissingKeys("pt-BR"); len(missing) != 1 || missing[0] != "runner/bye" {
		t.Fatalf("missing = %v, want [runner/bye]", missing)
	}
}

func TestPrinterFormatsRegisteredMessages(t *testing.T) {
	if got := Default().Printer("en-US").Sprintf("runner.summary", 3, 1); got != "3 command(s) executed, 1 rejected." {
		t.Fatalf("en-US summary = %q", got)
	}
	if got := Default().Printer("pt-BR").Sprintf("runner.summary", 3, 1); got != "3 comando(s) executado(s), 1 rejeitado(s)." {
		t.Fatalf("pt-BR summary = %q", got)
	}
}
