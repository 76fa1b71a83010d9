// Package catalog loads the localized message catalogs embedded in the binary.
//
// Catalog files live at locales/<locale>/<namespace>.yaml. The runbook
// service ships two namespaces: "errors" (domain error templates keyed by
// code) and "runner" (printf-style strings for run reports).
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other catalog is translated from.
const BaseLocale = "en-US"

const catalogGlob = "locales/*/*.yaml"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every loaded locale.
type Bundle struct {
	// messages[locale][namespace][key]
	messages map[string]map[string]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
}

//go:embed locales/*/*.yaml
var embedded embed.FS

var defaultBundle = mustLoadEmbedded()

// Default returns the bundle built from the embedded catalogs. Its messages
// are registered with x/text/message so Printer can format them.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded parses the embedded catalogs.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embedded)
}

// LoadFromFS parses every catalog file under locales/ in fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, catalogGlob)
	if err != nil {
		return nil, fmt.Errorf("glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, errors.New("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{messages: map[string]map[string]map[string]string{}}
	for _, p := range paths {
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
	}
	if _, ok := b.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s has no catalogs", BaseLocale)
	}
	if err := b.buildMatcher(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	namespace := strings.TrimSpace(file.Namespace)
	if want := path.Base(path.Dir(p)); locale != want {
		return fmt.Errorf("locale %q does not match directory %q", locale, want)
	}
	if want := strings.TrimSuffix(path.Base(p), path.Ext(p)); namespace != want {
		return fmt.Errorf("namespace %q does not match file name %q", namespace, want)
	}
	if len(file.Messages) == 0 {
		return errors.New("no messages")
	}

	namespaces, ok := b.messages[locale]
	if !ok {
		namespaces = map[string]map[string]string{}
		b.messages[locale] = namespaces
	}
	// Printer lookups are by key alone, so keys must be unique per locale.
	for key := range file.Messages {
		if strings.TrimSpace(key) == "" {
			return errors.New("blank message key")
		}
		for other, messages := range namespaces {
			if _, dup := messages[key]; dup {
				return fmt.Errorf("key %q already defined in namespace %q", key, other)
			}
		}
	}
	namespaces[namespace] = file.Messages
	return nil
}

func (b *Bundle) buildMatcher() error {
	b.tags = []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale %q: %w", locale, err)
		}
		b.tags = append(b.tags, tag)
	}
	b.matcher = language.NewMatcher(b.tags)
	return nil
}

// Locales lists the loaded locales in sorted order.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.messages))
	for locale := range b.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Resolve picks the closest loaded locale for a locale name or an
// Accept-Language list. Anything unmatched resolves to BaseLocale.
func (b *Bundle) Resolve(requested string) string {
	requested = strings.TrimSpace(requested)
	if b == nil || b.matcher == nil || requested == "" {
		return BaseLocale
	}
	if _, ok := b.messages[requested]; ok {
		return requested
	}
	desired, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(desired) == 0 {
		return BaseLocale
	}
	_, index, confidence := b.matcher.Match(desired...)
	if confidence == language.No {
		return BaseLocale
	}
	return b.tags[index].String()
}

// Namespace returns the messages of one namespace for the resolved locale,
// with keys the locale does not translate filled from BaseLocale.
func (b *Bundle) Namespace(locale, namespace string) (string, map[string]string) {
	resolved := b.Resolve(locale)
	out := map[string]string{}
	for key, msg := range b.messages[BaseLocale][namespace] {
		out[key] = msg
	}
	if resolved != BaseLocale {
		for key, msg := range b.messages[resolved][namespace] {
			out[key] = msg
		}
	}
	return resolved, out
}

// MissingKeys lists the base locale keys that locale does not translate.
func (b *Bundle) MissingKeys(locale string) []string {
	var missing []string
	for namespace, messages := range b.messages[BaseLocale] {
		for key := range messages {
			if _, ok := b.messages[locale][namespace][key]; !ok {
				missing = append(missing, namespace+"/"+key)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// Register makes every message available to x/text/message printers.
// Untranslated keys register the base text so printers never fall back to
// the raw key.
func (b *Bundle) Register() error {
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale %q: %w", locale, err)
		}
		for namespace := range b.messages[BaseLocale] {
			_, messages := b.Namespace(locale, namespace)
			for key, msg := range messages {
				if err := message.SetString(tag, key, msg); err != nil {
					return fmt.Errorf("register %s %s: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// Printer returns a printer for the resolved locale.
func (b *Bundle) Printer(locale string) *message.Printer {
	return message.NewPrinter(language.MustParse(b.Resolve(locale)))
}

func mustLoadEmbedded() *Bundle {
	b, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := b.Register(); err != nil {
		panic(err)
	}
	return b
}
