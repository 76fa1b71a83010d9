// Package i18n renders user-facing messages for domain error codes.
package i18n

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	apperrors "github.com/louisbranch/runbook/internal/platform/errors"
	"github.com/louisbranch/runbook/internal/platform/i18n/catalog"
)

const namespace = "errors"

// Catalog holds the parsed message templates of one locale.
type Catalog struct {
	locale    string
	templates map[apperrors.Code]*template.Template
	// raw keeps templates that failed to parse; Format returns them verbatim.
	raw map[apperrors.Code]string
}

// cache maps resolved locale to *Catalog.
var cache sync.Map

// GetCatalog returns the catalog for the closest supported locale. Unknown
// locales get the base locale catalog.
func GetCatalog(locale string) *Catalog {
	resolved, messages := catalog.Default().Namespace(locale, namespace)
	if cached, ok := cache.Load(resolved); ok {
		return cached.(*Catalog)
	}
	built, _ := NewCatalog(resolved, messages)
	actual, _ := cache.LoadOrStore(resolved, built)
	return actual.(*Catalog)
}

// NewCatalog parses messages keyed by error code. Templates that fail to parse
// are kept as raw text and reported in the returned error.
func NewCatalog(locale string, messages map[string]string) (*Catalog, error) {
	c := &Catalog{
		locale:    locale,
		templates: make(map[apperrors.Code]*template.Template, len(messages)),
		raw:       map[apperrors.Code]string{},
	}
	var invalid []string
	for key, text := range messages {
		code := apperrors.Code(key)
		tmpl, err := template.New(key).Option("missingkey=zero").Parse(text)
		if err != nil {
			c.raw[code] = text
			invalid = append(invalid, key)
			continue
		}
		c.templates[code] = tmpl
	}
	if len(invalid) > 0 {
		return c, fmt.Errorf("locale %s: invalid templates for %s", locale, strings.Join(invalid, ", "))
	}
	return c, nil
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Has reports whether code has a message in this catalog.
func (c *Catalog) Has(code apperrors.Code) bool {
	_, parsed := c.templates[code]
	_, raw := c.raw[code]
	return parsed || raw
}

// Format renders the message for code with metadata. Codes without a message
// render as the code itself.
func (c *Catalog) Format(code apperrors.Code, metadata map[string]string) string {
	tmpl, ok := c.templates[code]
	if !ok {
		if raw, ok := c.raw[code]; ok {
			return raw
		}
		return string(code)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return string(code)
	}
	return buf.String()
}

// Message renders the localized message for err. Errors outside the domain
// taxonomy render the UNKNOWN message.
func Message(err error, locale string) string {
	if err == nil {
		return ""
	}
	return GetCatalog(locale).Format(apperrors.CodeOf(err), apperrors.MetadataOf(err))
}
