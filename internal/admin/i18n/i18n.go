package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embedded embed.FS

// Translator maps a message key onto a localised string. Implementations never
// fail: when no translation exists the supplied fallback is returned.
type Translator interface {
	T(key, fallback string) string
}

// TranslatorFunc adapts a plain function into a Translator.
type TranslatorFunc func(key, fallback string) string

// T implements Translator.
func (f TranslatorFunc) T(key, fallback string) string {
	if f == nil {
		return fallbackOrKey(key, fallback)
	}
	return f(key, fallback)
}

// Bundle holds the loaded message catalogues.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []string
	matcher   language.Matcher
}

// Default loads the catalogues embedded in the binary.
func Default(fallback string) (*Bundle, error) {
	return Load(embedded, fallback, []string{"en", "ja"})
}

// Load reads `locales/<lang>.json` for each supported language from fsys.
// Only the fallback locale is mandatory.
func Load(fsys fs.FS, fallback string, supported []string) (*Bundle, error) {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = "en"
	}
	if len(supported) == 0 {
		supported = []string{fallback}
	}

	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}

	// The matcher returns index 0 when nothing matches, so the fallback goes first.
	ordered := []string{fallback}
	for _, l := range supported {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || l == fallback {
			continue
		}
		ordered = append(ordered, l)
	}

	tags := make([]language.Tag, 0, len(ordered))
	for _, l := range ordered {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse locale %q: %w", l, err)
		}
		raw, err := fs.ReadFile(fsys, path.Join("locales", l+".json"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("i18n: load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("i18n: unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
		b.supported = append(b.supported, l)
		tags = append(tags, tag)
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Supported lists the loaded languages in sorted order.
func (b *Bundle) Supported() []string {
	out := append([]string(nil), b.supported...)
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string {
	if b == nil {
		return "en"
	}
	return b.fallback
}

// IsSupported reports whether a catalogue exists for lang.
func (b *Bundle) IsSupported(lang string) bool {
	if b == nil {
		return false
	}
	_, ok := b.dict[strings.ToLower(strings.TrimSpace(lang))]
	return ok
}

// T looks key up in lang, then in the fallback locale, then returns fallback
// (or the key itself when fallback is empty).
func (b *Bundle) T(lang, key, fallback string) string {
	if b == nil {
		return fallbackOrKey(key, fallback)
	}
	if m, ok := b.dict[strings.ToLower(lang)]; ok {
		if v, ok := m[key]; ok && v != "" {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok && v != "" {
			return v
		}
	}
	return fallbackOrKey(key, fallback)
}

// For binds the bundle to a single language.
func (b *Bundle) For(lang string) Translator {
	return TranslatorFunc(func(key, fallback string) string {
		return b.T(lang, key, fallback)
	})
}

// Resolve chooses the best supported language for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	if b == nil || len(b.supported) == 0 {
		return b.Fallback()
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		return b.fallback
	}
	_, idx, confidence := b.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(b.supported) {
		return b.fallback
	}
	return b.supported[idx]
}

// Passthrough returns a Translator that always yields the fallback text.
func Passthrough() Translator {
	return TranslatorFunc(nil)
}

func fallbackOrKey(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return key
}
