// Package i18n translates the user facing texts the service sends outside
// the API, such as alert emails. Messages live in embedded JSON files keyed
// by dot-separated paths.
package i18n

import (
	"embed"
	"encoding/json"
	"strings"
	"sync"
)

//go:embed messages/*.json
var messagesFS embed.FS

// Supported locales
const (
	LocaleEnglish = "en"
	LocaleGerman  = "de"
	DefaultLocale = LocaleEnglish
)

var (
	messages     map[string]map[string]interface{}
	messagesOnce sync.Once
)

func loadMessages() {
	messagesOnce.Do(func() {
		messages = make(map[string]map[string]interface{})

		for _, locale := range []string{LocaleEnglish, LocaleGerman} {
			data, err := messagesFS.ReadFile("messages/" + locale + ".json")
			if err != nil {
				continue
			}

			var msg map[string]interface{}
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			messages[locale] = msg
		}
	})
}

// Localizer translates keys for one locale
type Localizer struct {
	locale string
}

// NewLocalizer creates a localizer. Unknown locales fall back to English.
func NewLocalizer(locale string) *Localizer {
	loadMessages()
	return &Localizer{locale: ParseLocale(locale)}
}

// T translates key, replacing {name} placeholders from params. Missing
// keys fall back to English, then to the key itself.
func (l *Localizer) T(key string, params ...map[string]string) string {
	msg := lookup(key, l.locale)
	if msg == "" {
		msg = lookup(key, DefaultLocale)
	}
	if msg == "" {
		return key
	}

	if len(params) > 0 {
		for k, v := range params[0] {
			msg = strings.ReplaceAll(msg, "{"+k+"}", v)
		}
	}
	return msg
}

// Locale returns the locale in use
func (l *Localizer) Locale() string {
	return l.locale
}

func lookup(key, locale string) string {
	current, ok := messages[locale]
	if !ok {
		return ""
	}

	parts := strings.Split(key, ".")
	for i, part := range parts {
		if i == len(parts)-1 {
			str, _ := current[part].(string)
			return str
		}
		nested, ok := current[part].(map[string]interface{})
		if !ok {
			return ""
		}
		current = nested
	}
	return ""
}

// ParseLocale maps a configured locale or language tag such as "de-AT" to a
// supported locale
func ParseLocale(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == LocaleGerman || strings.HasPrefix(raw, LocaleGerman+"-") || strings.HasPrefix(raw, LocaleGerman+"_") {
		return LocaleGerman
	}
	return LocaleEnglish
}
