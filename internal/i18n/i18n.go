package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"log/slog"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// Locales are the bundled translations; the first one is the default
var Locales = []string{"en", "pt-BR"}

var (
	bundle  = newBundle()
	matcher = newMatcher()
)

type localizerKey struct{}

func newBundle() *goi18n.Bundle {
	b := goi18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, locale := range Locales {
		data, err := localesFS.ReadFile("locales/" + locale + ".json")
		if err != nil {
			slog.Warn("Failed to read locale file", "locale", locale, "err", err)
			continue
		}
		if _, err := b.ParseMessageFileBytes(data, locale+".json"); err != nil {
			slog.Warn("Failed to parse locale file", "locale", locale, "err", err)
		}
	}
	return b
}

func newMatcher() language.Matcher {
	tags := make([]language.Tag, len(Locales))
	for i, locale := range Locales {
		tags[i] = language.MustParse(locale)
	}
	return language.NewMatcher(tags)
}

// Match returns the bundled locale closest to the given tags or
// Accept-Language values, or the default locale
func Match(langs ...string) string {
	var tags []language.Tag
	for _, lang := range langs {
		parsed, _, err := language.ParseAcceptLanguage(lang)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return Locales[0]
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Locales[0]
	}
	return Locales[index]
}

// Localizer translates message ids for a list of preferred languages
type Localizer struct {
	l    *goi18n.Localizer
	lang string
}

// New accepts language tags or raw Accept-Language header values
func New(langs ...string) *Localizer {
	return &Localizer{
		l:    goi18n.NewLocalizer(bundle, langs...),
		lang: Match(langs...),
	}
}

// Lang is the bundled locale the preferences resolved to
func (lc *Localizer) Lang() string {
	if lc == nil {
		return Locales[0]
	}
	return lc.lang
}

// T translates id, returning fallback (or the id itself) when there is no translation
func (lc *Localizer) T(id, fallback string) string {
	if lc == nil {
		lc = New(Locales[0])
	}
	if fallback == "" {
		fallback = id
	}
	msg, err := lc.l.Localize(&goi18n.LocalizeConfig{
		MessageID:      id,
		DefaultMessage: &goi18n.Message{ID: id, Other: fallback},
	})
	if msg == "" {
		if err != nil {
			slog.Debug("Missing translation", "id", id, "err", err)
		}
		return fallback
	}
	return msg
}

// WithLocalizer stores lc in ctx
func WithLocalizer(ctx context.Context, lc *Localizer) context.Context {
	return context.WithValue(ctx, localizerKey{}, lc)
}

// FromContext returns the localizer in ctx, or one for the default locale
func FromContext(ctx context.Context) *Localizer {
	if lc, ok := ctx.Value(localizerKey{}).(*Localizer); ok {
		return lc
	}
	return New(Locales[0])
}
