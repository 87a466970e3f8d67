// Package culture resolves per-restaurant locale concerns: the restaurant's
// local clock, localized month/weekday names, and the message template
// bundle. Bundles ship embedded (en, ru) and can be overridden per language
// from the config file.
package culture

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"shiftbot/internal/config"
)

//go:embed locales/*.yaml
var localesFS embed.FS

const fallbackLanguage = "en"

// Bundle holds everything locale-specific for one language.
type Bundle struct {
	MonthNames   []string `yaml:"month_names"`
	WeekdayNames []string `yaml:"weekday_names"`

	// LongDate is a pattern with {weekday}, {day}, {month} and {year} slots.
	LongDate string `yaml:"long_date"`

	// Message templates are opaque fmt format strings; slot order is fixed
	// by the dispatch code, templates may reorder via explicit indexes.
	YouWorkAt              string `yaml:"you_work_at"`
	WhoWorksWithYou        string `yaml:"who_works_with_you"`
	WhoWorksAtDate         string `yaml:"who_works_at_date"`
	TimeForUserWithAccount string `yaml:"time_for_user_with_account"`
	TimeForUserPhoneOnly   string `yaml:"time_for_user_phone_only"`
	TimeBoardNotAvailable  string `yaml:"time_board_not_available"`
}

// MonthName returns the localized name for m, falling back to Go's English
// name when the bundle table is incomplete.
func (b *Bundle) MonthName(m time.Month) string {
	if i := int(m) - 1; i >= 0 && i < len(b.MonthNames) && b.MonthNames[i] != "" {
		return b.MonthNames[i]
	}
	return m.String()
}

func (b *Bundle) weekdayName(d time.Weekday) string {
	if i := int(d); i >= 0 && i < len(b.WeekdayNames) && b.WeekdayNames[i] != "" {
		return b.WeekdayNames[i]
	}
	return d.String()
}

// FormatLongDate renders t in the bundle's long date style
// (e.g. "Monday, 2 March 2026").
func (b *Bundle) FormatLongDate(t time.Time) string {
	pattern := b.LongDate
	if pattern == "" {
		pattern = "{weekday}, {day} {month} {year}"
	}
	rep := strings.NewReplacer(
		"{weekday}", b.weekdayName(t.Weekday()),
		"{day}", strconv.Itoa(t.Day()),
		"{month}", b.MonthName(t.Month()),
		"{year}", strconv.Itoa(t.Year()),
	)
	return rep.Replace(pattern)
}

// RangeFor builds the spreadsheet range expression for t's month: the sheet
// tab is named "<LocalizedMonth> <MM/yyyy>" and the fetch spans columns A
// through YY from row 1.
func (b *Bundle) RangeFor(t time.Time) string {
	return fmt.Sprintf("%s %s!$A$1:$YY", b.MonthName(t.Month()), t.Format("01/2006"))
}

// Service maps restaurants to their local time and localization bundle.
type Service struct {
	defaultLang string
	bundles     map[string]*Bundle

	mu        sync.Mutex
	locations map[string]*time.Location
}

// New loads the embedded bundles and applies config overrides on top.
func New(defaultLang string, overrides map[string]config.BundleOverride) (*Service, error) {
	bundles := make(map[string]*Bundle)

	entries, err := localesFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("culture: read embedded locales: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		lang := strings.TrimSuffix(name, ".yaml")
		raw, err := localesFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("culture: read bundle %s: %w", name, err)
		}
		var b Bundle
		if err := yaml.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("culture: parse bundle %s: %w", name, err)
		}
		bundles[lang] = &b
	}

	for lang, ov := range overrides {
		b, ok := bundles[lang]
		if !ok {
			b = &Bundle{}
			bundles[lang] = b
		}
		applyOverride(b, ov)
	}

	if strings.TrimSpace(defaultLang) == "" {
		defaultLang = fallbackLanguage
	}
	if _, ok := bundles[defaultLang]; !ok {
		return nil, fmt.Errorf("culture: no bundle for default language %q", defaultLang)
	}

	return &Service{
		defaultLang: defaultLang,
		bundles:     bundles,
		locations:   make(map[string]*time.Location),
	}, nil
}

func applyOverride(b *Bundle, ov config.BundleOverride) {
	if len(ov.MonthNames) > 0 {
		b.MonthNames = ov.MonthNames
	}
	if len(ov.WeekdayNames) > 0 {
		b.WeekdayNames = ov.WeekdayNames
	}
	if ov.LongDate != "" {
		b.LongDate = ov.LongDate
	}
	if ov.YouWorkAt != "" {
		b.YouWorkAt = ov.YouWorkAt
	}
	if ov.WhoWorksWithYou != "" {
		b.WhoWorksWithYou = ov.WhoWorksWithYou
	}
	if ov.WhoWorksAtDate != "" {
		b.WhoWorksAtDate = ov.WhoWorksAtDate
	}
	if ov.TimeForUserWithAccount != "" {
		b.TimeForUserWithAccount = ov.TimeForUserWithAccount
	}
	if ov.TimeForUserPhoneOnly != "" {
		b.TimeForUserPhoneOnly = ov.TimeForUserPhoneOnly
	}
	if ov.TimeBoardNotAvailable != "" {
		b.TimeBoardNotAvailable = ov.TimeBoardNotAvailable
	}
}

// BundleFor returns the restaurant's bundle, falling back to the default
// language and then to English.
func (s *Service) BundleFor(r config.Restaurant) *Bundle {
	lang := strings.TrimSpace(r.Language)
	if lang == "" {
		lang = s.defaultLang
	}
	if b, ok := s.bundles[lang]; ok {
		return b
	}
	if b, ok := s.bundles[s.defaultLang]; ok {
		return b
	}
	return s.bundles[fallbackLanguage]
}

// LocationFor returns the restaurant's timezone, defaulting to the host's.
// Invalid zones were rejected at config validation.
func (s *Service) LocationFor(r config.Restaurant) *time.Location {
	tz := strings.TrimSpace(r.Timezone)
	if tz == "" {
		return time.Local
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc, ok := s.locations[tz]; ok {
		return loc
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}
	s.locations[tz] = loc
	return loc
}

// NowFor returns the current wall-clock time at the restaurant.
func (s *Service) NowFor(r config.Restaurant) time.Time {
	return time.Now().In(s.LocationFor(r))
}
