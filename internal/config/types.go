package config

// Config is the whole bot configuration, loaded from one YAML (or JSON) file.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Sheets   SheetsConfig   `json:"sheets"`

	// DefaultLanguage is used for restaurants that don't set one.
	DefaultLanguage string `json:"default_language,omitempty"`

	// Templates overrides or extends the embedded localization bundles,
	// keyed by language code.
	Templates map[string]BundleOverride `json:"templates,omitempty"`

	Restaurants []Restaurant `json:"restaurants"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// SendRatePerSec caps outgoing messages per second. 0 means default.
	SendRatePerSec int `json:"send_rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the association store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./shiftbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// SheetsConfig controls the spreadsheet range client.
type SheetsConfig struct {
	// APIKey authenticates values.get calls. Credential management beyond a
	// static key is owned by the deployment, not this service.
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"` // default: Google Sheets v4 endpoint
	Timeout string `json:"timeout,omitempty"`  // Go duration string
}

// Restaurant is one tenant: its group chat, schedule source, and locale.
// Immutable for the duration of one pipeline run.
type Restaurant struct {
	Name          string `json:"name"`
	ChatID        int64  `json:"chat_id"`
	SpreadsheetID string `json:"spreadsheet_id"`

	// PlaceID is a single-letter location tag; day cells prefixed with a
	// different letter belong to another location and are skipped.
	PlaceID string `json:"place_id,omitempty"`
	// PlaceInfo is a free-text location descriptor appended to shift times.
	PlaceInfo string `json:"place_info,omitempty"`

	Language string `json:"language,omitempty"`
	Timezone string `json:"timezone,omitempty"`

	// SendAt is the restaurant-local "HH:MM" at which the daily broadcast
	// run fires. Empty disables the trigger for this restaurant.
	SendAt string `json:"send_at,omitempty"`
}

// PlaceTag returns the location tag as a rune, or 0 when unset.
func (r Restaurant) PlaceTag() rune {
	for _, c := range r.PlaceID {
		return c
	}
	return 0
}

// BundleOverride carries per-language template overrides from the config
// file. Empty fields keep the embedded default.
type BundleOverride struct {
	MonthNames             []string `json:"month_names,omitempty"`
	WeekdayNames           []string `json:"weekday_names,omitempty"`
	LongDate               string   `json:"long_date,omitempty"`
	YouWorkAt              string   `json:"you_work_at,omitempty"`
	WhoWorksWithYou        string   `json:"who_works_with_you,omitempty"`
	WhoWorksAtDate         string   `json:"who_works_at_date,omitempty"`
	TimeForUserWithAccount string   `json:"time_for_user_with_account,omitempty"`
	TimeForUserPhoneOnly   string   `json:"time_for_user_phone_only,omitempty"`
	TimeBoardNotAvailable  string   `json:"time_board_not_available,omitempty"`
}
