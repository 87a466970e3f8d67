package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  poll_timeout: "15s"
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
storage:
  driver: sqlite
  path: ./shiftbot.db
sheets:
  api_key: test-key
default_language: ru
restaurants:
  - name: Main
    chat_id: -100500
    spreadsheet_id: sheet-main
    place_id: "A"
    place_info: "Main St"
    language: ru
    timezone: "UTC"
    send_at: "18:00"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestManagerLoadYAML(t *testing.T) {
	t.Parallel()
	mgr := NewManager(writeConfig(t, sampleYAML))

	cfg, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Restaurants) != 1 {
		t.Fatalf("restaurants = %d, want 1", len(cfg.Restaurants))
	}
	r := cfg.Restaurants[0]
	if r.ChatID != -100500 || r.PlaceTag() != 'A' || r.SendAt != "18:00" {
		t.Fatalf("restaurant parsed wrong: %+v", r)
	}
	if got := mgr.Get(); got != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestManagerRejectsUnknownField(t *testing.T) {
	t.Parallel()
	mgr := NewManager(writeConfig(t, sampleYAML+"\nunknown_key: true\n"))
	if _, err := mgr.Load(); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() Config {
		return Config{
			Telegram: TelegramConfig{Token: "t"},
			Restaurants: []Restaurant{
				{ChatID: -1, SpreadsheetID: "s", PlaceID: "A", SendAt: "09:30", Timezone: "UTC"},
			},
		}
	}

	valid := base()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = " " }},
		{"missing chat id", func(c *Config) { c.Restaurants[0].ChatID = 0 }},
		{"missing spreadsheet", func(c *Config) { c.Restaurants[0].SpreadsheetID = "" }},
		{"multi-char place id", func(c *Config) { c.Restaurants[0].PlaceID = "AB" }},
		{"bad timezone", func(c *Config) { c.Restaurants[0].Timezone = "Mars/Olympus" }},
		{"bad send_at", func(c *Config) { c.Restaurants[0].SendAt = "25:99" }},
		{"duplicate chat id", func(c *Config) {
			c.Restaurants = append(c.Restaurants, c.Restaurants[0])
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	h, m, err := ParseHHMM("23:15")
	if err != nil {
		t.Fatalf("ParseHHMM: %v", err)
	}
	if h != 23 || m != 15 {
		t.Fatalf("unexpected result: %d:%d", h, m)
	}

	for _, bad := range []string{"24:00", "12:60", "noon", "12", ""} {
		if _, _, err := ParseHHMM(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
