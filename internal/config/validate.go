package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Validate checks the config for mistakes that would otherwise surface as
// confusing runtime behavior (bad timezones, malformed send_at, etc).
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("sheets.timeout", c.Sheets.Timeout); err != nil {
		return err
	}

	seen := make(map[int64]string, len(c.Restaurants))
	for i, r := range c.Restaurants {
		at := fmt.Sprintf("restaurants[%d]", i)
		if r.ChatID == 0 {
			return fmt.Errorf("%s: chat_id is required", at)
		}
		if prev, dup := seen[r.ChatID]; dup {
			return fmt.Errorf("%s: chat_id %d already used by %s", at, r.ChatID, prev)
		}
		seen[r.ChatID] = at
		if strings.TrimSpace(r.SpreadsheetID) == "" {
			return fmt.Errorf("%s: spreadsheet_id is required", at)
		}
		if r.PlaceID != "" && utf8.RuneCountInString(r.PlaceID) != 1 {
			return fmt.Errorf("%s: place_id must be a single character, got %q", at, r.PlaceID)
		}
		if r.Timezone != "" {
			if _, err := time.LoadLocation(r.Timezone); err != nil {
				return fmt.Errorf("%s: invalid timezone %q: %w", at, r.Timezone, err)
			}
		}
		if r.SendAt != "" {
			if _, _, err := ParseHHMM(r.SendAt); err != nil {
				return fmt.Errorf("%s: invalid send_at: %w", at, err)
			}
		}
	}
	return nil
}

// ParseHHMM parses a wall-clock "HH:MM" value.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
