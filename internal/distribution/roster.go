package distribution

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"shiftbot/internal/sheets"
)

// Schedule sheet layout: column 0 is the display name, column 1 the Telegram
// user id, column 2 a phone number, and day N of the month lives at column
// N+2. Rows are maintained by hand, so every check below is a tolerance for
// sparse or malformed input: a bad row is skipped, never an error.

// ParseRoster extracts the duty roster for one day of the month.
//
// placeTag is the restaurant's single-letter location tag; a day cell whose
// first letter differs belongs to another location and is skipped. Rows with
// a duplicate user id (> 0) after the first are dropped; phone-only rows
// (user id 0) are never deduplicated.
func ParseRoster(grid sheets.Grid, day int, placeTag rune) []DutyEntry {
	seen := make(map[int64]struct{})
	var roster []DutyEntry

	for _, row := range grid {
		// No cell for the requested day: skip before looking at anything else.
		if len(row) < day+3 {
			continue
		}

		userID, ok := rowIdentity(row)
		if !ok {
			continue
		}
		if userID > 0 {
			if _, dup := seen[userID]; dup {
				continue
			}
		}

		dayText := sheets.CellText(row[day+2])
		if strings.TrimSpace(dayText) == "" {
			continue
		}

		if first, size := utf8.DecodeRuneInString(dayText); unicode.IsLetter(first) {
			// A leading letter is a location tag. Keep the row only for
			// this restaurant's tag, and only when the cell carries more
			// than the bare tag.
			if first != placeTag || len(dayText) == size {
				continue
			}
			dayText = strings.TrimLeftFunc(dayText[size:], unicode.IsSpace)
		}

		if userID > 0 {
			seen[userID] = struct{}{}
		}
		roster = append(roster, DutyEntry{
			UserID: userID,
			Name:   sheets.CellText(row[0]),
			Time:   dayText,
		})
	}
	return roster
}

// rowIdentity resolves who a row is about: a numeric Telegram id in column 1,
// or a phone number (leading '+') in column 2 meaning "no messaging account".
func rowIdentity(row []any) (int64, bool) {
	if id, err := strconv.ParseInt(strings.TrimSpace(sheets.CellText(row[1])), 10, 64); err == nil {
		return id, true
	}
	if strings.HasPrefix(sheets.CellText(row[2]), "+") {
		return 0, true
	}
	return 0, false
}
