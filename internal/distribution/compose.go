package distribution

import (
	"fmt"
	"strings"
	"unicode"

	"shiftbot/internal/culture"
)

// Compose builds the notification bodies for one roster.
//
// Broadcast runs get a group message listing the whole roster plus one
// personal message per rostered user with an account; targeted runs get a
// single personal message for the requesting user and no group message. An
// empty roster composes nothing.
//
// dateText is the pre-formatted localized duty date; placeInfo is the
// restaurant's free-text location descriptor.
func Compose(roster []DutyEntry, dateText, placeInfo string, b *culture.Bundle, run Run) Messages {
	msgs := Messages{Personal: make(map[int64]string)}
	if len(roster) == 0 {
		return msgs
	}

	for _, e := range roster {
		if e.UserID <= 0 {
			continue
		}
		if run.Kind == RunTargeted && e.UserID != run.UserID {
			continue
		}

		shift := strings.TrimRightFunc(e.Time+" "+placeInfo, unicode.IsSpace)

		var body strings.Builder
		fmt.Fprintf(&body, b.YouWorkAt, e.Name, dateText, shift)
		body.WriteString("\n\n")
		fmt.Fprintf(&body, b.WhoWorksWithYou, dateText)
		body.WriteByte('\n')
		writeRosterLines(&body, roster, b, e.UserID)

		msgs.Personal[e.UserID] = body.String()
	}

	if run.Kind == RunBroadcast {
		var body strings.Builder
		fmt.Fprintf(&body, b.WhoWorksAtDate, dateText, placeInfo)
		body.WriteByte('\n')
		writeRosterLines(&body, roster, b, 0)
		msgs.Group = body.String()
	}

	return msgs
}

// writeRosterLines appends one line per entry in roster order, excluding
// excludeUserID (0 excludes nobody; phone-only entries are always listed).
func writeRosterLines(body *strings.Builder, roster []DutyEntry, b *culture.Bundle, excludeUserID int64) {
	first := true
	for _, e := range roster {
		if excludeUserID != 0 && e.UserID == excludeUserID {
			continue
		}
		if !first {
			body.WriteByte('\n')
		}
		first = false
		if e.UserID > 0 {
			fmt.Fprintf(body, b.TimeForUserWithAccount, e.Name, e.Time, e.UserID)
		} else {
			fmt.Fprintf(body, b.TimeForUserPhoneOnly, e.Name, e.Time)
		}
	}
}
