package distribution

import "time"

// DutyEntry is one accepted schedule row: who works and when.
// UserID 0 means the row identified the person by phone number only and no
// personal message can be delivered.
type DutyEntry struct {
	UserID int64
	Name   string
	Time   string
}

// RunKind selects between the daily broadcast and a single user's request.
type RunKind int

const (
	// RunBroadcast sends the group message plus a personal message to
	// every rostered user.
	RunBroadcast RunKind = iota
	// RunTargeted sends only the requesting user's personal message, or an
	// "unavailable" notice when the roster is empty.
	RunTargeted
)

// Run describes one pipeline invocation.
type Run struct {
	Kind   RunKind
	UserID int64 // targeted runs only

	// Date is the duty date to report on. Zero means restaurant-local
	// tomorrow.
	Date time.Time
}

// Broadcast returns the scheduled full-roster run.
func Broadcast() Run { return Run{Kind: RunBroadcast} }

// Targeted returns a run for one user. A zero date means tomorrow.
func Targeted(userID int64, date time.Time) Run {
	return Run{Kind: RunTargeted, UserID: userID, Date: date}
}

// Messages is the composer output: an optional group broadcast body and the
// personal bodies keyed by user id (always > 0).
type Messages struct {
	Group    string // empty means no group message
	Personal map[int64]string
}
