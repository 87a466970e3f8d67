package store

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and upserts are no-ops.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Association is one durable (restaurant, user) membership fact.
// ID is generated on first insert and never changes afterwards.
type Association struct {
	ID           string
	RestaurantID int64
	UserID       int64
	CreatedAt    time.Time
}
