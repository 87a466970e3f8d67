package store

import (
	"context"
	"errors"
	"strings"

	logx "shiftbot/pkg/logx"
)

// Store is the persistence API used by the dispatch pipeline.
type Store interface {
	// UpsertAssociation records that userID belongs to restaurantID.
	// Idempotent: re-upserting an existing pair neither duplicates the
	// record nor changes its generated id.
	UpsertAssociation(ctx context.Context, restaurantID, userID int64) error

	// RestaurantIDsFor lists restaurants the user is associated with,
	// oldest association first.
	RestaurantIDsFor(ctx context.Context, userID int64) ([]int64, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
