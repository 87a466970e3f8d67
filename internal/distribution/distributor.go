package distribution

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"shiftbot/internal/config"
	"shiftbot/internal/culture"
	"shiftbot/internal/sheets"
	logx "shiftbot/pkg/logx"
)

// RangeFetcher fetches one rectangular range of cells. An empty grid with a
// nil error means "no schedule published".
type RangeFetcher interface {
	FetchRange(ctx context.Context, spreadsheetID, rangeExpr string) (sheets.Grid, error)
}

// Sender delivers one message body to a user or group chat. Failures are
// per-recipient and recoverable.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, html bool) error
}

// Associations is the persistence port for (restaurant, user) membership.
type Associations interface {
	UpsertAssociation(ctx context.Context, restaurantID, userID int64) error
}

// Service runs the shift-distribution pipeline.
type Service struct {
	fetch    RangeFetcher
	send     Sender
	assoc    Associations // nil disables persistence
	cultures *culture.Service
	log      logx.Logger
}

func NewService(fetch RangeFetcher, send Sender, assoc Associations, cultures *culture.Service, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{fetch: fetch, send: send, assoc: assoc, cultures: cultures, log: log}
}

// ExecuteAll runs the pipeline for every restaurant concurrently and returns
// once all runs finished. A faulting run does not cancel its siblings; their
// errors are joined and reported together.
func (s *Service) ExecuteAll(ctx context.Context, restaurants []config.Restaurant, run Run) error {
	if len(restaurants) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(restaurants))
	for i, r := range restaurants {
		wg.Add(1)
		go func(i int, r config.Restaurant) {
			defer wg.Done()
			errs[i] = s.Execute(ctx, r, run)
		}(i, r)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Execute runs one restaurant's pipeline: fetch, parse, compose, dispatch,
// persist. Only fetch-layer failures propagate; per-recipient delivery and
// persistence failures are logged and absorbed.
func (s *Service) Execute(ctx context.Context, r config.Restaurant, run Run) error {
	forDate := run.Date
	if forDate.IsZero() {
		forDate = s.cultures.NowFor(r).AddDate(0, 0, 1)
	}
	b := s.cultures.BundleFor(r)
	log := s.log.With(logx.Int64("restaurant", r.ChatID))

	rangeExpr := b.RangeFor(forDate)
	log.Debug("running distribution",
		logx.Time("for_date", forDate),
		logx.String("range", rangeExpr))

	grid, err := s.fetch.FetchRange(ctx, r.SpreadsheetID, rangeExpr)
	if err != nil {
		return fmt.Errorf("restaurant %d: fetch schedule: %w", r.ChatID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	roster := ParseRoster(grid, forDate.Day(), r.PlaceTag())
	if len(roster) == 0 {
		// Nobody to notify. A user who asked explicitly still gets told the
		// board isn't there yet; the scheduled broadcast stays silent.
		if run.Kind == RunTargeted {
			if err := s.send.SendText(ctx, run.UserID, b.TimeBoardNotAvailable, false); err != nil {
				log.Error("unable to send unavailable notice",
					logx.Int64("user", run.UserID), logx.Err(err))
			}
		}
		log.Debug("empty roster", logx.Time("for_date", forDate))
		return nil
	}

	dateText := b.FormatLongDate(forDate)
	msgs := Compose(roster, dateText, r.PlaceInfo, b, run)

	// Personal deliveries in roster order. One user's failure must not block
	// the others, and the association is persisted regardless of delivery
	// outcome.
	for _, e := range roster {
		body, ok := msgs.Personal[e.UserID]
		if e.UserID <= 0 || !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.send.SendText(ctx, e.UserID, body, true); err != nil {
			log.Error("unable to send personal message",
				logx.Int64("user", e.UserID), logx.Err(err))
		}
		if s.assoc != nil {
			if err := s.assoc.UpsertAssociation(ctx, r.ChatID, e.UserID); err != nil {
				log.Error("unable to persist association",
					logx.Int64("user", e.UserID), logx.Err(err))
			}
		}
	}

	if run.Kind == RunBroadcast && msgs.Group != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.send.SendText(ctx, r.ChatID, msgs.Group, true); err != nil {
			log.Error("unable to send group message", logx.Err(err))
		}
	}

	log.Info("distribution finished",
		logx.Time("for_date", forDate),
		logx.Int("roster", len(roster)),
		logx.Int("personal", len(msgs.Personal)))
	return nil
}
