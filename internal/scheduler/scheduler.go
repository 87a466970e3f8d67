// Package scheduler fires the daily broadcast run per restaurant, at the
// restaurant's configured local wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"shiftbot/internal/config"
	logx "shiftbot/pkg/logx"
)

// Service owns one cron runner per distinct timezone so every restaurant's
// send_at is interpreted on its own local clock.
type Service struct {
	log logx.Logger
	run func(ctx context.Context, r config.Restaurant)

	mu      sync.Mutex
	ctx     context.Context
	started bool
	crons   []*cron.Cron
}

// New creates the trigger service. run is invoked once per restaurant per
// firing; it must handle its own errors.
func New(log logx.Logger, run func(ctx context.Context, r config.Restaurant)) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, run: run}
}

// Start arms the service. Triggers registered by Apply only fire after Start.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx = ctx
	for _, c := range s.crons {
		c.Start()
	}
}

// Stop halts all triggers. In-flight runs finish on their own.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.started = false
}

func (s *Service) stopLocked() {
	for _, c := range s.crons {
		c.Stop()
	}
	s.crons = nil
}

// Apply replaces the registered triggers with one per restaurant that has a
// send_at. Safe to call on config reload; the old schedule is dropped whole.
func (s *Service) Apply(restaurants []config.Restaurant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	byZone := make(map[string]*cron.Cron)
	count := 0
	for _, r := range restaurants {
		if r.SendAt == "" {
			continue
		}
		hour, minute, err := config.ParseHHMM(r.SendAt)
		if err != nil {
			s.log.Warn("skipping restaurant with bad send_at",
				logx.Int64("restaurant", r.ChatID), logx.Err(err))
			continue
		}

		loc := time.Local
		if r.Timezone != "" {
			if l, err := time.LoadLocation(r.Timezone); err == nil {
				loc = l
			}
		}

		c, ok := byZone[loc.String()]
		if !ok {
			c = cron.New(cron.WithLocation(loc))
			byZone[loc.String()] = c
			s.crons = append(s.crons, c)
		}

		r := r
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		if _, err := c.AddFunc(spec, func() {
			s.mu.Lock()
			ctx := s.ctx
			s.mu.Unlock()
			if ctx == nil || ctx.Err() != nil {
				return
			}
			s.log.Info("daily trigger fired",
				logx.Int64("restaurant", r.ChatID), logx.String("at", r.SendAt))
			s.run(ctx, r)
		}); err != nil {
			s.log.Warn("unable to register trigger",
				logx.Int64("restaurant", r.ChatID), logx.Err(err))
			continue
		}
		count++
	}

	if s.started {
		for _, c := range s.crons {
			c.Start()
		}
	}
	s.log.Info("triggers applied", logx.Int("count", count), logx.Int("zones", len(byZone)))
}
