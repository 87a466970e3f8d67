// Package telegram adapts telebot to the narrow sending and command surface
// the pipeline needs: rate-limited text delivery plus the /duty command.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	logx "shiftbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	// SendRatePerSec caps outgoing sendMessage calls. Telegram throttles
	// bots around 30 msg/s; stay below by default.
	SendRatePerSec int
}

// DutyRequest is a parsed /duty command.
type DutyRequest struct {
	UserID int64
	Date   time.Time // zero means tomorrow
}

type Adapter struct {
	bot *tele.Bot
	lim *rate.Limiter
	log logx.Logger

	runMu   sync.Mutex
	running bool
	runCtx  context.Context

	onDuty func(ctx context.Context, req DutyRequest)
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	rps := cfg.SendRatePerSec
	if rps <= 0 {
		rps = 20
	}

	a := &Adapter{
		bot: b,
		lim: rate.NewLimiter(rate.Limit(rps), rps),
		log: log,
	}
	a.registerHandlers()
	return a, nil
}

// OnDuty installs the /duty handler. Must be called before Start.
func (a *Adapter) OnDuty(fn func(ctx context.Context, req DutyRequest)) {
	a.onDuty = fn
}

func (a *Adapter) registerHandlers() {
	a.bot.Handle("/duty", func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}

		a.runMu.Lock()
		ctx := a.runCtx
		fn := a.onDuty
		a.runMu.Unlock()
		if ctx == nil || fn == nil {
			return nil
		}

		date, err := parseDutyDate(m.Payload, time.Now())
		if err != nil {
			a.log.Debug("bad /duty payload",
				logx.Int64("user", m.Sender.ID), logx.Err(err))
			return c.Reply("Usage: /duty [dd.mm[.yyyy]]")
		}

		a.log.Info("/duty requested",
			logx.Int64("user", m.Sender.ID), logx.Time("date", date))
		// Handled asynchronously so the poll loop isn't blocked by
		// spreadsheet latency.
		go fn(ctx, DutyRequest{UserID: m.Sender.ID, Date: date})
		return nil
	})
}

// parseDutyDate accepts "dd.mm.yyyy", "dd.mm" (current year) or an empty
// payload (zero time, meaning tomorrow).
func parseDutyDate(payload string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(payload)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("02.01.2006", s, now.Location()); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("02.01", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return t.AddDate(now.Year(), 0, 0), nil
}

// Start begins long-polling. It returns immediately; polling stops when ctx
// is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	a.runCtx = ctx
	a.runMu.Unlock()

	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	go func() {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
	}()
}

const textLimit = 4000

// SendText delivers text to a user or group chat, splitting bodies that
// exceed Telegram's message size at newline boundaries.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string, html bool) error {
	opt := &tele.SendOptions{}
	if html {
		opt.ParseMode = tele.ModeHTML
	}

	chat := &tele.Chat{ID: chatID}
	for _, chunk := range splitText(text, textLimit) {
		if err := a.lim.Wait(ctx); err != nil {
			return err
		}
		if _, err := a.bot.Send(chat, chunk, opt); err != nil {
			return err
		}
	}
	return nil
}

// splitText chunks s to at most limit runes per piece, preferring to cut at
// a newline so roster lines stay intact.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	var out []string
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
