package distribution

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"shiftbot/internal/config"
	"shiftbot/internal/culture"
	"shiftbot/internal/sheets"
	logx "shiftbot/pkg/logx"
)

type fakeFetcher struct {
	mu     sync.Mutex
	grids  map[string]sheets.Grid // keyed by spreadsheet id
	failID string
	ranges []string
}

func (f *fakeFetcher) FetchRange(_ context.Context, spreadsheetID, rangeExpr string) (sheets.Grid, error) {
	f.mu.Lock()
	f.ranges = append(f.ranges, rangeExpr)
	f.mu.Unlock()
	if spreadsheetID == f.failID {
		return nil, errors.New("backend exploded")
	}
	return f.grids[spreadsheetID], nil
}

type sentMsg struct {
	ChatID int64
	Text   string
	HTML   bool
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMsg
	failFor map[int64]error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string, html bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[chatID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMsg{ChatID: chatID, Text: text, HTML: html})
	return nil
}

func (f *fakeSender) to(chatID int64) []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMsg
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type fakeAssoc struct {
	mu    sync.Mutex
	pairs map[[2]int64]int
	err   error
}

func (f *fakeAssoc) UpsertAssociation(_ context.Context, restaurantID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.pairs == nil {
		f.pairs = make(map[[2]int64]int)
	}
	f.pairs[[2]int64{restaurantID, userID}]++
	return nil
}

var forDate = time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC) // targetDay 3

func testRestaurant() config.Restaurant {
	return config.Restaurant{
		Name:          "Main",
		ChatID:        -100500,
		SpreadsheetID: "sheet-main",
		PlaceInfo:     "Main St",
		Language:      "en",
	}
}

// scenarioGrid is the end-to-end fixture: a normal row, a phone-only row and
// a duplicate of the first row's user id.
func scenarioGrid() sheets.Grid {
	return sheets.Grid{
		row("Alice", "111", "", "9-17"),
		row("Bob", "x", "+79990001122", "10-18"),
		row("Alice again", "111", "", "11-19"),
	}
}

func newTestService(t *testing.T, fetch RangeFetcher, send Sender, assoc Associations) *Service {
	t.Helper()
	cultures, err := culture.New("en", nil)
	if err != nil {
		t.Fatalf("culture.New: %v", err)
	}
	return NewService(fetch, send, assoc, cultures, logx.Nop())
}

func TestExecuteEndToEnd(t *testing.T) {
	t.Parallel()
	r := testRestaurant()
	fetch := &fakeFetcher{grids: map[string]sheets.Grid{r.SpreadsheetID: scenarioGrid()}}
	send := &fakeSender{}
	assoc := &fakeAssoc{}
	svc := newTestService(t, fetch, send, assoc)

	run := Run{Kind: RunBroadcast, Date: forDate}
	if err := svc.Execute(context.Background(), r, run); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if want := "March 03/2026!$A$1:$YY"; len(fetch.ranges) != 1 || fetch.ranges[0] != want {
		t.Fatalf("fetched ranges = %v, want [%s]", fetch.ranges, want)
	}

	// Exactly one personal message, to Alice only.
	personal := send.to(111)
	if len(personal) != 1 {
		t.Fatalf("personal sends to 111 = %d, want 1", len(personal))
	}
	if !personal[0].HTML {
		t.Fatal("personal message must be sent as HTML")
	}
	if !strings.Contains(personal[0].Text, "9-17 Main St") {
		t.Fatalf("personal body misses shift text: %q", personal[0].Text)
	}

	// Group message lists both accepted entries, not the duplicate.
	group := send.to(r.ChatID)
	if len(group) != 1 {
		t.Fatalf("group sends = %d, want 1", len(group))
	}
	if !strings.Contains(group[0].Text, "Alice") || !strings.Contains(group[0].Text, "Bob") {
		t.Fatalf("group body incomplete: %q", group[0].Text)
	}
	if strings.Contains(group[0].Text, "11-19") {
		t.Fatalf("group body contains the dropped duplicate row: %q", group[0].Text)
	}

	// One association, for the messaged user only.
	if n := assoc.pairs[[2]int64{r.ChatID, 111}]; n != 1 {
		t.Fatalf("association upserts for 111 = %d, want 1", n)
	}
	if len(assoc.pairs) != 1 {
		t.Fatalf("unexpected associations: %v", assoc.pairs)
	}
}

func TestExecuteEmptyRosterTargeted(t *testing.T) {
	t.Parallel()
	r := testRestaurant()
	fetch := &fakeFetcher{grids: map[string]sheets.Grid{}} // nothing published
	send := &fakeSender{}
	assoc := &fakeAssoc{}
	svc := newTestService(t, fetch, send, assoc)

	if err := svc.Execute(context.Background(), r, Targeted(42, forDate)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	notices := send.to(42)
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want exactly 1", len(notices))
	}
	if !strings.Contains(notices[0].Text, "not available") {
		t.Fatalf("unexpected notice body: %q", notices[0].Text)
	}
	if len(send.sent) != 1 {
		t.Fatalf("sends = %v, want only the notice", send.sent)
	}
	if len(assoc.pairs) != 0 {
		t.Fatalf("no persistence expected, got %v", assoc.pairs)
	}
}

func TestExecuteEmptyRosterBroadcastIsSilent(t *testing.T) {
	t.Parallel()
	r := testRestaurant()
	fetch := &fakeFetcher{grids: map[string]sheets.Grid{}}
	send := &fakeSender{}
	svc := newTestService(t, fetch, send, &fakeAssoc{})

	if err := svc.Execute(context.Background(), r, Run{Kind: RunBroadcast, Date: forDate}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(send.sent) != 0 {
		t.Fatalf("expected silence, got %v", send.sent)
	}
}

func TestExecuteDeliveryFailureIsolation(t *testing.T) {
	t.Parallel()
	r := testRestaurant()
	grid := sheets.Grid{
		row("Alice", "111", "", "9-17"),
		row("Carol", "222", "", "12-20"),
	}
	fetch := &fakeFetcher{grids: map[string]sheets.Grid{r.SpreadsheetID: grid}}
	send := &fakeSender{failFor: map[int64]error{111: errors.New("blocked the bot")}}
	assoc := &fakeAssoc{}
	svc := newTestService(t, fetch, send, assoc)

	if err := svc.Execute(context.Background(), r, Run{Kind: RunBroadcast, Date: forDate}); err != nil {
		t.Fatalf("a delivery failure must not fail the run: %v", err)
	}

	if len(send.to(222)) != 1 {
		t.Fatal("Carol's delivery blocked by Alice's failure")
	}
	if len(send.to(r.ChatID)) != 1 {
		t.Fatal("group delivery blocked by a personal failure")
	}
	// Associations persist regardless of delivery outcome.
	for _, user := range []int64{111, 222} {
		if assoc.pairs[[2]int64{r.ChatID, user}] != 1 {
			t.Fatalf("association missing for %d: %v", user, assoc.pairs)
		}
	}
}

func TestExecutePersistenceFailureIsolated(t *testing.T) {
	t.Parallel()
	r := testRestaurant()
	fetch := &fakeFetcher{grids: map[string]sheets.Grid{r.SpreadsheetID: scenarioGrid()}}
	send := &fakeSender{}
	svc := newTestService(t, fetch, send, &fakeAssoc{err: errors.New("disk full")})

	if err := svc.Execute(context.Background(), r, Run{Kind: RunBroadcast, Date: forDate}); err != nil {
		t.Fatalf("a persistence failure must not fail the run: %v", err)
	}
	if len(send.to(111)) != 1 || len(send.to(r.ChatID)) != 1 {
		t.Fatalf("deliveries blocked by persistence failure: %v", send.sent)
	}
}

func TestExecuteAllFanOut(t *testing.T) {
	t.Parallel()
	a := testRestaurant()
	b := config.Restaurant{ChatID: -200, SpreadsheetID: "sheet-b", Language: "en"}
	c := config.Restaurant{ChatID: -300, SpreadsheetID: "sheet-bad", Language: "en"}

	fetch := &fakeFetcher{
		grids: map[string]sheets.Grid{
			a.SpreadsheetID: scenarioGrid(),
			b.SpreadsheetID: {row("Dave", "333", "", "8-16")},
		},
		failID: c.SpreadsheetID,
	}
	send := &fakeSender{}
	assoc := &fakeAssoc{}
	svc := newTestService(t, fetch, send, assoc)

	err := svc.ExecuteAll(context.Background(), []config.Restaurant{a, b, c}, Run{Kind: RunBroadcast, Date: forDate})
	if err == nil {
		t.Fatal("expected the faulting restaurant's error to surface")
	}
	if !strings.Contains(err.Error(), "backend exploded") {
		t.Fatalf("unexpected error: %v", err)
	}

	// The healthy restaurants still ran to completion.
	if len(send.to(a.ChatID)) != 1 || len(send.to(b.ChatID)) != 1 {
		t.Fatalf("healthy restaurants not dispatched: %v", send.sent)
	}
	if assoc.pairs[[2]int64{b.ChatID, 333}] != 1 {
		t.Fatalf("association missing for healthy restaurant: %v", assoc.pairs)
	}
}

func TestExecuteAllEmptyInput(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, &fakeFetcher{}, &fakeSender{}, &fakeAssoc{})
	if err := svc.ExecuteAll(context.Background(), nil, Broadcast()); err != nil {
		t.Fatalf("empty input must complete with no work: %v", err)
	}
}

func TestExecuteObservesCancellation(t *testing.T) {
	t.Parallel()
	r := testRestaurant()
	fetch := &fakeFetcher{grids: map[string]sheets.Grid{r.SpreadsheetID: scenarioGrid()}}
	send := &fakeSender{}
	svc := newTestService(t, fetch, send, &fakeAssoc{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Execute(ctx, r, Run{Kind: RunBroadcast, Date: forDate})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(send.sent) != 0 {
		t.Fatalf("no dispatch expected after cancellation, got %v", send.sent)
	}
}
