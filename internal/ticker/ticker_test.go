package ticker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkadmin/internal/models"
	"github.com/tempizhere/linkadmin/internal/reltime"
	"github.com/tempizhere/linkadmin/internal/render"
	"github.com/tempizhere/linkadmin/internal/ticker"
	"github.com/tempizhere/linkadmin/internal/ticker/tickertest"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	mu      sync.Mutex
	sched   *tickertest.Scheduler
	ticker  *ticker.ExpiryTicker
	updates int
	ticks   int
}

func newFixture() *fixture {
	f := &fixture{sched: tickertest.NewScheduler(start)}
	f.ticker = ticker.New(ticker.Config{
		Locker:    &f.mu,
		Scheduler: f.sched,
		Interval:  time.Second,
		Now:       f.sched.Now,
		Formatter: reltime.New("en"),
		OnUpdate:  func(rows []*render.Row) { f.updates++ },
		OnTick:    func() { f.ticks++ },
	})
	return f
}

func (f *fixture) start(rows []*render.Row) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticker.Start(rows)
}

func renderRows(records ...models.LinkRecord) []*render.Row {
	return render.New(reltime.New("en"), time.UTC).Rows(records, "https://s", true, start)
}

func TestExpiryTicker_CountsDownToExpired(t *testing.T) {
	f := newFixture()
	rows := renderRows(models.LinkRecord{ShortLink: "tmp", ExpiryTime: start.Add(30 * time.Second).Unix()})
	require.Equal(t, "in 30 seconds", rows[0].Expiry.Text)

	require.True(t, f.start(rows))
	assert.Equal(t, 1, f.sched.Pending())

	f.sched.Advance(time.Second)
	assert.Equal(t, "in 29 seconds", rows[0].Expiry.Text)
	assert.False(t, rows[0].Expiry.Expired)

	for i := 0; i < 30; i++ {
		f.sched.Advance(time.Second)
	}

	assert.Equal(t, reltime.Expired, rows[0].Expiry.Text)
	assert.True(t, rows[0].Expiry.Expired)
	assert.Equal(t, 0, f.sched.Pending(), "no tick is scheduled once nothing counts down")
	assert.Equal(t, 30, f.ticks)
	assert.Equal(t, 30, f.updates)
	assert.False(t, f.ticker.Running())
}

func TestExpiryTicker_NoExpiringRows(t *testing.T) {
	f := newFixture()
	rows := renderRows(models.LinkRecord{ShortLink: "a"}, models.LinkRecord{ShortLink: "b"})

	assert.False(t, f.start(rows))
	assert.Equal(t, 0, f.sched.Pending())
	f.sched.Advance(5 * time.Second)
	assert.Equal(t, 0, f.ticks)
}

func TestExpiryTicker_UpdatesOnlyTaggedRows(t *testing.T) {
	f := newFixture()
	rows := renderRows(
		models.LinkRecord{ShortLink: "forever"},
		models.LinkRecord{ShortLink: "soon", ExpiryTime: start.Add(2 * time.Second).Unix()},
		models.LinkRecord{ShortLink: "later", ExpiryTime: start.Add(2 * time.Hour).Unix()},
	)
	require.True(t, f.start(rows))

	f.sched.Advance(3 * time.Second)

	assert.Equal(t, render.NoExpiry, rows[0].Expiry.Text)
	assert.Equal(t, reltime.Expired, rows[1].Expiry.Text)
	assert.Equal(t, "in 2 hours", rows[2].Expiry.Text)
	assert.Equal(t, 1, f.sched.Pending(), "still ticking for the live countdown")
}

func TestExpiryTicker_RestartKeepsSingleTimer(t *testing.T) {
	f := newFixture()
	rows := renderRows(models.LinkRecord{ShortLink: "tmp", ExpiryTime: start.Add(time.Hour).Unix()})

	require.True(t, f.start(rows))
	require.True(t, f.start(rows))
	require.True(t, f.start(rows))

	assert.Equal(t, 1, f.sched.Pending())
	f.sched.Advance(time.Second)
	assert.Equal(t, 1, f.ticks)
}

func TestExpiryTicker_StopCancels(t *testing.T) {
	f := newFixture()
	rows := renderRows(models.LinkRecord{ShortLink: "tmp", ExpiryTime: start.Add(time.Hour).Unix()})
	require.True(t, f.start(rows))

	f.mu.Lock()
	f.ticker.Stop()
	f.mu.Unlock()

	assert.Equal(t, 0, f.sched.Pending())
	f.sched.Advance(10 * time.Second)
	assert.Equal(t, 0, f.ticks)
}

// captureScheduler запоминает функцию, не выполняя её
type captureScheduler struct {
	f func()
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

func (s *captureScheduler) AfterFunc(d time.Duration, f func()) ticker.Timer {
	s.f = f
	return noopTimer{}
}

func TestExpiryTicker_StaleTickIsNoop(t *testing.T) {
	var mu sync.Mutex
	sched := &captureScheduler{}
	updates := 0
	tk := ticker.New(ticker.Config{
		Locker:    &mu,
		Scheduler: sched,
		Now:       func() time.Time { return start },
		Formatter: reltime.New("en"),
		OnUpdate:  func(rows []*render.Row) { updates++ },
	})
	rows := renderRows(models.LinkRecord{ShortLink: "tmp", ExpiryTime: start.Add(time.Hour).Unix()})

	mu.Lock()
	tk.Start(rows)
	fired := sched.f
	tk.Stop()
	mu.Unlock()

	// таймер уже сработал, но цикл отменён
	fired()
	assert.Equal(t, 0, updates)
}

func TestRealScheduler(t *testing.T) {
	done := make(chan struct{})
	timer := ticker.RealScheduler().AfterFunc(time.Millisecond, func() { close(done) })
	require.NotNil(t, timer)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
