// Package ticker обновляет относительные сроки в уже отрисованной таблице, не перестраивая её.
package ticker

import (
	"sync"
	"time"

	"github.com/tempizhere/linkadmin/internal/reltime"
	"github.com/tempizhere/linkadmin/internal/render"
)

// DefaultInterval задаёт период обновления отсчётов
const DefaultInterval = time.Second

// Timer представляет отменяемую отложенную задачу
type Timer interface {
	Stop() bool
}

// Scheduler откладывает выполнение функции
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler возвращает планировщик на основе time.AfterFunc
func RealScheduler() Scheduler {
	return realScheduler{}
}

// Config содержит зависимости ExpiryTicker
type Config struct {
	// Locker защищает строки таблицы и состояние тикера; обычно это мьютекс панели
	Locker    sync.Locker
	Scheduler Scheduler
	Interval  time.Duration
	Now       func() time.Time
	Formatter *reltime.Formatter
	// OnUpdate вызывается под Locker после пересчёта ячеек
	OnUpdate func(rows []*render.Row)
	// OnTick вызывается на каждом срабатывании
	OnTick func()
}

// ExpiryTicker представляет самоперепланирующийся цикл обновления сроков.
// Одновременно жив не более одного таймера. Start и Stop вызываются под Locker.
type ExpiryTicker struct {
	cfg   Config
	rows  []*render.Row
	timer Timer
	gen   uint64
}

// New создаёт тикер
func New(cfg Config) *ExpiryTicker {
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ExpiryTicker{cfg: cfg}
}

// Start отменяет предыдущий цикл и планирует следующий тик, если среди строк есть строки со сроком.
// Возвращает true, если тик запланирован.
func (t *ExpiryTicker) Start(rows []*render.Row) bool {
	t.Stop()
	for _, row := range rows {
		if row.Expiry.Tagged {
			t.rows = append(t.rows, row)
		}
	}
	if len(t.rows) == 0 {
		return false
	}
	t.schedule()
	return true
}

// Stop явно отменяет запланированный тик. Уже сработавший тик становится пустым.
func (t *ExpiryTicker) Stop() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.rows = nil
}

// Running сообщает, запланирован ли тик
func (t *ExpiryTicker) Running() bool {
	return t.timer != nil
}

func (t *ExpiryTicker) schedule() {
	gen := t.gen
	t.timer = t.cfg.Scheduler.AfterFunc(t.cfg.Interval, func() {
		t.tick(gen)
	})
}

func (t *ExpiryTicker) tick(gen uint64) {
	t.cfg.Locker.Lock()
	defer t.cfg.Locker.Unlock()

	if gen != t.gen {
		return
	}
	t.timer = nil
	if t.cfg.OnTick != nil {
		t.cfg.OnTick()
	}

	now := t.cfg.Now()
	live := 0
	for _, row := range t.rows {
		if row.Expiry.Refresh(t.cfg.Formatter, now) {
			live++
		}
	}
	if t.cfg.OnUpdate != nil {
		t.cfg.OnUpdate(t.rows)
	}

	// Истёкшие ячейки больше не меняются, поэтому цикл продолжается только при живых отсчётах
	if live > 0 {
		t.schedule()
		return
	}
	t.rows = nil
}
