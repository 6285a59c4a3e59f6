// Package tickertest содержит планировщик с управляемым временем для тестов.
package tickertest

import (
	"sort"
	"sync"
	"time"

	"github.com/tempizhere/linkadmin/internal/ticker"
)

// Scheduler представляет планировщик, время в котором двигается только через Advance
type Scheduler struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*timer
}

type timer struct {
	s   *Scheduler
	due time.Time
	seq int
	f   func()
}

// Stop отменяет таймер; возвращает false, если он уже сработал или отменён
func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i, p := range t.s.pending {
		if p == t {
			t.s.pending = append(t.s.pending[:i], t.s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// NewScheduler создаёт планировщик с начальным временем start
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

// AfterFunc планирует f через d виртуального времени
func (s *Scheduler) AfterFunc(d time.Duration, f func()) ticker.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &timer{s: s, due: s.now.Add(d), seq: s.seq, f: f}
	s.pending = append(s.pending, t)
	return t
}

// Now возвращает виртуальное время
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending возвращает число запланированных таймеров
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Advance сдвигает время на d, по очереди выполняя все наступившие таймеры,
// включая запланированные во время сдвига
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	for {
		sort.Slice(s.pending, func(i, j int) bool {
			if s.pending[i].due.Equal(s.pending[j].due) {
				return s.pending[i].seq < s.pending[j].seq
			}
			return s.pending[i].due.Before(s.pending[j].due)
		})
		if len(s.pending) == 0 || s.pending[0].due.After(target) {
			break
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.now = next.due
		s.mu.Unlock()
		next.f()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}
