// Package viewtest содержит рендерер, запоминающий отрисованные страницы.
package viewtest

import (
	"sync"

	"github.com/tempizhere/linkadmin/internal/render"
	"github.com/tempizhere/linkadmin/internal/view"
)

// Recorder сохраняет копии всех отрисовок
type Recorder struct {
	mu      sync.Mutex
	pages   []view.Page
	updates [][]*render.Row
}

// Draw сохраняет копию страницы
func (r *Recorder) Draw(p view.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, p.Clone())
}

// DrawExpiry сохраняет копию обновлённых строк
func (r *Recorder) DrawExpiry(rows []*render.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, view.CloneRows(rows))
}

// Last возвращает последнюю отрисованную страницу
func (r *Recorder) Last() (view.Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pages) == 0 {
		return view.Page{}, false
	}
	return r.pages[len(r.pages)-1], true
}

// Draws возвращает число полных перерисовок
func (r *Recorder) Draws() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Updates возвращает все обновления сроков
func (r *Recorder) Updates() [][]*render.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]*render.Row, len(r.updates))
	copy(out, r.updates)
	return out
}
