// Package apitest содержит поддельный сервер коротких ссылок для тестов клиента.
// Сервер реализует тот же REST-контракт, что и настоящий сервис, и хранит ссылки в памяти.
package apitest

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tempizhere/linkadmin/internal/models"
)

// sessionCookie задаёт имя куки сессии администратора
const sessionCookie = "id"

// Options задаёт поведение поддельного сервера
type Options struct {
	Password            string
	PublicMode          bool
	DefaultExpiry       int64 // секунды, только для публичного режима
	SiteURL             *string
	AllowCapitalLetters bool
	Version             string
	Prefix              string // подкаталог, под которым смонтирован API
}

// Backend хранит ссылки и сессии в памяти
type Backend struct {
	opts     Options
	now      func() time.Time
	mu       sync.Mutex
	links    []models.LinkRecord
	sessions map[string]struct{}
	calls    map[string]int

	failDeletes bool
}

// New создаёт поддельный сервер
func New(opts Options) *Backend {
	if opts.Version == "" {
		opts.Version = "6.0.0"
	}
	return &Backend{
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]struct{}),
		calls:    make(map[string]int),
	}
}

// Handler возвращает маршрутизатор с эндпоинтами API
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	api := func(r chi.Router) {
		r.Get("/api/getconfig", b.handleGetConfig)
		r.Get("/api/all", b.handleAll)
		r.Post("/api/new", b.handleNew)
		r.Delete("/api/del/{shortlink}", b.handleDelete)
		r.Post("/api/login", b.handleLogin)
		r.Delete("/api/logout", b.handleLogout)
	}
	if b.opts.Prefix != "" {
		r.Route(b.opts.Prefix, api)
	} else {
		api(r)
	}
	return r
}

// Add добавляет запись в конец списка, как будто она только что создана
func (b *Backend) Add(records ...models.LinkRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.links = append(b.links, records...)
}

// Links возвращает копию записей в порядке создания
func (b *Backend) Links() []models.LinkRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.LinkRecord, len(b.links))
	copy(out, b.links)
	return out
}

// Calls возвращает число обращений к эндпоинту, например "GET /api/all"
func (b *Backend) Calls(endpoint string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[endpoint]
}

// FailDeletes заставляет сервер отвечать ошибкой на удаление
func (b *Backend) FailDeletes(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failDeletes = fail
}

func (b *Backend) count(endpoint string) {
	b.mu.Lock()
	b.calls[endpoint]++
	b.mu.Unlock()
}

// authorized проверяет куку сессии
func (b *Backend) authorized(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[cookie.Value]
	return ok
}

// handleGetConfig обрабатывает GET-запросы на "/api/getconfig"
func (b *Backend) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	b.count("GET /api/getconfig")
	writeJSON(w, http.StatusOK, models.SessionConfig{
		SiteURL:             b.opts.SiteURL,
		AllowCapitalLetters: b.opts.AllowCapitalLetters,
		Version:             b.opts.Version,
	})
}

// handleAll обрабатывает GET-запросы на "/api/all"
func (b *Backend) handleAll(w http.ResponseWriter, r *http.Request) {
	b.count("GET /api/all")
	if !b.authorized(r) {
		if b.opts.PublicMode {
			writeText(w, http.StatusUnauthorized, fmt.Sprintf("Using public mode. Default expiry: %d", b.opts.DefaultExpiry))
			return
		}
		writeText(w, http.StatusUnauthorized, "Not logged in!")
		return
	}
	writeJSON(w, http.StatusOK, b.Links())
}

// handleNew обрабатывает POST-запросы на "/api/new"
func (b *Backend) handleNew(w http.ResponseWriter, r *http.Request) {
	b.count("POST /api/new")
	if !b.authorized(r) && !b.opts.PublicMode {
		writeText(w, http.StatusUnauthorized, "Not logged in!")
		return
	}
	var req models.NewLink
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid request!")
		return
	}
	if req.LongLink == "" {
		writeText(w, http.StatusBadRequest, "Invalid request!")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	shortlink := req.ShortLink
	if shortlink == "" {
		for i := 0; i < 5; i++ {
			id, err := generateID()
			if err != nil {
				writeText(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !b.existsLocked(id) {
				shortlink = id
				break
			}
		}
		if shortlink == "" {
			writeText(w, http.StatusInternalServerError, "Failed to generate unique ID")
			return
		}
	} else if b.existsLocked(shortlink) {
		writeText(w, http.StatusConflict, "Short URL is already in use!")
		return
	}

	delay := req.ExpiryDelay
	if b.opts.PublicMode && b.opts.DefaultExpiry > 0 && (delay == 0 || delay > b.opts.DefaultExpiry) {
		delay = b.opts.DefaultExpiry
	}
	var expiry int64
	if delay > 0 {
		expiry = b.now().Unix() + delay
	}
	b.links = append(b.links, models.LinkRecord{
		ShortLink:  shortlink,
		LongLink:   req.LongLink,
		ExpiryTime: expiry,
	})
	writeText(w, http.StatusOK, shortlink)
}

// handleDelete обрабатывает DELETE-запросы на "/api/del/{shortlink}"
func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	b.count("DELETE /api/del")
	if !b.authorized(r) {
		writeText(w, http.StatusUnauthorized, "Not logged in!")
		return
	}
	shortlink := chi.URLParam(r, "shortlink")

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDeletes {
		writeText(w, http.StatusInternalServerError, "Something went wrong!")
		return
	}
	for i, l := range b.links {
		if l.ShortLink == shortlink {
			b.links = append(b.links[:i], b.links[i+1:]...)
			writeText(w, http.StatusOK, "Deleted!")
			return
		}
	}
	writeText(w, http.StatusNotFound, "The short link was not found, and could not be deleted.")
}

// handleLogin обрабатывает POST-запросы на "/api/login"
func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.count("POST /api/login")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeText(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if string(body) != b.opts.Password {
		writeText(w, http.StatusUnauthorized, "Wrong password!")
		return
	}
	id, err := generateID()
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	b.mu.Lock()
	b.sessions[id] = struct{}{}
	b.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true})
	writeText(w, http.StatusOK, "Correct password!")
}

// handleLogout обрабатывает DELETE-запросы на "/api/logout"
func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.count("DELETE /api/logout")
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		b.mu.Lock()
		delete(b.sessions, cookie.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeText(w, http.StatusOK, "Logged out!")
}

func (b *Backend) existsLocked(shortlink string) bool {
	for _, l := range b.links {
		if l.ShortLink == shortlink {
			return true
		}
	}
	return false
}

// generateID генерирует короткий ID
func generateID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes)[:8], nil
}

// writeText пишет текстовый ответ без перевода строки в конце
func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// writeJSON пишет JSON-ответ
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
