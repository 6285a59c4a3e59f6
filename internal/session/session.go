// Package session хранит состояние, общее для всей сессии панели: конфигурацию сервера,
// эффективный адрес сайта и возможность копирования в буфер обмена.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/tempizhere/linkadmin/internal/models"
	"golang.org/x/sync/singleflight"
)

// ConfigFetcher получает конфигурацию с сервера
type ConfigFetcher interface {
	GetConfig(ctx context.Context) (models.SessionConfig, error)
}

// Session создаётся один раз при старте. После первой успешной загрузки конфигурация не меняется.
type Session struct {
	fetcher      ConfigFetcher
	origin       string
	supportsCopy bool
	group        singleflight.Group

	mu      sync.RWMutex
	cfg     *models.SessionConfig
	siteURL string
}

// New создаёт сессию. origin задаёт адрес сервера, который используется, если site_url не задан.
func New(fetcher ConfigFetcher, origin string, supportsCopy bool) *Session {
	return &Session{
		fetcher:      fetcher,
		origin:       origin,
		supportsCopy: supportsCopy,
	}
}

// Config возвращает конфигурацию, загружая её не более одного раза.
// Ошибка загрузки не кэшируется и возвращается вызывающему.
func (s *Session) Config(ctx context.Context) (models.SessionConfig, error) {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()
	if cfg != nil {
		return *cfg, nil
	}

	v, err, _ := s.group.Do("config", func() (interface{}, error) {
		s.mu.RLock()
		cached := s.cfg
		s.mu.RUnlock()
		if cached != nil {
			return *cached, nil
		}

		fetched, err := s.fetcher.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		site := s.origin
		if fetched.SiteURL != nil {
			site = *fetched.SiteURL
		}

		s.mu.Lock()
		s.cfg = &fetched
		s.siteURL = CleanSiteURL(site)
		s.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return models.SessionConfig{}, err
	}
	return v.(models.SessionConfig), nil
}

// Loaded сообщает, загружена ли конфигурация
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg != nil
}

// SiteURL возвращает эффективный публичный адрес сайта, а до загрузки конфигурации пустую строку
func (s *Session) SiteURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.siteURL
}

// ShortURL возвращает полный адрес короткой ссылки
func (s *Session) ShortURL(shortlink string) string {
	return s.SiteURL() + "/" + shortlink
}

// SupportsCopy сообщает, доступно ли копирование в буфер обмена
func (s *Session) SupportsCopy() bool {
	return s.supportsCopy
}

// CleanSiteURL убирает кавычки вокруг адреса и завершающий слэш
func CleanSiteURL(site string) string {
	site = strings.TrimSpace(site)
	site = strings.TrimPrefix(site, `"`)
	site = strings.TrimSuffix(site, `"`)
	return strings.TrimSuffix(site, "/")
}
