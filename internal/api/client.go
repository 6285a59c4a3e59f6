// Package api реализует REST-контракт сервиса коротких ссылок со стороны клиента.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/tempizhere/linkadmin/internal/middleware"
	"github.com/tempizhere/linkadmin/internal/models"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// adminPagePath задаёт путь страницы управления, который отбрасывается при вычислении подкаталога
const adminPagePath = "/admin/manage/"

// Client обращается к API сервиса; куки сессии хранятся в собственном cookie jar
type Client struct {
	httpClient *http.Client
	page       *url.URL
	origin     *url.URL
	subdir     string
	logger     *zap.Logger
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient задаёт HTTP-клиент; если у него нет cookie jar, будет использован собственный
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		if clone.Jar == nil {
			clone.Jar = c.httpClient.Jar
		}
		c.httpClient = &clone
	}
}

// WithTimeout задаёт таймаут запросов
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger задаёт логгер
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient создаёт клиента по адресу страницы управления.
// Подкаталог, под которым смонтирован сервис, вычисляется один раз.
func NewClient(pageURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServerURL, pageURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	c := &Client{
		httpClient: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		page:       u,
		origin:     &url.URL{Scheme: u.Scheme, Host: u.Host},
		subdir:     Subdir(u.Path),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Transport = middleware.NewLoggingTransport(c.httpClient.Transport, c.logger)
	return c, nil
}

// Subdir возвращает подкаталог сервиса по пути страницы управления
func Subdir(pagePath string) string {
	if pagePath == "" {
		return "/"
	}
	if strings.HasSuffix(pagePath, adminPagePath) {
		return strings.TrimSuffix(pagePath, adminPagePath) + "/"
	}
	return pagePath
}

// Origin возвращает схему и хост сервиса, например "https://s.example.com"
func (c *Client) Origin() string {
	return c.origin.String()
}

// PageURL возвращает адрес страницы управления
func (c *Client) PageURL() *url.URL {
	u := *c.page
	return &u
}

// Endpoint возвращает полный адрес для пути API с учётом подкаталога
func (c *Client) Endpoint(link string) string {
	u := *c.origin
	u.Path = strings.Replace(c.subdir+link, "//", "/", 1)
	return u.String()
}

// GetConfig запрашивает конфигурацию сервера
func (c *Client) GetConfig(ctx context.Context) (models.SessionConfig, error) {
	var cfg models.SessionConfig
	status, body, err := c.do(ctx, http.MethodGet, "/api/getconfig", nil, "")
	if err != nil {
		return cfg, err
	}
	if !isSuccess(status) {
		return cfg, &StatusError{Method: http.MethodGet, Path: "/api/getconfig", Status: status, Body: string(body)}
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ListLinks запрашивает все ссылки и разбирает исход в ListResult.
// Ошибка возвращается только при сбое транспорта или некорректном JSON.
func (c *Client) ListLinks(ctx context.Context) (ListResult, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/all", nil, "")
	if err != nil {
		return ListResult{}, err
	}
	if !isSuccess(status) {
		res := ParseListFailure(string(body))
		c.logger.Debug("List request failed", zap.Int("status", status), zap.String("kind", res.Kind.String()))
		return res, nil
	}
	var records []models.LinkRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return ListResult{}, fmt.Errorf("decode links: %w", err)
	}
	if records == nil {
		records = []models.LinkRecord{}
	}
	return ListResult{Kind: ListOK, Records: records}, nil
}

// CreateLink создаёт ссылку и возвращает назначенный сервером короткий токен
func (c *Client) CreateLink(ctx context.Context, link models.NewLink) (string, error) {
	payload, err := json.Marshal(link)
	if err != nil {
		return "", err
	}
	status, body, err := c.do(ctx, http.MethodPost, "/api/new", bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}
	if !isSuccess(status) {
		return "", &RejectedError{Status: status, Message: string(body)}
	}
	return strings.TrimSpace(string(body)), nil
}

// DeleteLink удаляет ссылку
func (c *Client) DeleteLink(ctx context.Context, shortlink string) error {
	path := "/api/del/" + shortlink
	status, body, err := c.do(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return &StatusError{Method: http.MethodDelete, Path: path, Status: status, Body: string(body)}
	}
	return nil
}

// Login отправляет пароль как есть; при отказе возвращает ErrWrongPassword
func (c *Client) Login(ctx context.Context, password string) error {
	status, _, err := c.do(ctx, http.MethodPost, "/api/login", strings.NewReader(password), "text/plain")
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return ErrWrongPassword
	}
	return nil
}

// Logout завершает сессию и возвращает текст ответа сервера
func (c *Client) Logout(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, http.MethodDelete, "/api/logout", nil, "")
	if err != nil {
		return "", err
	}
	if !isSuccess(status) {
		return string(body), &StatusError{Method: http.MethodDelete, Path: "/api/logout", Status: status, Body: string(body)}
	}
	return string(body), nil
}

// do выполняет запрос и читает тело ответа целиком
func (c *Client) do(ctx context.Context, method, link string, body io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint(link), body)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, link, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s %s: %w", method, link, err)
	}
	return resp.StatusCode, data, nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
