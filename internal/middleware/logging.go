package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader задаёт заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// loggingTransport оборачивает http.RoundTripper для логирования запросов к серверу
type loggingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

// NewLoggingTransport создаёт транспорт, который проставляет X-Request-ID и логирует каждый запрос.
// Если next равен nil, используется http.DefaultTransport.
func NewLoggingTransport(next http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggingTransport{next: next, logger: logger}
}

// RoundTrip выполняет запрос и логирует результат
func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	// Запрос нельзя изменять, поэтому заголовок ставится на копии
	if r.Header.Get(RequestIDHeader) == "" {
		r = r.Clone(r.Context())
		r.Header.Set(RequestIDHeader, uuid.NewString())
	}
	requestID := r.Header.Get(RequestIDHeader)

	resp, err := t.next.RoundTrip(r)
	duration := time.Since(start)
	if err != nil {
		t.logger.Warn("HTTP request failed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	t.logger.Debug("HTTP request",
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("uri", r.URL.RequestURI()),
		zap.Int("status", resp.StatusCode),
		zap.Int64("size", resp.ContentLength),
		zap.Duration("duration", duration),
	)
	return resp, nil
}
