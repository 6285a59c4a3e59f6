package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/tempizhere/linkadmin/internal/models"
)

// PublicModeMarker содержит начало тела ответа /api/all, когда сервер работает в публичном режиме
const PublicModeMarker = "Using public mode."

// ListKind обозначает исход запроса полного списка ссылок
type ListKind int

const (
	// ListOK: список получен, пользователь авторизован
	ListOK ListKind = iota
	// ListPublicMode: сервер в публичном режиме, список недоступен
	ListPublicMode
	// ListAuthRequired: требуется вход
	ListAuthRequired
)

func (k ListKind) String() string {
	switch k {
	case ListOK:
		return "ok"
	case ListPublicMode:
		return "public_mode"
	case ListAuthRequired:
		return "auth_required"
	default:
		return "unknown"
	}
}

// ListResult представляет разобранный на границе ответ /api/all
type ListResult struct {
	Kind          ListKind
	Records       []models.LinkRecord
	DefaultExpiry time.Duration // только для ListPublicMode; 0 означает отсутствие срока по умолчанию
	Message       string        // тело неуспешного ответа
}

// ParseListFailure разбирает тело неуспешного ответа /api/all.
// Срок по умолчанию берётся из последнего слова тела, разобранного как целое число секунд.
func ParseListFailure(body string) ListResult {
	if !strings.HasPrefix(body, PublicModeMarker) {
		return ListResult{Kind: ListAuthRequired, Message: body}
	}
	var seconds int64
	if idx := strings.LastIndex(body, " "); idx >= 0 {
		seconds = leadingInt(body[idx+1:])
	}
	if seconds < 0 {
		seconds = 0
	}
	return ListResult{
		Kind:          ListPublicMode,
		DefaultExpiry: time.Duration(seconds) * time.Second,
		Message:       body,
	}
}

// leadingInt читает целое в начале строки, игнорируя хвост; при отсутствии цифр возвращает 0
func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
