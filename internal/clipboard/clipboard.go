// Package clipboard копирует короткие ссылки в системный буфер обмена и определяет, доступно ли это.
package clipboard

import (
	"net"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

//go:generate mockgen -source=clipboard.go -destination=mock_clipboard.go -package=clipboard

// Writer записывает текст в буфер обмена
type Writer interface {
	WriteText(text string) error
}

// System пишет в системный буфер обмена
type System struct{}

// WriteText записывает текст в системный буфер обмена
func (System) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// Available сообщает, найден ли в системе механизм буфера обмена (xclip, xsel, wl-copy, pbcopy и т.п.)
func Available() bool {
	return !clipboard.Unsupported
}

// SecureContext сообщает, считается ли адрес защищённым: https или локальный хост
func SecureContext(u *url.URL) bool {
	if u == nil {
		return false
	}
	if strings.EqualFold(u.Scheme, "https") {
		return true
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// SupportsCopy объединяет проверки: защищённый контекст и работающий буфер обмена
func SupportsCopy(page *url.URL, available bool) bool {
	return available && SecureContext(page)
}
