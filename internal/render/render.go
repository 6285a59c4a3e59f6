// Package render строит представление строк таблицы ссылок.
package render

import (
	"time"

	"github.com/tempizhere/linkadmin/internal/models"
	"github.com/tempizhere/linkadmin/internal/reltime"
)

const (
	// NoExpiry показывается в колонке срока для бессрочных ссылок
	NoExpiry = "-"
	// TooltipLayout задаёт формат абсолютного времени истечения
	TooltipLayout = "1/2/2006, 3:04:05 PM"

	shortURLHeader     = "Short URL"
	shortURLHeaderHint = "Short URL (copy manually)"
)

// ShortCell представляет ячейку короткой ссылки: действие копирования или обычная гиперссылка
type ShortCell struct {
	Text     string
	URL      string
	Copyable bool
}

// LinkCell представляет гиперссылку на длинный адрес
type LinkCell struct {
	Href string
	Text string
}

// ExpiryCell представляет ячейку срока действия
type ExpiryCell struct {
	Text    string
	Tooltip string
	At      time.Time
	Tagged  bool // ячейку нужно пересчитывать по таймеру
	Expired bool // ячейка выделяется цветом тревоги
}

// Refresh пересчитывает относительное время; возвращает true, если отсчёт ещё идёт
func (c *ExpiryCell) Refresh(f *reltime.Formatter, now time.Time) bool {
	if !c.Tagged {
		return false
	}
	c.Text = f.Format(c.At, now)
	c.Expired = c.Text == reltime.Expired
	return !c.Expired
}

// Row представляет одну отрисованную строку таблицы
type Row struct {
	ShortLink string
	Short     ShortCell
	Long      LinkCell
	Hits      int64
	Expiry    ExpiryCell
}

// Renderer строит строки таблицы
type Renderer struct {
	format *reltime.Formatter
	loc    *time.Location
}

// New создаёт Renderer. loc задаёт часовой пояс для абсолютного времени в подсказке.
func New(format *reltime.Formatter, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{format: format, loc: loc}
}

// Row строит строку по записи. copyable сообщает, доступно ли копирование в буфер обмена.
func (r *Renderer) Row(rec models.LinkRecord, siteURL string, copyable bool, now time.Time) *Row {
	row := &Row{
		ShortLink: rec.ShortLink,
		Short: ShortCell{
			Text:     rec.ShortLink,
			URL:      siteURL + "/" + rec.ShortLink,
			Copyable: copyable,
		},
		Long: LinkCell{Href: rec.LongLink, Text: rec.LongLink},
		Hits: rec.Hits,
		Expiry: ExpiryCell{
			Text: NoExpiry,
		},
	}
	if rec.Expires() {
		at := time.Unix(rec.ExpiryTime, 0)
		row.Expiry = ExpiryCell{
			Tooltip: at.In(r.loc).Format(TooltipLayout),
			At:      at,
			Tagged:  true,
		}
		row.Expiry.Refresh(r.format, now)
	}
	return row
}

// Rows строит строки в переданном порядке
func (r *Renderer) Rows(records []models.LinkRecord, siteURL string, copyable bool, now time.Time) []*Row {
	rows := make([]*Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, r.Row(rec, siteURL, copyable, now))
	}
	return rows
}

// Formatter возвращает форматтер относительного времени
func (r *Renderer) Formatter() *reltime.Formatter {
	return r.format
}

// ShortURLHeader возвращает заголовок колонки коротких ссылок
func ShortURLHeader(copyable bool) string {
	if copyable {
		return shortURLHeader
	}
	return shortURLHeaderHint
}
