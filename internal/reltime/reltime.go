// Package reltime форматирует момент времени относительно текущего: "in 5 minutes", "tomorrow", "expired".
package reltime

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Expired возвращается для моментов, которые уже наступили
const Expired = "expired"

// Unit обозначает единицу относительного времени
type Unit int

const (
	Second Unit = iota
	Minute
	Hour
	Day
	Month
	Year
)

// units перечислены от крупной к мелкой; размер в миллисекундах
var units = []struct {
	unit Unit
	ms   float64
}{
	{Year, 31536000000},
	{Month, 2592000000},
	{Day, 86400000},
	{Hour, 3600000},
	{Minute, 60000},
	{Second, 1000},
}

// Formatter форматирует относительное время для заданной локали
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	words   phrases
}

// New создаёт Formatter. Некорректная локаль заменяется на английскую.
func New(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
		words:   phrasesFor(tag),
	}
}

// Tag возвращает локаль форматтера
func (f *Formatter) Tag() language.Tag {
	return f.tag
}

// Format возвращает относительное время до target или Expired, если target <= now
func (f *Formatter) Format(target, now time.Time) string {
	diff := float64(target.Sub(now).Milliseconds())
	if diff <= 0 {
		return Expired
	}
	value, unit := Split(diff)
	return f.Phrase(value, unit)
}

// Split выбирает крупнейшую единицу, которую превышает |diff| (в миллисекундах), и округляет значение.
// Округление как в JavaScript: половина округляется в сторону +∞.
func Split(diffMs float64) (int64, Unit) {
	abs := math.Abs(diffMs)
	for _, u := range units {
		if abs > u.ms || u.unit == Second {
			return int64(math.Floor(diffMs/u.ms + 0.5)), u.unit
		}
	}
	return 0, Second
}

// Phrase строит фразу для значения в единицах unit: положительные значения означают будущее, отрицательные прошлое
func (f *Formatter) Phrase(value int64, unit Unit) string {
	if named, ok := f.words.named[unit][value]; ok {
		return named
	}
	n := value
	if n < 0 {
		n = -n
	}
	name := f.words.plural[unit]
	if n == 1 {
		name = f.words.singular[unit]
	}
	count := f.printer.Sprintf("%d", n)
	if value < 0 {
		return f.printer.Sprintf(f.words.past, count, name)
	}
	return f.printer.Sprintf(f.words.future, count, name)
}
