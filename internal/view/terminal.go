package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tempizhere/linkadmin/internal/render"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorDim   = "\033[2m"
)

// Terminal рисует страницу текстом в терминал
type Terminal struct {
	out   io.Writer
	color bool
}

// NewTerminal создаёт терминальный рендерер. color включает ANSI-цвета.
func NewTerminal(out io.Writer, color bool) *Terminal {
	return &Terminal{out: out, color: color}
}

// Draw выводит страницу целиком
func (t *Terminal) Draw(p Page) {
	var b strings.Builder

	if p.AdminButton.Visible {
		fmt.Fprintf(&b, "[%s]\n", p.AdminButton.Action)
	}
	if p.Alert != nil && strings.TrimSpace(p.Alert.Text) != "" {
		b.WriteString(t.paint(p.Alert.Text, p.Alert.Level) + "\n")
	}
	if p.Notice.Visible && p.Notice.Text != "" {
		b.WriteString(p.Notice.Text + "\n")
	}

	if p.Login.Open {
		b.WriteString(t.dim("Login required. Use: login") + "\n")
		if p.Login.WrongPassword {
			b.WriteString(t.paint("Wrong password!", AlertError) + "\n")
		}
	} else if p.Table.Visible {
		t.writeTable(&b, p.Table)
	}

	if p.Footer.Visible {
		fmt.Fprintf(&b, "%s %s\n", p.Footer.Text, t.dim(p.Footer.Link))
	}

	_, _ = io.WriteString(t.out, b.String())
}

// DrawExpiry выводит одной строкой обновлённые сроки
func (t *Terminal) DrawExpiry(rows []*render.Row) {
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		text := row.Expiry.Text
		if row.Expiry.Expired {
			text = t.paint(text, AlertError)
		}
		parts = append(parts, row.ShortLink+": "+text)
	}
	fmt.Fprintf(t.out, "\r%s", strings.Join(parts, " | "))
}

func (t *Terminal) writeTable(b *strings.Builder, table Table) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tLong URL\tHits\tExpiry\n", table.ShortURLHeader)
	for _, row := range table.Rows {
		short := row.Short.Text
		if !row.Short.Copyable {
			short = row.Short.URL
		}
		expiry := row.Expiry.Text
		if row.Expiry.Tooltip != "" {
			expiry += " (" + row.Expiry.Tooltip + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", short, row.Long.Text, row.Hits, expiry)
	}
	_ = tw.Flush()
}

func (t *Terminal) paint(s string, level AlertLevel) string {
	if !t.color {
		return s
	}
	switch level {
	case AlertSuccess:
		return colorGreen + s + colorReset
	case AlertError:
		return colorRed + s + colorReset
	default:
		return s
	}
}

func (t *Terminal) dim(s string) string {
	if !t.color {
		return s
	}
	return colorDim + s + colorReset
}
