// Package view описывает модель страницы панели и её отрисовку.
package view

import (
	"github.com/tempizhere/linkadmin/internal/render"
)

// Mode описывает состояние сессии панели
type Mode int

const (
	// ModeLoading: список ещё не получен или сервер недоступен
	ModeLoading Mode = iota
	// ModeAdmin: администратор вошёл, таблица доступна
	ModeAdmin
	// ModePublic: сервер работает в публичном режиме
	ModePublic
	// ModeLoginPrompt: нужен вход
	ModeLoginPrompt
)

func (m Mode) String() string {
	switch m {
	case ModeAdmin:
		return "admin"
	case ModePublic:
		return "public"
	case ModeLoginPrompt:
		return "login_prompt"
	default:
		return "loading"
	}
}

// AdminAction задаёт действие кнопки администратора
type AdminAction int

const (
	ActionLogin AdminAction = iota
	ActionLogout
)

func (a AdminAction) String() string {
	if a == ActionLogout {
		return "logout"
	}
	return "login"
}

// AlertLevel задаёт цвет уведомления
type AlertLevel int

const (
	AlertNeutral AlertLevel = iota
	AlertSuccess
	AlertError
)

// Alert представляет единственное уведомление над формой
type Alert struct {
	Text  string
	Level AlertLevel
}

// AdminButton представляет кнопку входа/выхода
type AdminButton struct {
	Visible bool
	Action  AdminAction
}

// Table представляет таблицу ссылок
type Table struct {
	Visible        bool
	ShortURLHeader string
	Rows           []*render.Row
}

// Notice представляет строку состояния вместо таблицы
type Notice struct {
	Visible bool
	Text    string
}

// LoginDialog представляет модальное окно входа. На странице оно одно.
type LoginDialog struct {
	Open          bool
	Dimmed        bool
	WrongPassword bool
	Focused       bool
}

// Footer показывает версию сервера со ссылкой на релиз
type Footer struct {
	Visible bool
	Text    string
	Link    string
}

// Form представляет форму новой ссылки
type Form struct {
	LongURL     string
	ShortURL    string
	ExpiryDelay int64
	Pattern     string
	Hint        string
}

// Page содержит всё, что видит пользователь
type Page struct {
	Mode        Mode
	AdminButton AdminButton
	Table       Table
	Notice      Notice
	Alert       *Alert
	Login       LoginDialog
	Footer      Footer
	Form        Form
}

// Clone возвращает глубокую копию страницы; строки таблицы копируются
func (p Page) Clone() Page {
	out := p
	if p.Alert != nil {
		alert := *p.Alert
		out.Alert = &alert
	}
	out.Table.Rows = CloneRows(p.Table.Rows)
	return out
}

// CloneRows копирует строки, чтобы отрисовка не видела последующих изменений
func CloneRows(rows []*render.Row) []*render.Row {
	if rows == nil {
		return nil
	}
	out := make([]*render.Row, len(rows))
	for i, row := range rows {
		r := *row
		out[i] = &r
	}
	return out
}

// Renderer отрисовывает страницу. Методы вызываются последовательно.
type Renderer interface {
	// Draw перерисовывает страницу целиком
	Draw(p Page)
	// DrawExpiry обновляет только ячейки сроков уже отрисованных строк
	DrawExpiry(rows []*render.Row)
}
