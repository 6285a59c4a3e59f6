// Package dashboard управляет состоянием панели администратора:
// режимом сессии, таблицей ссылок, формой, уведомлениями и окном входа.
//
// Все изменения состояния сериализуются одним мьютексом. Сетевые запросы выполняются без блокировки,
// а таймер сроков берёт ту же блокировку, поэтому его тики упорядочены с остальными изменениями.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tempizhere/linkadmin/internal/api"
	"github.com/tempizhere/linkadmin/internal/clipboard"
	"github.com/tempizhere/linkadmin/internal/metrics"
	"github.com/tempizhere/linkadmin/internal/models"
	"github.com/tempizhere/linkadmin/internal/reltime"
	"github.com/tempizhere/linkadmin/internal/render"
	"github.com/tempizhere/linkadmin/internal/session"
	"github.com/tempizhere/linkadmin/internal/ticker"
	"github.com/tempizhere/linkadmin/internal/view"
	"go.uber.org/zap"
)

//go:generate mockgen -source=dashboard.go -destination=mock_dashboard.go -package=dashboard

const (
	// ReleaseURL содержит страницу релизов сервера, к ней добавляется версия
	ReleaseURL = "https://github.com/SinTan1729/chhoto-url/releases/tag/"

	// LowercasePattern задаёт допустимые символы короткой ссылки по умолчанию
	LowercasePattern = `[a-z0-9\-_]+`
	// CapitalPattern задаёт допустимые символы, если сервер разрешает заглавные буквы
	CapitalPattern = `[A-Za-z0-9\-_]+`

	lowercaseHint = "Only a-z, 0-9, - and _ are allowed"
	capitalHint   = "Only A-Z, a-z, 0-9, - and _ are allowed"

	noticePublicMode  = "Using public mode."
	noticeExpiry      = " Unless chosen a shorter expiry time, submitted links will automatically expire "
	noticeNoLinks     = "No active links."
	noticeUnreachable = "Unable to reach the server."
	longURLRequired   = "Please enter a long URL."
)

// ErrInvalidForm означает, что форма новой ссылки не прошла проверку, запрос не отправлялся
var ErrInvalidForm = errors.New("invalid form")

// LinkAPI описывает операции сервера, которые использует панель
type LinkAPI interface {
	GetConfig(ctx context.Context) (models.SessionConfig, error)
	ListLinks(ctx context.Context) (api.ListResult, error)
	CreateLink(ctx context.Context, link models.NewLink) (string, error)
	DeleteLink(ctx context.Context, shortlink string) error
	Login(ctx context.Context, password string) error
	Logout(ctx context.Context) (string, error)
}

// Confirmer спрашивает пользователя подтверждение
type Confirmer interface {
	Confirm(prompt string) bool
}

// Options содержит зависимости панели
type Options struct {
	API       LinkAPI
	Session   *session.Session
	Renderer  view.Renderer
	Rows      *render.Renderer
	Clipboard clipboard.Writer
	Confirmer Confirmer
	Scheduler ticker.Scheduler
	Interval  time.Duration
	Now       func() time.Time
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Dashboard представляет контроллер панели
type Dashboard struct {
	mu   sync.Mutex
	page view.Page

	api       LinkAPI
	sess      *session.Session
	renderer  view.Renderer
	rows      *render.Renderer
	clipboard clipboard.Writer
	confirmer Confirmer
	expiry    *ticker.ExpiryTicker
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    *zap.Logger

	validate *validator.Validate
	pattern  atomic.Pointer[regexp.Regexp]
}

// New создаёт панель в режиме загрузки
func New(opts Options) *Dashboard {
	d := &Dashboard{
		api:       opts.API,
		sess:      opts.Session,
		renderer:  opts.Renderer,
		rows:      opts.Rows,
		clipboard: opts.Clipboard,
		confirmer: opts.Confirmer,
		now:       opts.Now,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		validate:  validator.New(),
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.rows == nil {
		d.rows = render.New(reltime.New("en"), nil)
	}

	d.expiry = ticker.New(ticker.Config{
		Locker:    &d.mu,
		Scheduler: opts.Scheduler,
		Interval:  opts.Interval,
		Now:       d.now,
		Formatter: d.rows.Formatter(),
		OnUpdate: func(rows []*render.Row) {
			d.renderer.DrawExpiry(rows)
		},
		OnTick: d.metrics.ExpiryTick,
	})

	d.setPattern(false)
	_ = d.validate.RegisterValidation("shortlink", func(fl validator.FieldLevel) bool {
		return d.pattern.Load().MatchString(fl.Field().String())
	})
	return d
}

// Page возвращает копию текущего состояния страницы
func (d *Dashboard) Page() view.Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page.Clone()
}

// Stop отменяет таймер сроков
func (d *Dashboard) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expiry.Stop()
}

// Refresh запрашивает список ссылок и переводит панель в соответствующий режим.
// Каждый вызов полностью заменяет таблицу; при наложении вызовов побеждает последний применённый.
func (d *Dashboard) Refresh(ctx context.Context) error {
	start := time.Now()

	d.mu.Lock()
	d.expiry.Stop()
	d.mu.Unlock()

	res, err := d.api.ListLinks(ctx)
	if err != nil {
		d.logger.Error("Failed to list links", zap.Error(err))
		d.metrics.ObserveRefresh("error", time.Since(start))

		d.mu.Lock()
		d.page.Mode = view.ModeLoading
		d.page.Table = view.Table{}
		d.page.Notice = view.Notice{Visible: true, Text: noticeUnreachable}
		d.draw()
		d.mu.Unlock()
		return fmt.Errorf("list links: %w", err)
	}
	defer func() {
		d.metrics.ObserveRefresh(res.Kind.String(), time.Since(start))
	}()

	switch res.Kind {
	case api.ListOK:
		return d.showAdmin(ctx, res.Records)
	case api.ListPublicMode:
		return d.showPublic(ctx, res.DefaultExpiry)
	default:
		d.logger.Info("Login required", zap.String("message", res.Message))
		d.mu.Lock()
		d.page.Mode = view.ModeLoginPrompt
		d.page.Table = view.Table{}
		d.openLogin()
		d.draw()
		d.mu.Unlock()
		return nil
	}
}

// showAdmin показывает таблицу. Конфигурация загружается до отрисовки строк.
func (d *Dashboard) showAdmin(ctx context.Context, records []models.LinkRecord) error {
	cfg, err := d.sess.Config(ctx)
	if err != nil {
		d.logger.Error("Failed to fetch config", zap.Error(err))
		return fmt.Errorf("fetch config: %w", err)
	}
	d.setPattern(cfg.AllowCapitalLetters)

	reversed := make([]models.LinkRecord, len(records))
	for i, rec := range records {
		reversed[len(records)-1-i] = rec
	}
	copyable := d.sess.SupportsCopy()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.page.Mode = view.ModeAdmin
	d.page.AdminButton = view.AdminButton{Visible: true, Action: view.ActionLogout}
	d.page.Footer = footer(cfg.Version)

	if len(reversed) == 0 {
		d.page.Table = view.Table{}
		d.page.Notice = view.Notice{Visible: true, Text: noticeNoLinks}
		d.metrics.SetRows(0)
		d.draw()
		return nil
	}

	rows := d.rows.Rows(reversed, d.sess.SiteURL(), copyable, d.now())
	d.page.Notice.Visible = false
	d.page.Table = view.Table{
		Visible:        true,
		ShortURLHeader: render.ShortURLHeader(copyable),
		Rows:           rows,
	}
	d.metrics.SetRows(len(rows))
	d.expiry.Start(rows)
	d.draw()
	return nil
}

// showPublic показывает уведомление публичного режима.
// Ошибка загрузки конфигурации скрывает только версию сервера.
func (d *Dashboard) showPublic(ctx context.Context, defaultExpiry time.Duration) error {
	cfg, cfgErr := d.sess.Config(ctx)
	if cfgErr != nil {
		d.logger.Error("Failed to fetch config", zap.Error(cfgErr))
		cfgErr = fmt.Errorf("fetch config: %w", cfgErr)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	text := noticePublicMode
	if defaultExpiry > 0 {
		text += noticeExpiry + d.rows.Formatter().Format(now.Add(defaultExpiry), now) + "."
	}

	d.page.Mode = view.ModePublic
	d.page.Table = view.Table{}
	d.page.AdminButton = view.AdminButton{Visible: true, Action: view.ActionLogin}
	d.page.Notice = view.Notice{Visible: true, Text: text}
	if cfgErr == nil {
		d.page.Footer = footer(cfg.Version)
	}
	d.metrics.SetRows(0)
	d.draw()
	return cfgErr
}

// ShowLogin открывает окно входа; это действие кнопки администратора в публичном режиме
func (d *Dashboard) ShowLogin() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openLogin()
	d.draw()
}

// SetForm заполняет поля формы новой ссылки; шаблон короткой ссылки задаёт сервер
func (d *Dashboard) SetForm(form view.Form) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.page.Form.LongURL = form.LongURL
	d.page.Form.ShortURL = form.ShortURL
	d.page.Form.ExpiryDelay = form.ExpiryDelay
}

// SubmitForm отправляет форму. При успехе копирует ссылку, очищает форму и обновляет список.
// Отказ сервера показывается как есть, форма остаётся заполненной.
func (d *Dashboard) SubmitForm(ctx context.Context) (string, error) {
	d.mu.Lock()
	form := d.page.Form
	d.mu.Unlock()

	link := models.NewLink{
		LongLink:    form.LongURL,
		ShortLink:   form.ShortURL,
		ExpiryDelay: form.ExpiryDelay,
	}
	if msg, ok := d.check(link, form.Hint); !ok {
		d.setAlert(msg, view.AlertError)
		return "", fmt.Errorf("%w: %s", ErrInvalidForm, msg)
	}

	token, err := d.api.CreateLink(ctx, link)
	if err != nil {
		d.metrics.Mutation("create", false)
		var rejected *api.RejectedError
		if errors.As(err, &rejected) {
			d.logger.Info("Link rejected", zap.Int("status", rejected.Status), zap.String("message", rejected.Message))
			d.setAlert(rejected.Message, view.AlertError)
			return "", err
		}
		d.logger.Error("Failed to create link", zap.Error(err))
		return "", err
	}
	d.metrics.Mutation("create", true)
	d.logger.Info("Link created", zap.String("shortlink", token))

	if err := d.CopyShortURL(ctx, token); err != nil {
		return token, err
	}

	d.mu.Lock()
	d.page.Form.LongURL = ""
	d.page.Form.ShortURL = ""
	d.page.Form.ExpiryDelay = 0
	d.mu.Unlock()

	return token, d.Refresh(ctx)
}

// DeleteLink удаляет ссылку после подтверждения. Ошибка удаления только логируется, список обновляется всегда.
func (d *Dashboard) DeleteLink(ctx context.Context, shortlink string) error {
	if !d.confirmer.Confirm("Do you want to delete the entry " + shortlink + "?") {
		return nil
	}
	d.setAlert("", view.AlertNeutral)

	if err := d.api.DeleteLink(ctx, shortlink); err != nil {
		d.metrics.Mutation("delete", false)
		d.logger.Info("Unable to delete", zap.String("shortlink", shortlink), zap.Error(err))
	} else {
		d.metrics.Mutation("delete", true)
		d.logger.Info("Deleted", zap.String("shortlink", shortlink))
	}
	return d.Refresh(ctx)
}

// CopyShortURL копирует полный адрес короткой ссылки в буфер обмена.
// Сбой копирования не является ошибкой: пользователю предлагается скопировать адрес вручную.
func (d *Dashboard) CopyShortURL(ctx context.Context, shortlink string) error {
	if _, err := d.sess.Config(ctx); err != nil {
		d.logger.Error("Failed to fetch config", zap.Error(err))
		return fmt.Errorf("fetch config: %w", err)
	}
	link := d.sess.ShortURL(shortlink)

	var err error
	if !d.sess.SupportsCopy() || d.clipboard == nil {
		err = errors.New("clipboard is not available")
	} else {
		err = d.clipboard.WriteText(link)
	}
	if err != nil {
		d.logger.Info("Could not copy short URL", zap.String("url", link), zap.Error(err))
		d.metrics.Mutation("copy", false)
		d.setAlert("Could not copy short URL to clipboard, please do it manually: "+link, view.AlertError)
		return nil
	}
	d.metrics.Mutation("copy", true)
	d.setAlert("Short URL "+link+" was copied to clipboard!", view.AlertSuccess)
	return nil
}

// Login отправляет пароль. При отказе показывает сообщение о неверном пароле и снова фокусирует поле.
func (d *Dashboard) Login(ctx context.Context, password string) error {
	err := d.api.Login(ctx, password)
	if errors.Is(err, api.ErrWrongPassword) {
		d.metrics.Mutation("login", false)
		d.mu.Lock()
		d.page.Login.WrongPassword = true
		d.page.Login.Focused = true
		d.draw()
		d.mu.Unlock()
		return err
	}
	if err != nil {
		d.metrics.Mutation("login", false)
		d.logger.Error("Failed to login", zap.Error(err))
		return err
	}
	d.metrics.Mutation("login", true)

	d.mu.Lock()
	d.page.Login = view.LoginDialog{}
	d.mu.Unlock()
	return d.Refresh(ctx)
}

// Logout завершает сессию, скрывает таблицу и обновляет список
func (d *Dashboard) Logout(ctx context.Context) error {
	reply, err := d.api.Logout(ctx)
	if err != nil && !errors.Is(err, api.ErrUnexpectedStatus) {
		d.metrics.Mutation("logout", false)
		d.logger.Error("Failed to logout", zap.Error(err))
		return err
	}
	d.metrics.Mutation("logout", err == nil)
	d.logger.Info("Logout", zap.String("reply", reply))

	d.mu.Lock()
	d.page.Table.Visible = false
	d.page.Notice.Visible = true
	d.page.AdminButton = view.AdminButton{Visible: true, Action: view.ActionLogin}
	d.draw()
	d.mu.Unlock()
	return d.Refresh(ctx)
}

// NormalizeLongURL обрезает пробелы и добавляет https://, если в адресе нет протокола
func NormalizeLongURL(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && !strings.Contains(s, "://") && !strings.Contains(s, "magnet:") {
		s = "https://" + s
	}
	return s
}

// check проверяет форму; при ошибке возвращает текст для уведомления
func (d *Dashboard) check(link models.NewLink, hint string) (string, bool) {
	err := d.validate.Struct(link)
	if err == nil {
		return "", true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error(), false
	}
	switch verrs[0].Field() {
	case "LongLink":
		return longURLRequired, false
	case "ShortLink":
		return hint, false
	default:
		return "Expiry delay must not be negative.", false
	}
}

func (d *Dashboard) setPattern(allowCapital bool) {
	pattern, _ := patternFor(allowCapital)
	d.pattern.Store(regexp.MustCompile(`^(?:` + pattern + `)$`))

	d.mu.Lock()
	d.page.Form.Pattern, d.page.Form.Hint = patternFor(allowCapital)
	d.mu.Unlock()
}

func (d *Dashboard) setAlert(text string, level view.AlertLevel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.page.Alert = &view.Alert{Text: text, Level: level}
	d.draw()
}

// openLogin вызывается под d.mu
func (d *Dashboard) openLogin() {
	d.page.Login.Open = true
	d.page.Login.Dimmed = true
	d.page.Login.Focused = true
}

// draw вызывается под d.mu
func (d *Dashboard) draw() {
	d.renderer.Draw(d.page.Clone())
}

func patternFor(allowCapital bool) (pattern, hint string) {
	if allowCapital {
		return CapitalPattern, capitalHint
	}
	return LowercasePattern, lowercaseHint
}

func footer(version string) view.Footer {
	return view.Footer{
		Visible: true,
		Text:    "v" + version,
		Link:    ReleaseURL + version,
	}
}
