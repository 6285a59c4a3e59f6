package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkadmin/internal/api"
	"github.com/tempizhere/linkadmin/internal/clipboard"
	"github.com/tempizhere/linkadmin/internal/metrics"
	"github.com/tempizhere/linkadmin/internal/models"
	"github.com/tempizhere/linkadmin/internal/reltime"
	"github.com/tempizhere/linkadmin/internal/render"
	"github.com/tempizhere/linkadmin/internal/session"
	"github.com/tempizhere/linkadmin/internal/ticker/tickertest"
	"github.com/tempizhere/linkadmin/internal/view"
	"github.com/tempizhere/linkadmin/internal/view/viewtest"
	"go.uber.org/zap"
)

var start = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

const site = "https://s.example.com"

type fixture struct {
	api     *MockLinkAPI
	confirm *MockConfirmer
	clip    *clipboard.MockWriter
	sched   *tickertest.Scheduler
	rec     *viewtest.Recorder
	dash    *Dashboard
}

func newFixture(t *testing.T, copyable bool) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		api:     NewMockLinkAPI(ctrl),
		confirm: NewMockConfirmer(ctrl),
		clip:    clipboard.NewMockWriter(ctrl),
		sched:   tickertest.NewScheduler(start),
		rec:     &viewtest.Recorder{},
	}
	f.dash = New(Options{
		API:       f.api,
		Session:   session.New(f.api, "http://localhost:4567", copyable),
		Renderer:  f.rec,
		Rows:      render.New(reltime.New("en"), time.UTC),
		Clipboard: f.clip,
		Confirmer: f.confirm,
		Scheduler: f.sched,
		Interval:  time.Second,
		Now:       f.sched.Now,
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Logger:    zap.NewNop(),
	})
	t.Cleanup(f.dash.Stop)
	return f
}

func config(version string, allowCapital bool) models.SessionConfig {
	s := site + "/"
	return models.SessionConfig{SiteURL: &s, AllowCapitalLetters: allowCapital, Version: version}
}

func records(n int) []models.LinkRecord {
	out := make([]models.LinkRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.LinkRecord{
			ShortLink: fmt.Sprintf("link%d", i),
			LongLink:  fmt.Sprintf("https://example.com/%d", i),
			Hits:      int64(i),
		})
	}
	return out
}

func okList(recs []models.LinkRecord) api.ListResult {
	return api.ListResult{Kind: api.ListOK, Records: recs}
}

func TestRefresh_AdminRowsReversed(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d records", n), func(t *testing.T) {
			f := newFixture(t, true)
			f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(records(n)), nil)
			f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

			require.NoError(t, f.dash.Refresh(context.Background()))

			page := f.dash.Page()
			assert.Equal(t, view.ModeAdmin, page.Mode)
			assert.Equal(t, view.AdminButton{Visible: true, Action: view.ActionLogout}, page.AdminButton)
			assert.True(t, page.Table.Visible)
			assert.False(t, page.Notice.Visible)
			assert.Equal(t, "Short URL", page.Table.ShortURLHeader)
			require.Len(t, page.Table.Rows, n)
			for i, row := range page.Table.Rows {
				assert.Equal(t, fmt.Sprintf("link%d", n-1-i), row.ShortLink)
				assert.Equal(t, site+"/"+row.ShortLink, row.Short.URL)
				assert.True(t, row.Short.Copyable)
				assert.Equal(t, render.NoExpiry, row.Expiry.Text)
			}
			assert.Equal(t, view.Footer{Visible: true, Text: "v6.0.0", Link: ReleaseURL + "6.0.0"}, page.Footer)
			assert.Equal(t, LowercasePattern, page.Form.Pattern)
			// бессрочные ссылки не запускают таймер
			assert.Equal(t, 0, f.sched.Pending())
		})
	}
}

func TestRefresh_EmptyList(t *testing.T) {
	f := newFixture(t, true)
	f.api.EXPECT().ListLinks(gomock.Any()).Return(okList([]models.LinkRecord{}), nil)
	f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

	require.NoError(t, f.dash.Refresh(context.Background()))

	page := f.dash.Page()
	assert.Equal(t, view.ModeAdmin, page.Mode)
	assert.False(t, page.Table.Visible)
	assert.Empty(t, page.Table.Rows)
	assert.Equal(t, view.Notice{Visible: true, Text: "No active links."}, page.Notice)
}

func TestRefresh_ConfigFetchedOnce(t *testing.T) {
	f := newFixture(t, true)
	f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(records(2)), nil).Times(2)
	f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", true), nil).Times(1)

	require.NoError(t, f.dash.Refresh(context.Background()))
	require.NoError(t, f.dash.Refresh(context.Background()))

	page := f.dash.Page()
	assert.Equal(t, CapitalPattern, page.Form.Pattern)
	assert.Equal(t, capitalHint, page.Form.Hint)
}

func TestRefresh_ConfigFailureNotCached(t *testing.T) {
	f := newFixture(t, true)
	boom := errors.New("connection reset")
	f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(records(1)), nil).Times(2)
	gomock.InOrder(
		f.api.EXPECT().GetConfig(gomock.Any()).Return(models.SessionConfig{}, boom),
		f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil),
	)

	err := f.dash.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, view.ModeLoading, f.dash.Page().Mode)

	require.NoError(t, f.dash.Refresh(context.Background()))
	assert.Equal(t, view.ModeAdmin, f.dash.Page().Mode)
}

func TestRefresh_NoCopyCapability(t *testing.T) {
	f := newFixture(t, false)
	f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(records(1)), nil)
	f.api.EXPECT().GetConfig(gomock.Any()).Return(models.SessionConfig{Version: "6.0.0"}, nil)

	require.NoError(t, f.dash.Refresh(context.Background()))

	page := f.dash.Page()
	assert.Equal(t, "Short URL (copy manually)", page.Table.ShortURLHeader)
	require.Len(t, page.Table.Rows, 1)
	assert.False(t, page.Table.Rows[0].Short.Copyable)
	// без site_url используется адрес сервера
	assert.Equal(t, "http://localhost:4567/link0", page.Table.Rows[0].Short.URL)
}

func TestRefresh_PublicMode(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		notice string
	}{
		{
			name:   "with default expiry",
			body:   "Using public mode. Default expiry: 3600",
			notice: "Using public mode. Unless chosen a shorter expiry time, submitted links will automatically expire in 60 minutes.",
		},
		{
			name:   "with default expiry in days",
			body:   "Using public mode. Default expiry: 172800",
			notice: "Using public mode. Unless chosen a shorter expiry time, submitted links will automatically expire in 2 days.",
		},
		{
			name:   "without default expiry",
			body:   "Using public mode. Default expiry: 0",
			notice: "Using public mode.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.api.EXPECT().ListLinks(gomock.Any()).Return(api.ParseListFailure(tt.body), nil)
			f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

			require.NoError(t, f.dash.Refresh(context.Background()))

			page := f.dash.Page()
			assert.Equal(t, view.ModePublic, page.Mode)
			assert.False(t, page.Table.Visible)
			assert.Empty(t, page.Table.Rows)
			assert.Equal(t, view.AdminButton{Visible: true, Action: view.ActionLogin}, page.AdminButton)
			assert.Equal(t, view.Notice{Visible: true, Text: tt.notice}, page.Notice)
			assert.True(t, page.Footer.Visible)
			assert.False(t, page.Login.Open)
		})
	}
}

func TestRefresh_AuthRequired(t *testing.T) {
	f := newFixture(t, true)
	f.api.EXPECT().ListLinks(gomock.Any()).Return(api.ParseListFailure("bad session"), nil)

	require.NoError(t, f.dash.Refresh(context.Background()))

	page := f.dash.Page()
	assert.Equal(t, view.ModeLoginPrompt, page.Mode)
	assert.False(t, page.Table.Visible)
	assert.Equal(t, view.LoginDialog{Open: true, Dimmed: true, Focused: true}, page.Login)
	assert.Equal(t, 1, f.rec.Draws())
}

func TestRefresh_TransportError(t *testing.T) {
	f := newFixture(t, true)
	boom := errors.New("dial tcp: connection refused")
	f.api.EXPECT().ListLinks(gomock.Any()).Return(api.ListResult{}, boom)

	err := f.dash.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)

	page := f.dash.Page()
	assert.Equal(t, view.ModeLoading, page.Mode)
	assert.Equal(t, view.Notice{Visible: true, Text: "Unable to reach the server."}, page.Notice)
}

func TestExpiryCountdown(t *testing.T) {
	f := newFixture(t, true)
	expiring := models.LinkRecord{
		ShortLink:  "soon",
		LongLink:   "https://example.com/soon",
		ExpiryTime: start.Add(30 * time.Second).Unix(),
	}
	f.api.EXPECT().ListLinks(gomock.Any()).Return(okList([]models.LinkRecord{expiring}), nil)
	f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

	require.NoError(t, f.dash.Refresh(context.Background()))

	row := f.dash.Page().Table.Rows[0]
	assert.Equal(t, "in 30 seconds", row.Expiry.Text)
	assert.Equal(t, "1/2/2026, 3:04:35 PM", row.Expiry.Tooltip)
	assert.Equal(t, 1, f.sched.Pending())

	for i := 1; i <= 29; i++ {
		f.sched.Advance(time.Second)
	}
	row = f.dash.Page().Table.Rows[0]
	assert.Equal(t, "in 1 second", row.Expiry.Text)
	assert.False(t, row.Expiry.Expired)

	f.sched.Advance(time.Second)
	f.sched.Advance(time.Second)

	row = f.dash.Page().Table.Rows[0]
	assert.Equal(t, "expired", row.Expiry.Text)
	assert.True(t, row.Expiry.Expired)
	assert.Equal(t, 0, f.sched.Pending())

	updates := f.rec.Updates()
	require.Len(t, updates, 30)
	assert.Equal(t, "in 29 seconds", updates[0][0].Expiry.Text)
	assert.Equal(t, "expired", updates[29][0].Expiry.Text)
}

func TestRefresh_StopsTickerBeforeRebuild(t *testing.T) {
	f := newFixture(t, true)
	expiring := models.LinkRecord{ShortLink: "soon", LongLink: "https://example.com", ExpiryTime: start.Add(time.Hour).Unix()}
	gomock.InOrder(
		f.api.EXPECT().ListLinks(gomock.Any()).Return(okList([]models.LinkRecord{expiring}), nil),
		f.api.EXPECT().ListLinks(gomock.Any()).Return(okList([]models.LinkRecord{expiring}), nil),
		f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(nil), nil),
	)
	f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

	require.NoError(t, f.dash.Refresh(context.Background()))
	require.NoError(t, f.dash.Refresh(context.Background()))
	assert.Equal(t, 1, f.sched.Pending())

	require.NoError(t, f.dash.Refresh(context.Background()))
	assert.Equal(t, 0, f.sched.Pending())
}

func TestSubmitForm_Success(t *testing.T) {
	f := newFixture(t, true)
	created := models.LinkRecord{ShortLink: "abc123", LongLink: "example.com"}
	gomock.InOrder(
		f.api.EXPECT().CreateLink(gomock.Any(), models.NewLink{LongLink: "example.com"}).Return("abc123", nil),
		f.clip.EXPECT().WriteText(site+"/abc123").Return(nil),
		f.api.EXPECT().ListLinks(gomock.Any()).Return(okList([]models.LinkRecord{created}), nil),
	)
	f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

	f.dash.SetForm(view.Form{LongURL: "example.com"})
	token, err := f.dash.SubmitForm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	page := f.dash.Page()
	assert.Empty(t, page.Form.LongURL)
	assert.Empty(t, page.Form.ShortURL)
	assert.Zero(t, page.Form.ExpiryDelay)
	require.NotNil(t, page.Alert)
	assert.Equal(t, view.AlertSuccess, page.Alert.Level)
	assert.Contains(t, page.Alert.Text, "abc123")
	assert.Equal(t, view.ModeAdmin, page.Mode)
	require.Len(t, page.Table.Rows, 1)
}

func TestSubmitForm_Rejected(t *testing.T) {
	f := newFixture(t, true)
	f.api.EXPECT().CreateLink(gomock.Any(), gomock.Any()).
		Return("", &api.RejectedError{Status: 409, Message: "Short URL is already in use!"})

	f.dash.SetForm(view.Form{LongURL: "https://example.com", ShortURL: "taken", ExpiryDelay: 60})
	_, err := f.dash.SubmitForm(context.Background())
	assert.ErrorIs(t, err, api.ErrMutationRejected)

	page := f.dash.Page()
	require.NotNil(t, page.Alert)
	assert.Equal(t, view.Alert{Text: "Short URL is already in use!", Level: view.AlertError}, *page.Alert)
	assert.Equal(t, "https://example.com", page.Form.LongURL)
	assert.Equal(t, "taken", page.Form.ShortURL)
	assert.Equal(t, int64(60), page.Form.ExpiryDelay)
}

func TestSubmitForm_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		form  view.Form
		alert string
	}{
		{"missing long URL", view.Form{ShortURL: "abc"}, "Please enter a long URL."},
		{"capital letters not allowed", view.Form{LongURL: "https://example.com", ShortURL: "ABC"}, lowercaseHint},
		{"forbidden characters", view.Form{LongURL: "https://example.com", ShortURL: "a b"}, lowercaseHint},
		{"negative expiry", view.Form{LongURL: "https://example.com", ExpiryDelay: -1}, "Expiry delay must not be negative."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)

			f.dash.SetForm(tt.form)
			_, err := f.dash.SubmitForm(context.Background())
			assert.ErrorIs(t, err, ErrInvalidForm)

			page := f.dash.Page()
			require.NotNil(t, page.Alert)
			assert.Equal(t, tt.alert, page.Alert.Text)
			assert.Equal(t, view.AlertError, page.Alert.Level)
		})
	}
}

func TestSubmitForm_CapitalLettersAllowed(t *testing.T) {
	f := newFixture(t, true)
	f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(nil), nil).Times(2)
	f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", true), nil)
	f.api.EXPECT().CreateLink(gomock.Any(), models.NewLink{LongLink: "https://example.com", ShortLink: "MyLink"}).Return("MyLink", nil)
	f.clip.EXPECT().WriteText(site + "/MyLink").Return(nil)

	require.NoError(t, f.dash.Refresh(context.Background()))
	f.dash.SetForm(view.Form{LongURL: "https://example.com", ShortURL: "MyLink"})
	_, err := f.dash.SubmitForm(context.Background())
	assert.NoError(t, err)
}

func TestDeleteLink(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t, true)
		gomock.InOrder(
			f.confirm.EXPECT().Confirm("Do you want to delete the entry abc?").Return(true),
			f.api.EXPECT().DeleteLink(gomock.Any(), "abc").Return(nil),
			f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(nil), nil),
		)
		f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

		require.NoError(t, f.dash.DeleteLink(context.Background(), "abc"))

		page := f.dash.Page()
		require.NotNil(t, page.Alert)
		assert.Equal(t, view.AlertNeutral, page.Alert.Level)
		assert.Equal(t, "No active links.", page.Notice.Text)
	})

	t.Run("declined", func(t *testing.T) {
		f := newFixture(t, true)
		f.confirm.EXPECT().Confirm(gomock.Any()).Return(false)

		require.NoError(t, f.dash.DeleteLink(context.Background(), "abc"))
		assert.Equal(t, 0, f.rec.Draws())
	})

	t.Run("failure still refreshes", func(t *testing.T) {
		f := newFixture(t, true)
		f.confirm.EXPECT().Confirm(gomock.Any()).Return(true)
		f.api.EXPECT().DeleteLink(gomock.Any(), "gone").
			Return(&api.StatusError{Method: "DELETE", Path: "/api/del/gone", Status: 404, Body: "Short URL not found!"})
		f.api.EXPECT().ListLinks(gomock.Any()).Return(api.ParseListFailure("Not logged in!"), nil)

		assert.NoError(t, f.dash.DeleteLink(context.Background(), "gone"))
		assert.Equal(t, view.ModeLoginPrompt, f.dash.Page().Mode)
	})
}

func TestCopyShortURL(t *testing.T) {
	t.Run("copied", func(t *testing.T) {
		f := newFixture(t, true)
		f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)
		f.clip.EXPECT().WriteText(site + "/abc").Return(nil)

		require.NoError(t, f.dash.CopyShortURL(context.Background(), "abc"))
		page := f.dash.Page()
		assert.Equal(t, view.Alert{Text: "Short URL https://s.example.com/abc was copied to clipboard!", Level: view.AlertSuccess}, *page.Alert)
	})

	t.Run("clipboard failure", func(t *testing.T) {
		f := newFixture(t, true)
		f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)
		f.clip.EXPECT().WriteText(gomock.Any()).Return(errors.New("no display"))

		require.NoError(t, f.dash.CopyShortURL(context.Background(), "abc"))
		page := f.dash.Page()
		assert.Equal(t, view.Alert{
			Text:  "Could not copy short URL to clipboard, please do it manually: https://s.example.com/abc",
			Level: view.AlertError,
		}, *page.Alert)
	})

	t.Run("no capability", func(t *testing.T) {
		f := newFixture(t, false)
		f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

		require.NoError(t, f.dash.CopyShortURL(context.Background(), "abc"))
		assert.Contains(t, f.dash.Page().Alert.Text, "please do it manually")
	})
}

func TestLogin(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t, true)
		f.api.EXPECT().ListLinks(gomock.Any()).Return(api.ParseListFailure("Not logged in!"), nil)
		f.api.EXPECT().Login(gomock.Any(), "nope").Return(api.ErrWrongPassword)

		require.NoError(t, f.dash.Refresh(context.Background()))
		err := f.dash.Login(context.Background(), "nope")
		assert.ErrorIs(t, err, api.ErrWrongPassword)

		page := f.dash.Page()
		assert.Equal(t, view.LoginDialog{Open: true, Dimmed: true, Focused: true, WrongPassword: true}, page.Login)
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t, true)
		f.api.EXPECT().Login(gomock.Any(), "secret").Return(nil)
		f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(records(1)), nil)
		f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

		f.dash.ShowLogin()
		assert.True(t, f.dash.Page().Login.Dimmed)

		require.NoError(t, f.dash.Login(context.Background(), "secret"))
		page := f.dash.Page()
		assert.Equal(t, view.LoginDialog{}, page.Login)
		assert.Equal(t, view.ModeAdmin, page.Mode)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t, true)
	gomock.InOrder(
		f.api.EXPECT().ListLinks(gomock.Any()).Return(okList(records(2)), nil),
		f.api.EXPECT().Logout(gomock.Any()).Return("Logged out!", nil),
		f.api.EXPECT().ListLinks(gomock.Any()).Return(api.ParseListFailure("Using public mode. Default expiry: 0"), nil),
	)
	f.api.EXPECT().GetConfig(gomock.Any()).Return(config("6.0.0", false), nil)

	require.NoError(t, f.dash.Refresh(context.Background()))
	require.NoError(t, f.dash.Logout(context.Background()))

	page := f.dash.Page()
	assert.Equal(t, view.ModePublic, page.Mode)
	assert.False(t, page.Table.Visible)
	assert.Equal(t, view.AdminButton{Visible: true, Action: view.ActionLogin}, page.AdminButton)
}

func TestNormalizeLongURL(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"example.com", "https://example.com"},
		{"  example.com/path  ", "https://example.com/path"},
		{"http://example.com", "http://example.com"},
		{"ftp://files.example.com", "ftp://files.example.com"},
		{"magnet:?xt=urn:btih:abc", "magnet:?xt=urn:btih:abc"},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLongURL(tt.in))
		})
	}
}
