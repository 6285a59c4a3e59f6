// Command linkadmin реализует терминальную панель администратора сервиса коротких ссылок.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tempizhere/linkadmin/internal/api"
	"github.com/tempizhere/linkadmin/internal/clipboard"
	"github.com/tempizhere/linkadmin/internal/config"
	"github.com/tempizhere/linkadmin/internal/dashboard"
	"github.com/tempizhere/linkadmin/internal/log"
	"github.com/tempizhere/linkadmin/internal/metrics"
	"github.com/tempizhere/linkadmin/internal/reltime"
	"github.com/tempizhere/linkadmin/internal/render"
	"github.com/tempizhere/linkadmin/internal/session"
	"github.com/tempizhere/linkadmin/internal/ticker"
	"github.com/tempizhere/linkadmin/internal/view"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// watchRefresh задаёт период полного обновления в режиме наблюдения
const watchRefresh = time.Minute

func main() {
	// Получаем конфигурацию
	cfg, err := config.NewConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := log.NewLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fd := int(os.Stdin.Fd())
	var readPassword func() (string, error)
	if term.IsTerminal(fd) {
		readPassword = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stdout)
			return string(b), err
		}
	}

	if err := run(ctx, cfg, logger, os.Stdin, os.Stdout, readPassword); err != nil {
		logger.Error("linkadmin stopped", zap.Error(err))
		os.Exit(1)
	}
}

// run собирает зависимости и запускает панель до отмены ctx или конца ввода
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer,
	readPassword func() (string, error)) error {
	client, err := api.NewClient(cfg.ServerURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.NewRegistry())
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(cfg.TrustedSubnet, logger)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("Metrics server started", zap.String("addr", cfg.MetricsAddr))
	}

	copyable := clipboard.SupportsCopy(client.PageURL(), clipboard.Available())
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	out = &syncWriter{w: out}
	lines := newLineReader(in)
	terminal := view.NewTerminal(out, color)

	dash := dashboard.New(dashboard.Options{
		API:       client,
		Session:   session.New(client, client.Origin(), copyable),
		Renderer:  terminal,
		Rows:      render.New(reltime.New(cfg.Locale), time.Local),
		Clipboard: clipboard.System{},
		Confirmer: &promptConfirmer{ctx: ctx, lines: lines, out: out},
		Scheduler: ticker.RealScheduler(),
		Interval:  cfg.TickInterval,
		Metrics:   m,
		Logger:    logger,
	})
	defer dash.Stop()

	logger.Info("Starting linkadmin",
		zap.String("server", cfg.ServerURL),
		zap.String("origin", client.Origin()),
		zap.Bool("copy", copyable))

	if err := dash.Refresh(ctx); err != nil {
		logger.Warn("Initial refresh failed", zap.Error(err))
	}
	if cfg.Password != "" {
		if mode := dash.Page().Mode; mode == view.ModeLoginPrompt || mode == view.ModePublic {
			if err := dash.Login(ctx, cfg.Password); err != nil {
				logger.Warn("Automatic login failed", zap.Error(err))
			}
		}
	}

	if cfg.Watch {
		return watch(ctx, dash, logger)
	}

	r := &repl{
		dash:         dash,
		renderer:     terminal,
		lines:        lines,
		out:          out,
		readPassword: readPassword,
		logger:       logger,
	}
	return r.loop(ctx)
}

// watch периодически обновляет список до отмены ctx; сроки перерисовывает таймер
func watch(ctx context.Context, dash *dashboard.Dashboard, logger *zap.Logger) error {
	t := time.NewTicker(watchRefresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := dash.Refresh(ctx); err != nil {
				logger.Warn("Refresh failed", zap.Error(err))
			}
		}
	}
}

// syncWriter сериализует вывод: таймер сроков пишет из своей горутины
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
