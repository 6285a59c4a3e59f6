// Package metrics собирает метрики работы панели и отдаёт их по HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tempizhere/linkadmin/internal/middleware"
	"go.uber.org/zap"
)

// Metrics содержит метрики панели. Нулевой указатель допустим: методы ничего не делают.
type Metrics struct {
	registry        *prometheus.Registry
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	mutations       *prometheus.CounterVec
	expiryTicks     prometheus.Counter
	rows            prometheus.Gauge
}

// New регистрирует метрики в reg; если reg равен nil, создаётся собственный реестр
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkadmin_refreshes_total",
			Help: "Количество обновлений списка ссылок по результату",
		}, []string{"outcome"}), // outcome: ok, public_mode, auth_required, error
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkadmin_refresh_duration_seconds",
			Help:    "Время обновления списка ссылок",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkadmin_mutations_total",
			Help: "Количество изменяющих операций",
		}, []string{"op", "result"}), // op: create, delete, login, logout, copy
		expiryTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkadmin_expiry_ticks_total",
			Help: "Количество срабатываний таймера сроков",
		}),
		rows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "linkadmin_rows",
			Help: "Число строк в таблице",
		}),
	}
}

// ObserveRefresh учитывает обновление списка
func (m *Metrics) ObserveRefresh(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(d.Seconds())
}

// Mutation учитывает изменяющую операцию
func (m *Metrics) Mutation(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

// ExpiryTick учитывает срабатывание таймера сроков
func (m *Metrics) ExpiryTick() {
	if m == nil {
		return
	}
	m.expiryTicks.Inc()
}

// SetRows задаёт число строк в таблице
func (m *Metrics) SetRows(n int) {
	if m == nil {
		return
	}
	m.rows.Set(float64(n))
}

// Handler возвращает роутер служебного сервера: /metrics и /healthz
func (m *Metrics) Handler(trustedSubnet string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.TrustedSubnetMiddleware(trustedSubnet, logger))
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return r
}
