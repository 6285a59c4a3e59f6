// Package config собирает настройки панели из флагов, переменных окружения и файла .env.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultServerURL содержит адрес страницы управления по умолчанию
const DefaultServerURL = "http://localhost:4567/admin/manage/"

// Config содержит настройки приложения
type Config struct {
	ServerURL      string
	Password       string
	Locale         string
	TickInterval   time.Duration
	RequestTimeout time.Duration
	LogLevel       string
	MetricsAddr    string
	TrustedSubnet  string
	Watch          bool
}

// NewConfig создаёт объект Config: значения по умолчанию, затем флаги, затем переменные окружения.
// Файл .env, если он есть, загружается до чтения окружения.
func NewConfig(args []string) (*Config, error) {
	_ = godotenv.Load() // .env необязателен

	cfg := &Config{}
	fs := flag.NewFlagSet("linkadmin", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "s", DefaultServerURL, "URL of the admin page of the link shortener")
	fs.StringVar(&cfg.Password, "p", "", "admin password used for automatic login")
	fs.StringVar(&cfg.Locale, "l", "en", "locale for relative times")
	fs.DurationVar(&cfg.TickInterval, "t", time.Second, "expiry countdown refresh interval")
	fs.DurationVar(&cfg.RequestTimeout, "r", 10*time.Second, "HTTP request timeout")
	fs.StringVar(&cfg.LogLevel, "L", "info", "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", "", "address to expose metrics on, empty to disable")
	fs.StringVar(&cfg.TrustedSubnet, "T", "", "CIDR allowed to read metrics, empty to allow all")
	fs.BoolVar(&cfg.Watch, "w", false, "watch mode: refresh and redraw without reading commands")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Переменные окружения имеют приоритет над флагами
	if v := os.Getenv("LINKADMIN_SERVER"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("LINKADMIN_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("LINKADMIN_LOCALE"); v != "" {
		cfg.Locale = v
	}
	if v := os.Getenv("LINKADMIN_TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		cfg.TickInterval = d
	}
	if v := os.Getenv("LINKADMIN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("LINKADMIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LINKADMIN_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("LINKADMIN_TRUSTED_SUBNET"); v != "" {
		cfg.TrustedSubnet = v
	}
	if v := os.Getenv("LINKADMIN_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		cfg.Watch = watch
	}

	// Валидация значений
	if !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		cfg.ServerURL = "http://" + cfg.ServerURL
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MetricsAddr != "" && !strings.Contains(cfg.MetricsAddr, ":") {
		cfg.MetricsAddr = ":" + cfg.MetricsAddr
	}

	return cfg, nil
}
