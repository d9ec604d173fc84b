// Package config defines the application configuration model for musicetl and
// loads it from an optional file, a .env file and MUSICETL_* environment
// variables.
//
// Example file (JSON or YAML, keys as below):
//
//	{
//	  "data_dir": "data",
//	  "server":   { "addr": ":8000", "upload_rate": 5, "upload_burst": 10 },
//	  "jobs":     { "kind": "sqlite" },
//	  "metrics":  { "backend": "pushgateway", "pushgateway_url": "http://localhost:9091" },
//	  "warehouse":{ "kind": "postgres", "dsn": "postgresql://...", "table": "public.tracks" },
//	  "runtime":  { "workers": 4 }
//	}
//
// Environment variables use the MUSICETL_ prefix with dots replaced by
// underscores, e.g. MUSICETL_SERVER_ADDR or MUSICETL_KAFKA_BROKERS=a:9092,b:9092.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MUSICETL"

// App is the top-level configuration.
type App struct {
	// DataDir holds uploads/, interim/, processed/ and the job database.
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	Server    Server    `mapstructure:"server" json:"server"`
	Jobs      Jobs      `mapstructure:"jobs" json:"jobs"`
	Redis     Redis     `mapstructure:"redis" json:"redis"`
	Kafka     Kafka     `mapstructure:"kafka" json:"kafka"`
	Metrics   Metrics   `mapstructure:"metrics" json:"metrics"`
	Warehouse Warehouse `mapstructure:"warehouse" json:"warehouse"`
	Runtime   Runtime   `mapstructure:"runtime" json:"runtime"`
	Retention Retention `mapstructure:"retention" json:"retention"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `mapstructure:"addr" json:"addr"`
	// UploadRate is the sustained number of upload requests per second; 0
	// disables rate limiting.
	UploadRate  float64  `mapstructure:"upload_rate" json:"upload_rate"`
	UploadBurst int      `mapstructure:"upload_burst" json:"upload_burst"`
	MaxUploadMB int64    `mapstructure:"max_upload_mb" json:"max_upload_mb"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
}

// Jobs selects the job status store.
type Jobs struct {
	Kind string `mapstructure:"kind" json:"kind"` // sqlite | redis | memory
	DSN  string `mapstructure:"dsn" json:"dsn"`   // sqlite path; defaults to <data_dir>/processes.db
}

// Redis is used when jobs.kind is "redis".
type Redis struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
}

// Kafka enables job event publishing when Brokers is non-empty.
type Kafka struct {
	Brokers []string `mapstructure:"brokers" json:"brokers"`
	Topic   string   `mapstructure:"topic" json:"topic"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string `mapstructure:"backend" json:"backend"` // none | pushgateway | datadog
	Job            string `mapstructure:"job" json:"job"`
	PushgatewayURL string `mapstructure:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string `mapstructure:"datadog_addr" json:"datadog_addr"`
}

// Warehouse enables the optional database export when Kind is set.
type Warehouse struct {
	Kind      string `mapstructure:"kind" json:"kind"`
	DSN       string `mapstructure:"dsn" json:"-"`
	Table     string `mapstructure:"table" json:"table"`
	BatchSize int    `mapstructure:"batch_size" json:"batch_size"`
}

// Runtime controls concurrency.
type Runtime struct {
	Workers int `mapstructure:"workers" json:"workers"`
}

// Retention configures the sweeper for old uploads and outputs. A zero
// MaxAge disables it.
type Retention struct {
	Schedule string        `mapstructure:"schedule" json:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age" json:"max_age"`
}

// UploadsDir is where API uploads are stored.
func (a App) UploadsDir() string { return filepath.Join(a.DataDir, "uploads") }

// InterimDir holds per-source cleaned files.
func (a App) InterimDir() string { return filepath.Join(a.DataDir, "interim") }

// ProcessedDir holds merged and bulk outputs.
func (a App) ProcessedDir() string { return filepath.Join(a.DataDir, "processed") }

// JobsDSN returns Jobs.DSN or the default database path under DataDir.
func (a App) JobsDSN() string {
	if a.Jobs.DSN != "" {
		return a.Jobs.DSN
	}
	return filepath.Join(a.DataDir, "processes.db")
}

var defaults = map[string]any{
	"data_dir":                "data",
	"server.addr":             ":8000",
	"server.upload_rate":      5.0,
	"server.upload_burst":     10,
	"server.max_upload_mb":    100,
	"server.cors_origins":     []string{"*"},
	"jobs.kind":               "sqlite",
	"jobs.dsn":                "",
	"redis.addr":              "localhost:6379",
	"redis.password":          "",
	"redis.db":                0,
	"kafka.brokers":           []string{},
	"kafka.topic":             "musicetl.jobs",
	"metrics.backend":         "none",
	"metrics.job":             "musicetl",
	"metrics.pushgateway_url": "",
	"metrics.datadog_addr":    "127.0.0.1:8125",
	"warehouse.kind":          "",
	"warehouse.dsn":           "",
	"warehouse.table":         "",
	"warehouse.batch_size":    5000,
	"runtime.workers":         4,
	"retention.schedule":      "@daily",
	"retention.max_age":       "168h",
}

// Load builds an App from defaults, an optional config file at path and the
// environment. A .env file in the working directory is loaded first if
// present; variables already set in the process win over it.
func Load(path string) (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return App{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var app App
	if err := v.Unmarshal(&app); err != nil {
		return App{}, fmt.Errorf("config: decode: %w", err)
	}
	return app, nil
}
