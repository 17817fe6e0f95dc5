package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Storage   StorageConfig
	S3        S3Config
	Log       LogConfig
	CORS      CORSConfig
	Scheduler SchedulerConfig
	Import    ImportConfig
	Reconcile ReconcileConfig
	Chart     ChartConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// S3Config holds settings for the bank statement archive. An empty bucket
// disables archiving.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SchedulerConfig holds recurring worker settings.
type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	PollIntervalSecs int    `mapstructure:"poll_interval_secs"`
	BatchSize        int    `mapstructure:"batch_size"`
	Timezone         string `mapstructure:"timezone"`
}

// Location resolves the scheduler timezone, falling back to UTC.
func (s *SchedulerConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ImportConfig holds bank statement import limits.
type ImportConfig struct {
	MaxFileSizeMB  int64 `mapstructure:"max_file_size_mb"`
	MaxErrors      int   `mapstructure:"max_errors"`
	HeaderScanRows int   `mapstructure:"header_scan_rows"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (i *ImportConfig) MaxFileSizeBytes() int64 {
	return i.MaxFileSizeMB << 20
}

// ReconcileConfig holds reconciliation settings.
type ReconcileConfig struct {
	SuggestLimit int `mapstructure:"suggest_limit"`
}

// ChartConfig points at an optional chart-of-accounts template overriding the
// embedded default.
type ChartConfig struct {
	TemplatePath string `mapstructure:"template_path"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from an optional .env file and environment
// variables with the KHATA_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("KHATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "20s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "khata")
	v.SetDefault("db.password", "khata_secret")
	v.SetDefault("db.name", "khata_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	v.SetDefault("storage.driver", DriverPostgres)

	// S3 defaults
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "statements")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "text")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.poll_interval_secs", 60)
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("scheduler.timezone", "Asia/Kolkata")

	// Import defaults
	v.SetDefault("import.max_file_size_mb", 10)
	v.SetDefault("import.max_errors", 20)
	v.SetDefault("import.header_scan_rows", 20)

	v.SetDefault("reconcile.suggest_limit", 5)
	v.SetDefault("chart.template_path", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "KHATA_SERVER_PORT",
		"server.read_timeout":          "KHATA_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "KHATA_SERVER_WRITE_TIMEOUT",
		"server.shutdown_timeout":      "KHATA_SERVER_SHUTDOWN_TIMEOUT",
		"server.environment":           "KHATA_SERVER_ENVIRONMENT",
		"db.host":                      "KHATA_DB_HOST",
		"db.port":                      "KHATA_DB_PORT",
		"db.user":                      "KHATA_DB_USER",
		"db.password":                  "KHATA_DB_PASSWORD",
		"db.name":                      "KHATA_DB_NAME",
		"db.sslmode":                   "KHATA_DB_SSLMODE",
		"db.max_open":                  "KHATA_DB_MAX_OPEN",
		"db.max_idle":                  "KHATA_DB_MAX_IDLE",
		"storage.driver":               "KHATA_STORAGE_DRIVER",
		"s3.region":                    "KHATA_S3_REGION",
		"s3.bucket":                    "KHATA_S3_BUCKET",
		"s3.endpoint":                  "KHATA_S3_ENDPOINT",
		"s3.access_key":                "KHATA_S3_ACCESS_KEY",
		"s3.secret_key":                "KHATA_S3_SECRET_KEY",
		"s3.prefix":                    "KHATA_S3_PREFIX",
		"log.level":                    "KHATA_LOG_LEVEL",
		"log.format":                   "KHATA_LOG_FORMAT",
		"cors.allowed_origins":         "KHATA_CORS_ALLOWED_ORIGINS",
		"scheduler.enabled":            "KHATA_SCHEDULER_ENABLED",
		"scheduler.poll_interval_secs": "KHATA_SCHEDULER_POLL_INTERVAL_SECS",
		"scheduler.batch_size":         "KHATA_SCHEDULER_BATCH_SIZE",
		"scheduler.timezone":           "KHATA_SCHEDULER_TIMEZONE",
		"import.max_file_size_mb":      "KHATA_IMPORT_MAX_FILE_SIZE_MB",
		"import.max_errors":            "KHATA_IMPORT_MAX_ERRORS",
		"import.header_scan_rows":      "KHATA_IMPORT_HEADER_SCAN_ROWS",
		"reconcile.suggest_limit":      "KHATA_RECONCILE_SUGGEST_LIMIT",
		"chart.template_path":          "KHATA_CHART_TEMPLATE_PATH",
		"metrics.enabled":              "KHATA_METRICS_ENABLED",
		"metrics.path":                 "KHATA_METRICS_PATH",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if KHATA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("KHATA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:            serverPort,
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		Environment:     v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Storage = StorageConfig{Driver: strings.ToLower(v.GetString("storage.driver"))}
	if cfg.Storage.Driver != DriverPostgres && cfg.Storage.Driver != DriverMemory {
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		Prefix:    v.GetString("s3.prefix"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Scheduler = SchedulerConfig{
		Enabled:          v.GetBool("scheduler.enabled"),
		PollIntervalSecs: v.GetInt("scheduler.poll_interval_secs"),
		BatchSize:        v.GetInt("scheduler.batch_size"),
		Timezone:         v.GetString("scheduler.timezone"),
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}
	cfg.Import = ImportConfig{
		MaxFileSizeMB:  v.GetInt64("import.max_file_size_mb"),
		MaxErrors:      v.GetInt("import.max_errors"),
		HeaderScanRows: v.GetInt("import.header_scan_rows"),
	}
	cfg.Reconcile = ReconcileConfig{SuggestLimit: v.GetInt("reconcile.suggest_limit")}
	cfg.Chart = ChartConfig{TemplatePath: v.GetString("chart.template_path")}
	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("metrics.enabled"),
		Path:    v.GetString("metrics.path"),
	}

	return cfg, nil
}
