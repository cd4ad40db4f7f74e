package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIBaseURL is used when no backend URL is configured.
const DefaultAPIBaseURL = "http://localhost:8000"

// Config holds all configuration for the console and the watcher daemon
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Polling  PollingConfig  `mapstructure:"polling"`
	Session  SessionConfig  `mapstructure:"session"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	WorkerPools struct {
		Archive ArchiveWorkerPoolConfig `mapstructure:"archive"`
	} `mapstructure:"workerPools"`
}

// APIConfig describes how to reach the backend REST API.
type APIConfig struct {
	BaseURL              string        `mapstructure:"baseURL"`
	APIKey               string        `mapstructure:"apiKey"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           uint64        `mapstructure:"maxRetries"`           // Retries for idempotent GETs only
	RetryInitialInterval time.Duration `mapstructure:"retryInitialInterval"` // First backoff step
	RetryMaxInterval     time.Duration `mapstructure:"retryMaxInterval"`
}

// PollingConfig holds the conversation status polling cadence.
type PollingConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// SessionConfig configures the live call transport.
type SessionConfig struct {
	URL              string        `mapstructure:"url"`
	SampleRate       int           `mapstructure:"sampleRate"`
	HandshakeTimeout time.Duration `mapstructure:"handshakeTimeout"`
	FinalizeTimeout  time.Duration `mapstructure:"finalizeTimeout"` // Budget for the best-effort end-call notification
}

// WatcherConfig controls the conversation watcher in the daemon.
type WatcherConfig struct {
	RefreshInterval time.Duration `mapstructure:"refreshInterval"` // How often the conversation list is reconciled
	MaxTracked      int           `mapstructure:"maxTracked"`      // Upper bound of concurrent pollers
}

// NATSConfig holds the status event publisher settings.
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	Stream        string        `mapstructure:"stream"`
	SubjectPrefix string        `mapstructure:"subjectPrefix"`
	MaxAge        time.Duration `mapstructure:"maxAge"`
}

// DatabaseConfig holds the call outcome archive settings.
type DatabaseConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	PostgresDSN         string `mapstructure:"postgresDSN"`
	PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
}

// ArchiveWorkerPoolConfig holds configuration for the outcome archive worker pool
type ArchiveWorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to block when submitting if queue full
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("api.baseURL", DefaultAPIBaseURL)
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.maxRetries", 2)
	v.SetDefault("api.retryInitialInterval", 200*time.Millisecond)
	v.SetDefault("api.retryMaxInterval", 2*time.Second)

	v.SetDefault("polling.interval", 3*time.Second)

	v.SetDefault("session.url", "ws://localhost:8000/ws/call")
	v.SetDefault("session.sampleRate", 24000)
	v.SetDefault("session.handshakeTimeout", 10*time.Second)
	v.SetDefault("session.finalizeTimeout", 5*time.Second)

	v.SetDefault("watcher.refreshInterval", 15*time.Second)
	v.SetDefault("watcher.maxTracked", 200)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.stream", "conversation_status")
	v.SetDefault("nats.subjectPrefix", "v1.conversations.status")
	v.SetDefault("nats.maxAge", 72*time.Hour)

	v.SetDefault("database.enabled", false)

	v.SetDefault("workerPools.archive.poolSize", 4)
	v.SetDefault("workerPools.archive.queueSize", 1000)
	v.SetDefault("workerPools.archive.maxBlock", time.Second)
	v.SetDefault("workerPools.archive.expiryTime", time.Minute)

	v.SetConfigName("default")
	v.SetConfigType("yaml")

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.voice-agent-console")
	v.AddConfigPath("/etc/voice-agent-console")

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if apiURL := os.Getenv("CONSOLE_API_URL"); apiURL != "" {
		v.Set("api.baseURL", apiURL)
	}
	if apiKey := os.Getenv("CONSOLE_API_KEY"); apiKey != "" {
		v.Set("api.apiKey", apiKey)
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(append([]string{}, parts...), tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
