package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	AppName    string
	HTTP       HTTPConfig
	Store      StoreConfig
	Graph      GraphConfig
	Settlement SettlementConfig
	Recovery   RecoveryConfig
	NATS       NATSConfig
	Logging    LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	IngestTimeout     time.Duration
	AllowedOriginsCSV string
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver      string // sqlite|postgres|neo4j
	DatabaseURL string
}

// GraphConfig describes connectivity to the graph database when STORE_DRIVER=neo4j.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// SettlementConfig controls the deferred settlement task.
type SettlementConfig struct {
	Delay          time.Duration
	Timeout        time.Duration
	MaxConcurrency int
	Dispatch       string // inprocess|nats
}

// RecoveryConfig controls the scan that re-submits stale PROCESSING records.
type RecoveryConfig struct {
	Interval  time.Duration
	Horizon   time.Duration
	BatchSize int
}

// NATSConfig describes the broker used when SETTLEMENT_DISPATCH=nats.
type NATSConfig struct {
	URL        string
	Subject    string
	QueueGroup string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNeo4j    = "neo4j"

	DispatchInProcess = "inprocess"
	DispatchNATS      = "nats"
)

const (
	defaultAppName          = "Transaction Webhook Service"
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultIngestTimeout    = 2 * time.Second
	defaultAllowedOrigins   = "*"
	defaultDatabaseURL      = "file:transactions.db?_busy_timeout=5000&_journal_mode=WAL"
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultSettlementDelay  = 30 * time.Second
	defaultSettleTimeout    = 10 * time.Second
	defaultSettleWorkers    = 16
	defaultRecoveryInterval = time.Minute
	defaultRecoveryHorizon  = 2 * time.Minute
	defaultRecoveryBatch    = 100
	defaultNATSURL          = "nats://127.0.0.1:4222"
	defaultNATSSubject      = "settlement.requested"
	defaultNATSQueueGroup   = "settlement-workers"
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		AppName: valueOrDefault("APP_NAME", defaultAppName),
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			AllowedOriginsCSV: valueOrDefault("SERVER_ALLOWED_ORIGINS", defaultAllowedOrigins),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(valueOrDefault("STORE_DRIVER", DriverSQLite)),
			DatabaseURL: valueOrDefault("DATABASE_URL", defaultDatabaseURL),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		Settlement: SettlementConfig{
			MaxConcurrency: parseIntWithDefault("SETTLEMENT_MAX_CONCURRENCY", defaultSettleWorkers),
			Dispatch:       strings.ToLower(valueOrDefault("SETTLEMENT_DISPATCH", DispatchInProcess)),
		},
		Recovery: RecoveryConfig{
			BatchSize: parseIntWithDefault("RECOVERY_BATCH_SIZE", defaultRecoveryBatch),
		},
		NATS: NATSConfig{
			URL:        valueOrDefault("NATS_URL", defaultNATSURL),
			Subject:    valueOrDefault("NATS_SUBJECT", defaultNATSSubject),
			QueueGroup: valueOrDefault("NATS_QUEUE_GROUP", defaultNATSQueueGroup),
		},
	}

	if parseBoolWithDefault("DEBUG", false) {
		cfg.Logging.Level = "debug"
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"INGEST_TIMEOUT", defaultIngestTimeout, &cfg.HTTP.IngestTimeout},
		{"SETTLEMENT_DELAY", defaultSettlementDelay, &cfg.Settlement.Delay},
		{"SETTLEMENT_TIMEOUT", defaultSettleTimeout, &cfg.Settlement.Timeout},
		{"RECOVERY_INTERVAL", defaultRecoveryInterval, &cfg.Recovery.Interval},
		{"RECOVERY_HORIZON", defaultRecoveryHorizon, &cfg.Recovery.Horizon},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.Store.Driver)
		}
	case DriverNeo4j:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Settlement.Dispatch {
	case DispatchInProcess, DispatchNATS:
	default:
		return fmt.Errorf("unsupported SETTLEMENT_DISPATCH %q", c.Settlement.Dispatch)
	}

	if c.Settlement.Delay < 0 {
		return fmt.Errorf("SETTLEMENT_DELAY must not be negative")
	}
	if c.Recovery.Interval < 0 || c.Recovery.Horizon < 0 {
		return fmt.Errorf("recovery durations must not be negative")
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
