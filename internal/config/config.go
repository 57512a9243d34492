// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// the message bus cadence, the ledger store, the optional Kafka bridge and archive,
// and the HTTP surface.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during
// application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Bus         BusConfig
	Ledger      LedgerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// BusConfig contains the in-process message bus timings
type BusConfig struct {
	DispatchInterval   time.Duration // Fallback tick when no work signal arrives
	WaiterPollInterval time.Duration // Fallback poll for response waiters
	SweepInterval      time.Duration
	SweepMaxAge        time.Duration // Terminal messages older than this are removed
	DefaultWaitTimeout time.Duration
}

// LedgerConfig contains ledger engine settings
type LedgerConfig struct {
	OpeningBalanceAccount string // Equity account that offsets starting balances
}

// KafkaConfig contains Kafka configuration. An empty Brokers value disables the bridge.
type KafkaConfig struct {
	Brokers           string
	IngressTopic      string // Send requests consumed into the bus
	EventsTopic       string // Terminal message transitions
	DLQTopic          string // Failed messages and unreadable ingress records
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
}

// Enabled reports whether the Kafka bridge is configured
func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration. An empty URI disables the archive.
type MongoDBConfig struct {
	URI               string
	Database          string
	ArchiveCollection string
	Timeout           time.Duration
	MaxPoolSize       uint64
	MinPoolSize       uint64
	MaxConnIdleTime   time.Duration
}

// Enabled reports whether the swept-message archive is configured
func (m MongoDBConfig) Enabled() bool {
	return strings.TrimSpace(m.URI) != ""
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of agent batches dispatched at once
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Bus config
	if c.Bus.DispatchInterval <= 0 {
		validationErrors = append(validationErrors, "BUS_DISPATCH_INTERVAL must be greater than 0")
	}
	if c.Bus.WaiterPollInterval <= 0 {
		validationErrors = append(validationErrors, "BUS_WAITER_POLL_INTERVAL must be greater than 0")
	}
	if c.Bus.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "BUS_SWEEP_INTERVAL must be greater than 0")
	}
	if c.Bus.SweepMaxAge <= 0 {
		validationErrors = append(validationErrors, "BUS_SWEEP_MAX_AGE must be greater than 0")
	}
	if c.Bus.DefaultWaitTimeout <= 0 {
		validationErrors = append(validationErrors, "BUS_DEFAULT_WAIT_TIMEOUT must be greater than 0")
	}

	if strings.TrimSpace(c.Ledger.OpeningBalanceAccount) == "" {
		validationErrors = append(validationErrors, "LEDGER_OPENING_BALANCE_ACCOUNT is required")
	}

	// Kafka is optional; only check the rest when brokers are set
	if c.Kafka.Enabled() {
		if c.Kafka.IngressTopic == "" {
			validationErrors = append(validationErrors, "KAFKA_INGRESS_TOPIC is required when KAFKA_BROKERS is set")
		}
		if c.Kafka.ConsumerGroup == "" {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required when KAFKA_BROKERS is set")
		}
		if c.Kafka.MinBytes <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
		}
		if c.Kafka.MaxBytes <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
		}
		if c.Kafka.MaxWait <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
		}
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// MongoDB is optional
	if c.MongoDB.Enabled() {
		if c.MongoDB.Database == "" {
			validationErrors = append(validationErrors, "MONGO_DATABASE is required when MONGO_URI is set")
		}
		if c.MongoDB.ArchiveCollection == "" {
			validationErrors = append(validationErrors, "MONGO_ARCHIVE_COLLECTION is required when MONGO_URI is set")
		}
		if c.MongoDB.Timeout <= 0 {
			validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
		}
		if c.MongoDB.MaxPoolSize <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
		}
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
