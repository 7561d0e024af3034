// Package config loads service settings from a YAML file, an optional .env file and
// the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/db"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the service looks for its config file when --config is not given.
const DefaultPath = "internal/jobboard/config/config.yaml"

const (
	EventsKafka = "kafka"
	EventsAMQP  = "amqp"
	EventsNone  = "none"

	BlobRedis  = "redis"
	BlobMemory = "memory"
)

// Config struct for YAML configuration. Every key may be overridden by an environment
// variable of the same name.
type Config struct {
	GRPCPort    int    `yaml:"GRPC_PORT"`
	HTTPPort    int    `yaml:"HTTP_PORT"`
	Environment string `yaml:"ENVIRONMENT"`
	LogLevel    string `yaml:"LOG_LEVEL"`

	DBDriver         string        `yaml:"DB_DRIVER"`
	DBHost           string        `yaml:"DB_HOST"`
	DBPort           int           `yaml:"DB_PORT"`
	DBUser           string        `yaml:"DB_USER"`
	DBPassword       string        `yaml:"DB_PASSWORD"`
	DBName           string        `yaml:"DB_NAME"`
	DBSSLMode        string        `yaml:"DB_SSLMODE"`
	DBDSN            string        `yaml:"DB_DSN"`
	DBMaxOpenConns   int           `yaml:"DB_MAX_OPEN_CONNS"`
	DBConnectTimeout time.Duration `yaml:"DB_CONNECT_TIMEOUT"`
	DBDebug          bool          `yaml:"DB_DEBUG"`

	JWTSecret       string        `yaml:"JWT_SECRET"`
	IdentityTimeout time.Duration `yaml:"IDENTITY_TIMEOUT"`

	EventsBackend  string   `yaml:"EVENTS_BACKEND"`
	KafkaBrokers   []string `yaml:"KAFKA_BROKERS"`
	Topic          string   `yaml:"TOPIC"`
	AMQPURL        string   `yaml:"AMQP_URL"`
	AMQPExchange   string   `yaml:"AMQP_EXCHANGE"`
	EventQueueSize int      `yaml:"EVENT_QUEUE_SIZE"`

	BlobBackend         string        `yaml:"BLOB_BACKEND"`
	RedisURL            string        `yaml:"REDIS_URL"`
	CollaboratorTimeout time.Duration `yaml:"COLLABORATOR_TIMEOUT"`
	MaxResumeBytes      int64         `yaml:"MAX_RESUME_BYTES"`

	OTLPEndpoint string `yaml:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"SERVICE_NAME"`
}

// Default returns the settings used for keys absent from every source.
func Default() Config {
	return Config{
		GRPCPort:            50051,
		HTTPPort:            8080,
		Environment:         "development",
		LogLevel:            "info",
		DBDriver:            db.DriverPostgres,
		DBHost:              "localhost",
		DBPort:              5432,
		DBSSLMode:           "disable",
		DBConnectTimeout:    30 * time.Second,
		IdentityTimeout:     3 * time.Second,
		EventsBackend:       EventsNone,
		Topic:               "jobboard-events",
		AMQPExchange:        "jobboard-events",
		EventQueueSize:      1000,
		BlobBackend:         BlobMemory,
		CollaboratorTimeout: 5 * time.Second,
		MaxResumeBytes:      5 << 20,
		ServiceName:         "jobboard",
	}
}

// Load reads path (skipped when empty), then .env, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	for name, port := range map[string]int{"GRPC_PORT": c.GRPCPort, "HTTP_PORT": c.HTTPPort} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
		}
	}
	if c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("GRPC_PORT and HTTP_PORT must differ")
	}
	for name, d := range map[string]time.Duration{
		"DB_CONNECT_TIMEOUT":   c.DBConnectTimeout,
		"IDENTITY_TIMEOUT":     c.IdentityTimeout,
		"COLLABORATOR_TIMEOUT": c.CollaboratorTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.MaxResumeBytes <= 0 {
		return fmt.Errorf("MAX_RESUME_BYTES must be positive")
	}

	switch c.DBDriver {
	case db.DriverPostgres, db.DriverMySQL, db.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.EventsBackend {
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 || c.Topic == "" {
			return fmt.Errorf("KAFKA_BROKERS and TOPIC are required for the kafka events backend")
		}
	case EventsAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required for the amqp events backend")
		}
	case EventsNone:
	default:
		return fmt.Errorf("unsupported EVENTS_BACKEND %q", c.EventsBackend)
	}

	switch c.BlobBackend {
	case BlobRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis blob backend")
		}
	case BlobMemory:
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:       c.DBDriver,
		Host:         c.DBHost,
		Port:         c.DBPort,
		User:         c.DBUser,
		Password:     c.DBPassword,
		DBName:       c.DBName,
		SSLMode:      c.DBSSLMode,
		DSN:          c.DBDSN,
		MaxOpenConns: c.DBMaxOpenConns,
		Debug:        c.DBDebug,
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// applyEnv overrides fields whose yaml key is set in the environment.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("yaml")
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		if err := setField(v.Field(i), strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func setField(f reflect.Value, raw string) error {
	if f.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		f.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(b)
	case reflect.Slice:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		f.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field kind %s", f.Kind())
	}
	return nil
}
