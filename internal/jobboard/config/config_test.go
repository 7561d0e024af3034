package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileDefaultsAndEnv(t *testing.T) {
	path := writeConfig(t, `
HTTP_PORT: 9090
JWT_SECRET: from-file
DB_DRIVER: sqlite
DB_DSN: ":memory:"
KAFKA_BROKERS:
  - kafka-1:9092
COLLABORATOR_TIMEOUT: 2s
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("EVENTS_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("DB_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.GRPCPort, "default fills absent keys")
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, EventsKafka, cfg.EventsBackend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.CollaboratorTimeout)
	assert.True(t, cfg.DBDebug)

	dbCfg := cfg.Database()
	assert.Equal(t, db.DriverSQLite, dbCfg.Driver)
	assert.Equal(t, ":memory:", dbCfg.DSN)
	assert.True(t, dbCfg.Debug)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "HTTP_PORT: [oops"))
		assert.Error(t, err)
	})

	t.Run("BadEnvValue", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("HTTP_PORT", "eighty")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP_PORT")
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.JWTSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Valid", func(_ *Config) {}, ""},
		{"MissingSecret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"BadPort", func(c *Config) { c.HTTPPort = 70000 }, "HTTP_PORT"},
		{"SamePorts", func(c *Config) { c.HTTPPort = c.GRPCPort }, "must differ"},
		{"ZeroTimeout", func(c *Config) { c.CollaboratorTimeout = 0 }, "COLLABORATOR_TIMEOUT"},
		{"UnknownDriver", func(c *Config) { c.DBDriver = "oracle" }, "DB_DRIVER"},
		{"KafkaWithoutBrokers", func(c *Config) { c.EventsBackend = EventsKafka }, "KAFKA_BROKERS"},
		{"AMQPWithoutURL", func(c *Config) { c.EventsBackend = EventsAMQP }, "AMQP_URL"},
		{"RedisWithoutURL", func(c *Config) { c.BlobBackend = BlobRedis }, "REDIS_URL"},
		{"UnknownBlob", func(c *Config) { c.BlobBackend = "s3" }, "BLOB_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnv_Durations(t *testing.T) {
	cfg := Default()
	env := map[string]string{"IDENTITY_TIMEOUT": "750ms", "MAX_RESUME_BYTES": "1024"}
	err := applyEnv(&cfg, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.IdentityTimeout)
	assert.Equal(t, int64(1024), cfg.MaxResumeBytes)

	err = applyEnv(&cfg, func(key string) (string, bool) {
		return "soon", key == "DB_CONNECT_TIMEOUT"
	})
	assert.Error(t, err)
}
