package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() {
		_ = os.Chdir(originalWD)
	})
	return tempDir
}

func defaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func TestLoadConfig_FromConfigsDir(t *testing.T) {
	tempDir := chdirTemp(t)
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, "configs"), 0755))

	envContent := "APP_NAME=TestLedger\nSERVER_PORT=9090\nLOG_LEVEL=debug\nBUS_SWEEP_MAX_AGE=2h\n"
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "configs", "test_happy.env"), []byte(envContent), 0644))

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "TestLedger", cfg.Application.Name)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2*time.Hour, cfg.Bus.SweepMaxAge)

	// untouched keys keep defaults
	assert.Equal(t, time.Second, cfg.Bus.DispatchInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.Bus.WaiterPollInterval)
	assert.Equal(t, "Opening Balance Equity", cfg.Ledger.OpeningBalanceAccount)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.MongoDB.Enabled())
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig("does_not_exist")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 6*time.Hour, cfg.Bus.SweepMaxAge)
	assert.Equal(t, 8, cfg.WorkerPool.Size)
}

func TestLoadConfig_EnvironmentOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("WORKER_POOL_SIZE", "3")
	t.Setenv("BUS_DISPATCH_INTERVAL", "250ms")

	cfg, err := LoadConfig("env_only")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.WorkerPool.Size)
	assert.Equal(t, 250*time.Millisecond, cfg.Bus.DispatchInterval)
}

func TestLoadConfig_InvalidValuesRejected(t *testing.T) {
	chdirTemp(t)
	t.Setenv("WORKER_POOL_SIZE", "0")

	cfg, err := LoadConfig("invalid")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "WORKER_POOL_SIZE must be greater than 0")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name: "bus timings must be positive",
			mutate: func(c *Config) {
				c.Bus.DispatchInterval = 0
				c.Bus.SweepMaxAge = -time.Second
			},
			wantErr: []string{"BUS_DISPATCH_INTERVAL must be greater than 0", "BUS_SWEEP_MAX_AGE must be greater than 0"},
		},
		{
			name: "kafka checked only when enabled",
			mutate: func(c *Config) {
				c.Kafka.IngressTopic = ""
			},
		},
		{
			name: "kafka enabled without ingress topic",
			mutate: func(c *Config) {
				c.Kafka.Brokers = "localhost:9092"
				c.Kafka.IngressTopic = ""
			},
			wantErr: []string{"KAFKA_INGRESS_TOPIC is required when KAFKA_BROKERS is set"},
		},
		{
			name: "mongo enabled without database",
			mutate: func(c *Config) {
				c.MongoDB.URI = "mongodb://localhost:27017"
				c.MongoDB.Database = ""
			},
			wantErr: []string{"MONGO_DATABASE is required when MONGO_URI is set"},
		},
		{
			name: "opening balance account required",
			mutate: func(c *Config) {
				c.Ledger.OpeningBalanceAccount = "  "
			},
			wantErr: []string{"LEDGER_OPENING_BALANCE_ACCOUNT is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
