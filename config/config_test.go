package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tushar4059x/the-hive-project/broadcast"
	"github.com/Tushar4059x/the-hive-project/config"
)

func noEnvFiles(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func parsedFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("hive-test", pflag.ContinueOnError)
	config.BindFlags(flags)
	require.NoError(t, flags.Parse(args))

	return flags
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_Load_Defaults(t *testing.T) {
	// act
	cfg, err := config.Load(nil, noEnvFiles(t))

	// assert
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Equal(t, config.AdapterPGXPool, cfg.PostgresAdapter)
	assert.Equal(t, "events", cfg.EventsTable)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 50, cfg.HistorySize)
	assert.Equal(t, broadcast.DefaultBufferSize, cfg.SubscriberBuffer)
	assert.Equal(t, "drop-oldest", cfg.OverflowPolicy)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.LogFormatText, cfg.LogFormat)
	assert.False(t, cfg.Observability)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, time.Second, cfg.SimulateMinInterval)
	assert.Equal(t, 4*time.Second, cfg.SimulateMaxInterval)
	assert.NoError(t, cfg.Validate())
}

func Test_Load_Precedence_FlagOverEnvOverFile(t *testing.T) {
	// arrange
	file := writeFile(t, "hive.yaml", "http_addr: \":7000\"\nhistory_size: 10\nlog_level: debug\n")
	t.Setenv("HIVE_HTTP_ADDR", ":7100")
	t.Setenv("HIVE_HISTORY_SIZE", "20")

	flags := parsedFlags(t, "--config", file, "--http-addr", ":7200")

	// act
	cfg, err := config.Load(flags, noEnvFiles(t))

	// assert
	require.NoError(t, err)
	assert.Equal(t, ":7200", cfg.HTTPAddr, "flag wins")
	assert.Equal(t, 20, cfg.HistorySize, "env wins over file")
	assert.Equal(t, "debug", cfg.LogLevel, "file wins over default")
	assert.Equal(t, file, cfg.ConfigFile)
}

func Test_Load_ReadsEnvFile(t *testing.T) {
	// arrange
	envFile := writeFile(t, ".env", "HIVE_EVENTS_TABLE=hive_events\nHIVE_OVERFLOW_POLICY=disconnect\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("HIVE_EVENTS_TABLE")
		_ = os.Unsetenv("HIVE_OVERFLOW_POLICY")
	})

	// act
	cfg, err := config.Load(nil, envFile)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "hive_events", cfg.EventsTable)
	assert.Equal(t, broadcast.DisconnectOnLag, cfg.OverflowPolicyValue())
}

func Test_Load_AcceptsDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://hive@localhost/hive")

	cfg, err := config.Load(nil, noEnvFiles(t))

	require.NoError(t, err)
	assert.Equal(t, "postgres://hive@localhost/hive", cfg.PostgresDSN)
}

func Test_Load_Fails_When_ExplicitConfigFileIsMissing(t *testing.T) {
	flags := parsedFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := config.Load(flags, noEnvFiles(t))

	assert.ErrorIs(t, err, config.ErrReadingConfigFile)
}

func Test_Load_DurationFlags(t *testing.T) {
	flags := parsedFlags(t, "--simulate-min-interval", "200ms", "--simulate-max-interval", "1s", "--simulate")

	cfg, err := config.Load(flags, noEnvFiles(t))

	require.NoError(t, err)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, 200*time.Millisecond, cfg.SimulateMinInterval)
	assert.Equal(t, time.Second, cfg.SimulateMaxInterval)
}

func Test_Validate_RejectsInvalidValues(t *testing.T) {
	valid := func() *config.Config {
		cfg, err := config.Load(nil, noEnvFiles(t))
		require.NoError(t, err)
		return cfg
	}

	testCases := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{name: "unknown store", mutate: func(cfg *config.Config) { cfg.Store = "sqlite" }},
		{name: "postgres without dsn", mutate: func(cfg *config.Config) { cfg.Store = config.StorePostgres }},
		{name: "unknown adapter", mutate: func(cfg *config.Config) {
			cfg.Store = config.StorePostgres
			cfg.PostgresDSN = "postgres://localhost/hive"
			cfg.PostgresAdapter = "gorm"
		}},
		{name: "history size", mutate: func(cfg *config.Config) { cfg.HistorySize = 0 }},
		{name: "subscriber buffer", mutate: func(cfg *config.Config) { cfg.SubscriberBuffer = -1 }},
		{name: "overflow policy", mutate: func(cfg *config.Config) { cfg.OverflowPolicy = "block" }},
		{name: "log level", mutate: func(cfg *config.Config) { cfg.LogLevel = "verbose" }},
		{name: "log format", mutate: func(cfg *config.Config) { cfg.LogFormat = "xml" }},
		{name: "intervals", mutate: func(cfg *config.Config) { cfg.SimulateMaxInterval = time.Millisecond }},
		{name: "otlp endpoint", mutate: func(cfg *config.Config) {
			cfg.Observability = true
			cfg.OTLPEndpoint = ""
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}

func Test_NewLogger_HonorsFormatAndLevel(t *testing.T) {
	// arrange
	cfg, err := config.Load(nil, noEnvFiles(t))
	require.NoError(t, err)
	cfg.LogFormat = config.LogFormatJSON
	cfg.LogLevel = "warn"

	var buf bytes.Buffer

	// act
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "agent_id", "Chaos-GPT")

	// assert
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"agent_id":"Chaos-GPT"`)
}
