package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Tushar4059x/the-hive-project/broadcast"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "HIVE"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Postgres connection adapters.
const (
	AdapterPGXPool = "pgx.pool"
	AdapterSQLDB   = "sql.db"
	AdapterSQLX    = "sqlx.db"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Keys, shared by viper, the YAML file and the environment.
const (
	KeyConfigFile          = "config"
	KeyHTTPAddr            = "http_addr"
	KeyStore               = "store"
	KeyPostgresDSN         = "postgres_dsn"
	KeyPostgresAdapter     = "postgres_adapter"
	KeyEventsTable         = "events_table"
	KeyAutoMigrate         = "auto_migrate"
	KeyHistorySize         = "history_size"
	KeySubscriberBuffer    = "subscriber_buffer"
	KeyOverflowPolicy      = "overflow_policy"
	KeyAgentSecret         = "agent_secret"
	KeyLogLevel            = "log_level"
	KeyLogFormat           = "log_format"
	KeyObservability       = "observability"
	KeyOTLPEndpoint        = "otlp_endpoint"
	KeySimulate            = "simulate"
	KeySimulateTarget      = "simulate_target"
	KeySimulateMinInterval = "simulate_min_interval"
	KeySimulateMaxInterval = "simulate_max_interval"
)

const (
	defaultConfigName = ".hive"
	defaultConfigType = "yaml"
)

// DefaultEnvFiles are loaded by Load when no other files are given. Earlier files win.
var DefaultEnvFiles = []string{".env.local", ".env"}

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrReadingConfigFile is returned when an explicitly named config file cannot be read.
	ErrReadingConfigFile = errors.New("reading config file failed")
)

// Config is the resolved configuration.
type Config struct {
	ConfigFile string

	HTTPAddr    string
	AgentSecret string

	Store           string
	PostgresDSN     string
	PostgresAdapter string
	EventsTable     string
	AutoMigrate     bool

	HistorySize      int
	SubscriberBuffer int
	OverflowPolicy   string

	LogLevel      string
	LogFormat     string
	Observability bool
	OTLPEndpoint  string

	Simulate            bool
	SimulateTarget      string
	SimulateMinInterval time.Duration
	SimulateMaxInterval time.Duration
}

type setting struct {
	key   string
	usage string
	value any
}

// settings carries every key with its default. Flag names are the keys with dashes.
var settings = []setting{
	{KeyHTTPAddr, "address the HTTP API listens on", ":8000"},
	{KeyAgentSecret, "required X-Agent-Auth value for writes (empty accepts any non-empty value)", ""},
	{KeyStore, "event store backend: memory or postgres", StoreMemory},
	{KeyPostgresDSN, "PostgreSQL connection string", ""},
	{KeyPostgresAdapter, "PostgreSQL adapter: pgx.pool, sql.db or sqlx.db", AdapterPGXPool},
	{KeyEventsTable, "name of the events table", "events"},
	{KeyAutoMigrate, "apply the schema migrations on startup", true},
	{KeyHistorySize, "number of events replayed to a new subscriber", 50},
	{KeySubscriberBuffer, "frames buffered per subscriber", broadcast.DefaultBufferSize},
	{KeyOverflowPolicy, "what happens to a full subscriber buffer: drop-oldest or disconnect", "drop-oldest"},
	{KeyLogLevel, "log level: debug, info, warn or error", "info"},
	{KeyLogFormat, "log format: text or json", LogFormatText},
	{KeyObservability, "export traces, metrics and logs over OTLP", false},
	{KeyOTLPEndpoint, "OTLP gRPC collector endpoint", "localhost:4317"},
	{KeySimulate, "run the agent simulator inside the server", false},
	{KeySimulateTarget, "base URL of a remote server for the simulator (empty means in-process)", ""},
	{KeySimulateMinInterval, "shortest pause between two events of one agent", time.Second},
	{KeySimulateMaxInterval, "longest pause between two events of one agent", 4 * time.Second},
}

// FlagName returns the command-line flag name of key.
func FlagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// BindFlags registers one flag per setting, plus --config, on flags.
func BindFlags(flags *pflag.FlagSet) {
	flags.String(KeyConfigFile, "", "config file (default is ./.hive.yaml)")

	for _, s := range settings {
		name := FlagName(s.key)

		switch v := s.value.(type) {
		case string:
			flags.String(name, v, s.usage)
		case bool:
			flags.Bool(name, v, s.usage)
		case int:
			flags.Int(name, v, s.usage)
		case time.Duration:
			flags.Duration(name, v, s.usage)
		}
	}
}

// Load resolves the configuration. flags may be nil; envFiles defaults to DefaultEnvFiles.
// The result is not validated.
func Load(flags *pflag.FlagSet, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}

	// godotenv never overrides variables that are already set.
	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, s := range settings {
		v.SetDefault(s.key, s.value)
	}

	if err := v.BindEnv(KeyPostgresDSN, EnvPrefix+"_POSTGRES_DSN", "DATABASE_URL"); err != nil {
		return nil, err
	}

	if flags != nil {
		for _, s := range settings {
			if flag := flags.Lookup(FlagName(s.key)); flag != nil {
				if err := v.BindPFlag(s.key, flag); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := readConfigFile(v, flags); err != nil {
		return nil, err
	}

	return &Config{
		ConfigFile:          v.ConfigFileUsed(),
		HTTPAddr:            v.GetString(KeyHTTPAddr),
		AgentSecret:         v.GetString(KeyAgentSecret),
		Store:               strings.ToLower(v.GetString(KeyStore)),
		PostgresDSN:         v.GetString(KeyPostgresDSN),
		PostgresAdapter:     strings.ToLower(v.GetString(KeyPostgresAdapter)),
		EventsTable:         v.GetString(KeyEventsTable),
		AutoMigrate:         v.GetBool(KeyAutoMigrate),
		HistorySize:         v.GetInt(KeyHistorySize),
		SubscriberBuffer:    v.GetInt(KeySubscriberBuffer),
		OverflowPolicy:      strings.ToLower(v.GetString(KeyOverflowPolicy)),
		LogLevel:            strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:           strings.ToLower(v.GetString(KeyLogFormat)),
		Observability:       v.GetBool(KeyObservability),
		OTLPEndpoint:        v.GetString(KeyOTLPEndpoint),
		Simulate:            v.GetBool(KeySimulate),
		SimulateTarget:      v.GetString(KeySimulateTarget),
		SimulateMinInterval: v.GetDuration(KeySimulateMinInterval),
		SimulateMaxInterval: v.GetDuration(KeySimulateMaxInterval),
	}, nil
}

// readConfigFile reads --config (or HIVE_CONFIG) when given, else an optional ./.hive.yaml.
func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	configFile := v.GetString(KeyConfigFile)
	if flags != nil {
		if explicit, err := flags.GetString(KeyConfigFile); err == nil && explicit != "" {
			configFile = explicit
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return errors.Join(ErrReadingConfigFile, err)
		}

		return nil
	}

	v.AddConfigPath(".")
	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return errors.Join(ErrReadingConfigFile, err)
	}

	return nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			invalid("%s is required when %s is %q", KeyPostgresDSN, KeyStore, StorePostgres)
		}

		switch c.PostgresAdapter {
		case AdapterPGXPool, AdapterSQLDB, AdapterSQLX:
		default:
			invalid("unknown %s %q", KeyPostgresAdapter, c.PostgresAdapter)
		}

		if strings.TrimSpace(c.EventsTable) == "" {
			invalid("%s must not be empty", KeyEventsTable)
		}
	default:
		invalid("unknown %s %q", KeyStore, c.Store)
	}

	if c.HTTPAddr == "" {
		invalid("%s must not be empty", KeyHTTPAddr)
	}

	if c.HistorySize <= 0 {
		invalid("%s must be positive, got %d", KeyHistorySize, c.HistorySize)
	}

	if c.SubscriberBuffer <= 0 {
		invalid("%s must be positive, got %d", KeySubscriberBuffer, c.SubscriberBuffer)
	}

	if _, err := broadcast.ParseOverflowPolicy(c.OverflowPolicy); err != nil {
		invalid("%s: %w", KeyOverflowPolicy, err)
	}

	if _, err := c.SlogLevel(); err != nil {
		invalid("%s: %w", KeyLogLevel, err)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		invalid("unknown %s %q", KeyLogFormat, c.LogFormat)
	}

	if c.Observability && c.OTLPEndpoint == "" {
		invalid("%s is required when %s is enabled", KeyOTLPEndpoint, KeyObservability)
	}

	if c.SimulateMinInterval <= 0 || c.SimulateMaxInterval < c.SimulateMinInterval {
		invalid("%s and %s must satisfy 0 < min <= max", KeySimulateMinInterval, KeySimulateMaxInterval)
	}

	if len(errs) == 0 {
		return nil
	}

	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))

	return level, err
}

// OverflowPolicyValue parses OverflowPolicy; call Validate first.
func (c *Config) OverflowPolicyValue() broadcast.OverflowPolicy {
	policy, _ := broadcast.ParseOverflowPolicy(c.OverflowPolicy)
	return policy
}
