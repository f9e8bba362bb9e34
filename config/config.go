package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Server
	Port            int           `mapstructure:"PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Database
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	// JWT
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTExpiration time.Duration `mapstructure:"JWT_EXPIRATION"`

	// AWS
	AWSRegion     string `mapstructure:"AWS_REGION"`
	PuzzleBucket  string `mapstructure:"PUZZLE_BUCKET"`
	PuzzlePrefix  string `mapstructure:"PUZZLE_PREFIX"`
	SnapshotTable string `mapstructure:"SNAPSHOT_TABLE"`
	PushFunction  string `mapstructure:"PUSH_FUNCTION"`

	// Puzzles on local disk, used when no bucket is set
	PuzzleDir string `mapstructure:"PUZZLE_DIR"`

	// Mail
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	// Pairs and addresses are provisioned outside this service, e.g.
	// PAIRS="pair-1=alice:bob" and PLAYER_EMAILS="alice=alice@example.com".
	Pairs        string `mapstructure:"PAIRS"`
	PlayerEmails string `mapstructure:"PLAYER_EMAILS"`

	// Rules
	LetterPoints          int           `mapstructure:"LETTER_POINTS"`
	WordBonus             int           `mapstructure:"WORD_BONUS"`
	HintAllowance         int           `mapstructure:"HINT_ALLOWANCE"`
	RackSize              int           `mapstructure:"RACK_SIZE"`
	CooldownWindow        time.Duration `mapstructure:"COOLDOWN_WINDOW"`
	CooldownMidnightReset bool          `mapstructure:"COOLDOWN_MIDNIGHT_RESET"`
	CooldownTimezone      string        `mapstructure:"COOLDOWN_TIMEZONE"`

	// Sync client
	ServerURL       string        `mapstructure:"SERVER_URL"`
	AccessToken     string        `mapstructure:"ACCESS_TOKEN"`
	SnapshotDir     string        `mapstructure:"SNAPSHOT_DIR"`
	PollInterval    time.Duration `mapstructure:"POLL_INTERVAL"`
	PollMaxInterval time.Duration `mapstructure:"POLL_MAX_INTERVAL"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var keys = []string{
	"ENVIRONMENT", "LOG_LEVEL", "PORT", "SHUTDOWN_TIMEOUT",
	"DATABASE_DRIVER", "DATABASE_URL", "JWT_SECRET", "JWT_EXPIRATION",
	"AWS_REGION", "PUZZLE_BUCKET", "PUZZLE_PREFIX", "SNAPSHOT_TABLE", "PUSH_FUNCTION", "PUZZLE_DIR",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "MAIL_FROM",
	"PAIRS", "PLAYER_EMAILS",
	"LETTER_POINTS", "WORD_BONUS", "HINT_ALLOWANCE", "RACK_SIZE",
	"COOLDOWN_WINDOW", "COOLDOWN_MIDNIGHT_RESET", "COOLDOWN_TIMEZONE",
	"SERVER_URL", "ACCESS_TOKEN", "SNAPSHOT_DIR", "POLL_INTERVAL", "POLL_MAX_INTERVAL", "REQUEST_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_TIMEOUT", time.Second*30)
	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("JWT_EXPIRATION", time.Hour*24*7)
	v.SetDefault("PUZZLE_PREFIX", "puzzles/")
	v.SetDefault("PUZZLE_DIR", "./puzzles")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("LETTER_POINTS", 10)
	v.SetDefault("WORD_BONUS", 20)
	v.SetDefault("HINT_ALLOWANCE", 3)
	v.SetDefault("RACK_SIZE", 7)
	v.SetDefault("COOLDOWN_WINDOW", time.Hour*24)
	v.SetDefault("COOLDOWN_MIDNIGHT_RESET", false)
	v.SetDefault("COOLDOWN_TIMEZONE", "UTC")
	v.SetDefault("SERVER_URL", "http://localhost:8080")
	v.SetDefault("POLL_INTERVAL", time.Second*5)
	v.SetDefault("POLL_MAX_INTERVAL", time.Minute)
	v.SetDefault("REQUEST_TIMEOUT", time.Second*10)
}

func read() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables take precedence
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK if we're using env vars
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return config, nil
}

// Load reads the server configuration.
func Load() (*Config, error) {
	config, err := read()
	if err != nil {
		return nil, err
	}

	// Validate required fields
	switch config.DatabaseDriver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite, DriverMySQL:
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", config.DatabaseDriver)
	}
	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if config.SMTPHost != "" && config.MailFrom == "" {
		return nil, fmt.Errorf("MAIL_FROM is required when SMTP_HOST is set")
	}
	if _, err := config.Location(); err != nil {
		return nil, err
	}
	if _, err := config.PairSeeds(); err != nil {
		return nil, err
	}
	if _, err := config.EmailAddresses(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadClient reads the sync client configuration.
func LoadClient() (*Config, error) {
	config, err := read()
	if err != nil {
		return nil, err
	}
	if config.ServerURL == "" {
		return nil, fmt.Errorf("SERVER_URL is required")
	}
	if config.AccessToken == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN is required")
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location resolves COOLDOWN_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.CooldownTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid COOLDOWN_TIMEZONE: %w", err)
	}
	return loc, nil
}

type PairSeed struct {
	ID      string
	PlayerA string
	PlayerB string
}

var errMalformedList = errors.New("expected comma separated key=value entries")

// PairSeeds parses PAIRS, a list of id=playerA:playerB entries.
func (c *Config) PairSeeds() ([]PairSeed, error) {
	entries, err := parseList(c.Pairs)
	if err != nil {
		return nil, fmt.Errorf("invalid PAIRS: %w", err)
	}
	seeds := make([]PairSeed, 0, len(entries))
	for _, e := range entries {
		a, b, ok := strings.Cut(e.value, ":")
		if !ok || a == "" || b == "" || a == b {
			return nil, fmt.Errorf("invalid PAIRS entry %q: expected id=playerA:playerB", e.key)
		}
		seeds = append(seeds, PairSeed{ID: e.key, PlayerA: a, PlayerB: b})
	}
	return seeds, nil
}

// EmailAddresses parses PLAYER_EMAILS, a list of player=address entries.
func (c *Config) EmailAddresses() (map[string]string, error) {
	entries, err := parseList(c.PlayerEmails)
	if err != nil {
		return nil, fmt.Errorf("invalid PLAYER_EMAILS: %w", err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.key] = e.value
	}
	return out, nil
}

type entry struct {
	key   string
	value string
}

func parseList(s string) ([]entry, error) {
	var out []entry
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, errMalformedList
		}
		out = append(out, entry{key: k, value: v})
	}
	return out, nil
}
