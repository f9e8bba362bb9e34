package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"DATABASE_DRIVER": "memory",
		"JWT_SECRET":      "secret",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 10, cfg.LetterPoints)
	assert.Equal(t, 20, cfg.WordBonus)
	assert.Equal(t, 3, cfg.HintAllowance)
	assert.Equal(t, 7, cfg.RackSize)
	assert.Equal(t, 24*time.Hour, cfg.CooldownWindow)
	assert.False(t, cfg.CooldownMidnightReset)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Minute, cfg.PollMaxInterval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	setEnv(t, map[string]string{
		"ENVIRONMENT":             "production",
		"DATABASE_DRIVER":         "sqlite3",
		"DATABASE_URL":            "file:linked.db",
		"JWT_SECRET":              "secret",
		"COOLDOWN_WINDOW":         "12h",
		"COOLDOWN_MIDNIGHT_RESET": "true",
		"COOLDOWN_TIMEZONE":       "Europe/Berlin",
		"RACK_SIZE":               "5",
		"PAIRS":                   "pair-1=alice:bob, pair-2=carol:dave",
		"PLAYER_EMAILS":           "alice=alice@example.com",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "file:linked.db", cfg.DatabaseURL)
	assert.Equal(t, 12*time.Hour, cfg.CooldownWindow)
	assert.True(t, cfg.CooldownMidnightReset)
	assert.Equal(t, 5, cfg.RackSize)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	seeds, err := cfg.PairSeeds()
	require.NoError(t, err)
	assert.Equal(t, []PairSeed{
		{ID: "pair-1", PlayerA: "alice", PlayerB: "bob"},
		{ID: "pair-2", PlayerA: "carol", PlayerB: "dave"},
	}, seeds)

	emails, err := cfg.EmailAddresses()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "alice@example.com"}, emails)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing jwt secret", map[string]string{"DATABASE_DRIVER": "memory"}, "JWT_SECRET"},
		{"missing database url", map[string]string{"JWT_SECRET": "s"}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "DATABASE_DRIVER": "oracle"}, "DATABASE_DRIVER"},
		{"smtp without sender", map[string]string{"JWT_SECRET": "s", "DATABASE_DRIVER": "memory", "SMTP_HOST": "smtp.example.com"}, "MAIL_FROM"},
		{"bad timezone", map[string]string{"JWT_SECRET": "s", "DATABASE_DRIVER": "memory", "COOLDOWN_TIMEZONE": "Mars/Olympus"}, "COOLDOWN_TIMEZONE"},
		{"bad pair", map[string]string{"JWT_SECRET": "s", "DATABASE_DRIVER": "memory", "PAIRS": "pair-1=alice"}, "PAIRS"},
		{"self pair", map[string]string{"JWT_SECRET": "s", "DATABASE_DRIVER": "memory", "PAIRS": "pair-1=alice:alice"}, "PAIRS"},
		{"bad emails", map[string]string{"JWT_SECRET": "s", "DATABASE_DRIVER": "memory", "PLAYER_EMAILS": "alice"}, "PLAYER_EMAILS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadClient(t *testing.T) {
	setEnv(t, map[string]string{"ACCESS_TOKEN": "token", "SNAPSHOT_DIR": "/tmp/linked"})
	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, "/tmp/linked", cfg.SnapshotDir)

	setEnv(t, nil)
	_, err = LoadClient()
	assert.ErrorContains(t, err, "ACCESS_TOKEN")
}
