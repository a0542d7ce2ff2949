package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(NewViper())
	require.NoError(t, err)

	assert.Equal(t, "8099", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 3, cfg.Tutor.MaxAttempts)
	assert.Equal(t, 20, cfg.Tutor.ContextMessages)
	assert.Equal(t, "1000", cfg.Wallet.WithdrawalLimit().String())
	assert.Empty(t, cfg.Events.Broker)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:dev.db")
	t.Setenv("MONITOR_INTERVAL", "5s")
	t.Setenv("EVENTS_BROKER", "nats")

	cfg, err := FromViper(NewViper())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:dev.db", cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, "nats", cfg.Events.Broker)
}

func TestFromViper_RejectsUnknownDriver(t *testing.T) {
	v := NewViper()
	v.Set("database.driver", "oracle")

	_, err := FromViper(v)
	assert.Error(t, err)
}

func TestFromViper_RejectsNonNumericLimit(t *testing.T) {
	v := NewViper()
	v.Set("wallet.default_withdrawal_limit", "lots")

	_, err := FromViper(v)
	assert.Error(t, err)
}
