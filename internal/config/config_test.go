package config_test

import (
	"testing"
	"time"

	"github.com/coachly/autoscheduler/internal/config"
	"github.com/stretchr/testify/require"
)

// clearEnv изолирует тест от окружения машины
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_DSN", "ENV", "MIGRATIONS_PATH", "SCHEDULING_INTERVAL",
		"TELEGRAM_TOKEN", "TELEGRAM_ADMIN_CHAT_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_RequiresDBDSN(t *testing.T) {
	clearEnv(t)

	_, err := config.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DB_DSN")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DSN", "postgres://localhost:5432/coachly")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "migrations", cfg.MigrationsPath)
	require.Equal(t, 60*time.Second, cfg.SchedulingInterval)
	require.False(t, cfg.NotificationsEnabled())
}

func TestLoad_CustomInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DSN", "postgres://localhost:5432/coachly")
	t.Setenv("SCHEDULING_INTERVAL", "300")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.SchedulingInterval)
}

func TestLoad_InvalidInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DSN", "postgres://localhost:5432/coachly")

	for _, raw := range []string{"abc", "0", "-5"} {
		t.Setenv("SCHEDULING_INTERVAL", raw)
		_, err := config.Load()
		require.Error(t, err, "interval %q must be rejected", raw)
	}
}

func TestLoad_TelegramSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DSN", "postgres://localhost:5432/coachly")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "-100200300")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.True(t, cfg.NotificationsEnabled())
	require.Equal(t, int64(-100200300), cfg.TelegramAdminChat)

	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "not-a-number")
	_, err = config.Load()
	require.Error(t, err)
}
