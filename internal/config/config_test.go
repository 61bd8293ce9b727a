package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OUTLOOK_CLIENT_ID", "client-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "http://127.0.0.1:8000/notifications", cfg.CallbackURL())
	assert.Equal(t, 60*time.Minute, cfg.RenewMargin())
	assert.Equal(t, 5*time.Minute, cfg.PollInterval())
	assert.Equal(t, 167*time.Hour, cfg.SubscriptionLifetime)
	assert.Equal(t, []string{"Bloomberg"}, cfg.TargetFolders)
	assert.Equal(t, []string{"Mail.Read", "User.Read", "offline_access"}, cfg.Scopes)
	assert.Equal(t, "emails", cfg.StoreEmailTable)
	assert.False(t, cfg.AlertsEnabled())
}

func TestLoadRequiresClientID(t *testing.T) {
	t.Setenv("OUTLOOK_CLIENT_ID", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OUTLOOK_CLIENT_ID", "client-123")
	t.Setenv("PUBLIC_BASE_URL", "https://hooks.example.com/")
	t.Setenv("TARGET_FOLDERS", "Bloomberg, Shuchuang ,")
	t.Setenv("RENEW_MARGIN_MINUTES", "90")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ALERT_CHAT_ID", "-100500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/notifications", cfg.CallbackURL())
	assert.Equal(t, []string{"Bloomberg", "Shuchuang"}, cfg.TargetFolders)
	assert.Equal(t, 90*time.Minute, cfg.RenewMargin())
	assert.True(t, cfg.AlertsEnabled())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"table injection", "STORE_EMAIL_TABLE", "emails; DROP TABLE x"},
		{"zero margin", "RENEW_MARGIN_MINUTES", "0"},
		{"zero poll interval", "POLL_INTERVAL_MINUTES", "0"},
		{"same categories", "CATEGORY_ATTACHMENT", "bloomberg"},
		{"unknown cache backend", "TOKEN_CACHE_BACKEND", "redis"},
		{"lifetime below margin", "SUBSCRIPTION_LIFETIME", "30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OUTLOOK_CLIENT_ID", "client-123")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
