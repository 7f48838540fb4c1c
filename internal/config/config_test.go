package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-sufficiently-long-test-secret")
	t.Setenv("ADMIN_EMAIL", "Admin@Cardmint.io ")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 5*time.Minute, cfg.OTP.Expiry)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTokenExpiry)
	assert.Equal(t, "noop", cfg.Notify.Provider)
}

func TestLoad_NormalizesAdminEmail(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin@cardmint.io", cfg.Admin.Email)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingAdminEmail(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_EMAIL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_WeakJWTSecretInProduction(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_SESProviderRequiresFromAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTIFY_PROVIDER", "ses")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("NOTIFY_FROM_ADDRESS", "no-reply@cardmint.io")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ses", cfg.Notify.Provider)
}

func TestLoad_SMTPProviderDefaultsFromAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTIFY_PROVIDER", "smtp")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USER", "mailer@cardmint.io")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mailer@cardmint.io", cfg.Notify.FromAddress)
}

func TestLoad_UnknownNotifyProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTIFY_PROVIDER", "pigeon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_TrustedProxiesParsed(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.0/12"}, cfg.Server.TrustedProxies)
}

func TestLoad_EnvDurationOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OTP_EXPIRY", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.OTP.Expiry)
}
