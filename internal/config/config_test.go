package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NATOURS_SECURITY_JWTSECRET", "dev-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 90*24*time.Hour, cfg.Security.JWTTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.CookieTTL())
	assert.Equal(t, 10*time.Minute, cfg.Security.ResetTokenTTL)
	assert.Equal(t, "maildrop", cfg.Mail.Transport)
	assert.Equal(t, "mail:outbound", cfg.Mail.Stream)
	assert.Equal(t, 30*time.Second, cfg.Mail.ClaimInterval)
	assert.Equal(t, ":9091", cfg.Mail.MetricsAddr)
	assert.Equal(t, int64(5), cfg.Mail.MaxDeliveries)
	assert.Equal(t, "@every 1m", cfg.Security.SweepSchedule)
	assert.False(t, cfg.Security.RevealUnknownEmail)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NATOURS_SECURITY_JWTSECRET", "dev-secret")
	t.Setenv("NATOURS_SECURITY_RESETTOKENTTL", "15m")
	t.Setenv("NATOURS_SECURITY_REVEALUNKNOWNEMAIL", "true")
	t.Setenv("NATOURS_HTTP_PORT", "9090")
	t.Setenv("NATOURS_HTTP_PUBLICURL", "https://natours.dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Security.ResetTokenTTL)
	assert.True(t, cfg.Security.RevealUnknownEmail)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "https://natours.dev", cfg.HTTP.PublicURL)
}

func TestLoadRequiresSecret(t *testing.T) {

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security.jwtsecret is required")
}

func validConfig() AppConfig {
	return AppConfig{
		Environment: "development",
		HTTP:        HTTPConfig{PublicURL: "http://localhost:8080"},
		Security: SecurityConfig{
			JWTSecret:     "secret",
			JWTTTL:        time.Hour,
			CookieTTLDays: 90,
			ResetTokenTTL: 10 * time.Minute,
		},
		Mail: MailConfig{Transport: "maildrop"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "short production secret", mutate: func(c *AppConfig) { c.Environment = EnvironmentProduction }, wantErr: "at least 32 bytes"},
		{name: "zero jwt ttl", mutate: func(c *AppConfig) { c.Security.JWTTTL = 0 }, wantErr: "jwtttl"},
		{name: "zero cookie ttl", mutate: func(c *AppConfig) { c.Security.CookieTTLDays = 0 }, wantErr: "cookiettldays"},
		{name: "negative reset ttl", mutate: func(c *AppConfig) { c.Security.ResetTokenTTL = -time.Second }, wantErr: "resettokenttl"},
		{name: "unknown transport", mutate: func(c *AppConfig) { c.Mail.Transport = "pigeon" }, wantErr: "mail.transport"},
		{name: "smtp without host", mutate: func(c *AppConfig) { c.Mail.Transport = "smtp" }, wantErr: "mail.smtp.host"},
		{name: "missing public url", mutate: func(c *AppConfig) { c.HTTP.PublicURL = "" }, wantErr: "http.publicurl"},
		{name: "relative public url", mutate: func(c *AppConfig) { c.HTTP.PublicURL = "natours.dev/app" }, wantErr: "http.publicurl"},
		{name: "maildrop in production", mutate: func(c *AppConfig) {
			c.Environment = EnvironmentProduction
			c.Security.JWTSecret = strings.Repeat("k", 32)
			c.AllowCORSOrigins = []string{"https://natours.dev"}
		}, wantErr: "maildrop"},
		{name: "open cors in production", mutate: func(c *AppConfig) {
			c.Environment = EnvironmentProduction
			c.Security.JWTSecret = strings.Repeat("k", 32)
			c.Mail.Transport = "smtp"
			c.Mail.SMTP.Host = "smtp.natours.dev"
		}, wantErr: "allowcorsorigins"},
		{name: "valid production", mutate: func(c *AppConfig) {
			c.Environment = EnvironmentProduction
			c.HTTP.PublicURL = "https://natours.dev"
			c.Security.JWTSecret = strings.Repeat("k", 32)
			c.AllowCORSOrigins = []string{"https://natours.dev"}
			c.Mail.Transport = "smtp"
			c.Mail.SMTP.Host = "smtp.natours.dev"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
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
