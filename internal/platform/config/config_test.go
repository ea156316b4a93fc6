package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ADDR", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, time.Hour, cfg.HolidayRefreshInterval)
	assert.True(t, cfg.RunMigrations)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("HOLIDAY_REFRESH_INTERVAL", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pay.example.com, ,https://admin.example.com")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.EmailEnabled)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, 15*time.Minute, cfg.HolidayRefreshInterval)
	assert.Equal(t, []string{"https://pay.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := Config{
		JWTSecret:          "dev-secret",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 10,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid development config", mutate: func(*Config) {}},
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "short production secret", mutate: func(c *Config) {
			c.Environment = "production"
			c.DatabaseURL = "postgres://db"
		}, wantErr: true},
		{name: "production without database", mutate: func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, wantErr: true},
		{name: "production ok", mutate: func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
			c.DatabaseURL = "postgres://db"
		}},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "email without host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
