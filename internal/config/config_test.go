package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := NewConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "postgres", cfg.DBDriver)
	require.Equal(t, 30*24*time.Hour, cfg.JWTExpire)
	require.Equal(t, 10, cfg.BcryptCost)
	require.Equal(t, "/uploads", cfg.UploadURLPrefix)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.False(t, cfg.AdsUpdateRequireImage)
	require.False(t, cfg.MyAdsEmptyNotFound)
	require.Equal(t, 5, cfg.OTPMaxAttempts)
	require.Empty(t, cfg.TrustedProxies)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_EXPIRE", "90m")
	t.Setenv("DB_DRIVER", "MEMORY")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ADS_UPDATE_REQUIRE_IMAGE", "true")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	cfg, err := NewConfig()
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, cfg.JWTExpire)
	require.Equal(t, "memory", cfg.DBDriver)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.True(t, cfg.AdsUpdateRequireImage)
	require.Equal(t, 5*time.Minute, cfg.OTPTTL)
	require.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.10/32"),
	}, cfg.TrustedProxies)
}

func TestNewConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"bad expire", map[string]string{"JWT_SECRET": "s", "JWT_EXPIRE": "soon"}, "JWT_EXPIRE is invalid"},
		{"mongo without uri", map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "mongo"}, "MONGO_URI is required"},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "oracle"}, "DB_DRIVER must be one of"},
		{"s3 without bucket", map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "s3"}, "S3_BUCKET is required"},
		{"bad proxy", map[string]string{"JWT_SECRET": "s", "TRUSTED_PROXIES": "10.0.0.0/99"}, "TRUSTED_PROXIES is invalid"},
		{"zero otp attempts", map[string]string{"JWT_SECRET": "s", "OTP_MAX_ATTEMPTS": "0"}, "OTP_MAX_ATTEMPTS must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewConfig()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseExpire(t *testing.T) {
	d, err := parseExpire("2d")
	require.NoError(t, err)
	require.Equal(t, 48*time.Hour, d)

	d, err = parseExpire("15m")
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, d)

	_, err = parseExpire("xd")
	require.Error(t, err)
}
