package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DBDriver      string // postgres, mongo or memory
	DBConn        string
	MongoURI      string
	MongoDatabase string

	JWTSecret  string
	JWTExpire  time.Duration
	BcryptCost int

	AdminUsername string
	AdminPassword string

	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SenderEmail    string
	OTPTTL         time.Duration
	OTPMaxAttempts int

	StorageDriver   string // local or s3
	UploadDir       string
	UploadURLPrefix string
	MaxUploadSize   int64
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3UsePathStyle  bool
	S3PublicURL     string

	CORSOrigins           []string
	RateLimitRPM          int
	RateLimitBurst        int
	TrustedProxies        []netip.Prefix
	HousekeepingSchedule  string
	AdsUpdateRequireImage bool
	MyAdsEmptyNotFound    bool
	PublicBaseURL         string
	ShutdownTimeout       time.Duration
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	jwtExpire, err := parseExpire(getEnv("JWT_EXPIRE", "30d"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRE is invalid: %w", err)
	}
	trustedProxies, err := parsePrefixes(splitList(getEnv("TRUSTED_PROXIES", "")))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES is invalid: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5432 user=adboard password=adboard dbname=adboard sslmode=disable"),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "adboard"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTExpire:  jwtExpire,
		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USER", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", getEnv("SMTP_USER", "")),
		OTPTTL:         getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		UploadDir:       getEnv("UPLOAD_DIR", "public/uploads"),
		UploadURLPrefix: strings.TrimRight(getEnv("UPLOAD_URL_PREFIX", "/uploads"), "/"),
		MaxUploadSize:   int64(getEnvInt("MAX_UPLOAD_SIZE", 5<<20)),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3UsePathStyle:  getEnvBool("S3_USE_PATH_STYLE", true),
		S3PublicURL:     strings.TrimRight(getEnv("S3_PUBLIC_URL", ""), "/"),

		CORSOrigins:           splitList(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:          getEnvInt("RATE_LIMIT_RPM", 20),
		RateLimitBurst:        getEnvInt("RATE_LIMIT_BURST", 5),
		TrustedProxies:        trustedProxies,
		HousekeepingSchedule:  getEnv("HOUSEKEEPING_SCHEDULE", "@every 1h"),
		AdsUpdateRequireImage: getEnvBool("ADS_UPDATE_REQUIRE_IMAGE", false),
		MyAdsEmptyNotFound:    getEnvBool("MY_ADS_EMPTY_NOT_FOUND", false),
		PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		ShutdownTimeout:       getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
	case "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, mongo, memory, got %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTExpire <= 0 {
		return fmt.Errorf("JWT_EXPIRE must be positive")
	}
	if c.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	switch c.StorageDriver {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be local or s3, got %q", c.StorageDriver)
	}
	return nil
}

// parseExpire accepts Go durations ("12h") and whole days ("30d").
func parseExpire(v string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}

// parsePrefixes accepts CIDR ranges and bare addresses
func parsePrefixes(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		if !strings.Contains(v, "/") {
			addr, err := netip.ParseAddr(v)
			if err != nil {
				return nil, err
			}
			out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
