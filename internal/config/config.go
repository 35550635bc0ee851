package config

import (
	"os"
	"strconv"
	"time"

	"ohmage/internal/domain"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AppName    string
	AppVersion string
	AppBuild   string

	AuthTokenLifetimeSeconds  int
	AuthzTokenLifetimeSeconds int
	AuthzCodeLifetimeSeconds  int
	BcryptCost                int

	AdmissionPolicyBundle string

	RateLimitRequests       int
	RateLimitWindowSeconds  int
	RateLimitIncludeSubject bool
	RateLimitFailClosed     bool
	RateLimitMaxKeys        int
	RateLimitSubjectMaxLen  int
	RateLimitSubjectHash    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                  addr,
		PostgresDSN:               os.Getenv("POSTGRES_DSN"),
		LogLevel:                  envDefault("LOG_LEVEL", "info"),
		AppName:                   envDefault("APP_NAME", "ohmage"),
		AppVersion:                envDefault("APP_VERSION", "3.0.0"),
		AppBuild:                  envDefault("APP_BUILD", "dev"),
		AuthTokenLifetimeSeconds:  envIntDefault("AUTH_TOKEN_LIFETIME_SECONDS", 86400),
		AuthzTokenLifetimeSeconds: envIntDefault("AUTHZ_TOKEN_LIFETIME_SECONDS", 3600),
		AuthzCodeLifetimeSeconds:  envIntDefault("AUTHZ_CODE_LIFETIME_SECONDS", 600),
		BcryptCost:                envIntDefault("BCRYPT_COST", 10),
		AdmissionPolicyBundle:     os.Getenv("ADMISSION_POLICY_BUNDLE"),
		RateLimitRequests:         envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:    envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitIncludeSubject:   envBoolDefault("RATE_LIMIT_INCLUDE_SUBJECT", false),
		RateLimitFailClosed:       envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:          envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RateLimitSubjectMaxLen:    envIntDefault("RATE_LIMIT_SUBJECT_MAX_LEN", 128),
		RateLimitSubjectHash:      envBoolDefault("RATE_LIMIT_SUBJECT_HASH", false),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) AuthTokenLifetime() time.Duration {
	return time.Duration(c.AuthTokenLifetimeSeconds) * time.Second
}

func (c Config) AuthzTokenLifetime() time.Duration {
	return time.Duration(c.AuthzTokenLifetimeSeconds) * time.Second
}

func (c Config) AuthzCodeLifetime() time.Duration {
	return time.Duration(c.AuthzCodeLifetimeSeconds) * time.Second
}

// ServerConfig is the public application document this deployment serves.
func (c Config) ServerConfig() domain.ServerConfig {
	return domain.ServerConfig{
		AppName:            c.AppName,
		AppVersion:         c.AppVersion,
		AppBuild:           c.AppBuild,
		AuthTokenLifetime:  c.AuthTokenLifetime(),
		AuthzTokenLifetime: c.AuthzTokenLifetime(),
	}
}
