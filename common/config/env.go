package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/checkin-web/common/logger"
)

// LoadEnv loads .env files into the process environment. Variables that
// are already set win over the file.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			logger.WithError(err).Warn("Failed to load %s", f)
			continue
		}
		logger.Info("Loaded environment from %s", f)
	}
}

// GetEnv returns the variable or def when unset or blank.
func GetEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	v := GetEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func GetEnvBool(key string, def bool) bool {
	v := GetEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetEnvDuration accepts a Go duration ("5s") or a bare number of seconds.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := GetEnv(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

// PublicBaseURL is the origin used to build share links, without a trailing slash.
func PublicBaseURL() string {
	return strings.TrimRight(GetEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/")
}

// CookieSecure reports whether cookies get the Secure attribute.
func CookieSecure() bool {
	return GetEnvBool("COOKIE_SECURE", false)
}
