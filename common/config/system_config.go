package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/checkin-web/common/logger"
)

// SystemConfig holds the client-side tunables that are not secrets.
// Read from config/system_config.json; every field has a default.
type SystemConfig struct {
	// Repeat scans of the same QR token inside this window are dropped.
	ScanCooldownSeconds int `json:"scanCooldownSeconds"`

	// Minimum number of phone digits accepted on the reservation form.
	PhoneMinLength int `json:"phoneMinLength"`

	// Fallback for the signup countdown when the API sends no expiry.
	VerificationExpirySeconds int `json:"verificationExpirySeconds"`

	CarouselIntervalSeconds int `json:"carouselIntervalSeconds"`
	TicketRefreshSeconds    int `json:"ticketRefreshSeconds"`

	// Pixel size of the ticket QR PNG.
	QRSize int `json:"qrSize"`
}

var (
	globalConfig *SystemConfig
	configMutex  sync.RWMutex
	configPath   = "config/system_config.json"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *SystemConfig {
	return &SystemConfig{
		ScanCooldownSeconds:       3,
		PhoneMinLength:            10,
		VerificationExpirySeconds: 180,
		CarouselIntervalSeconds:   5,
		TicketRefreshSeconds:      30,
		QRSize:                    300,
	}
}

// LoadConfig reads system_config.json once. A missing or broken file
// falls back to defaults; out-of-range values are reset individually.
func LoadConfig() *SystemConfig {
	configMutex.RLock()
	if globalConfig != nil {
		configMutex.RUnlock()
		return globalConfig
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	if globalConfig != nil {
		return globalConfig
	}

	cfg := DefaultConfig()

	possiblePaths := []string{
		GetEnv("SYSTEM_CONFIG_PATH", configPath),
		filepath.Join(".", configPath),
		filepath.Join("..", configPath),
	}

	var data []byte
	var err error
	for _, path := range possiblePaths {
		data, err = os.ReadFile(path)
		if err == nil {
			if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
				logger.WithError(jsonErr).Warn("Failed to parse config from %s, using defaults", path)
				cfg = DefaultConfig()
			} else {
				logger.Info("Loaded system config from %s", path)
			}
			break
		}
	}
	if err != nil {
		logger.Warn("System config not found, using defaults")
	}

	cfg.Normalize()
	globalConfig = cfg
	return globalConfig
}

// Normalize resets any value outside its accepted range to the default.
func (c *SystemConfig) Normalize() {
	d := DefaultConfig()
	clamp := func(v *int, min, max, def int) {
		if *v < min || *v > max {
			*v = def
		}
	}
	clamp(&c.ScanCooldownSeconds, 1, 60, d.ScanCooldownSeconds)
	clamp(&c.PhoneMinLength, 4, 11, d.PhoneMinLength)
	clamp(&c.VerificationExpirySeconds, 30, 1800, d.VerificationExpirySeconds)
	clamp(&c.CarouselIntervalSeconds, 1, 60, d.CarouselIntervalSeconds)
	clamp(&c.TicketRefreshSeconds, 5, 600, d.TicketRefreshSeconds)
	clamp(&c.QRSize, 128, 1024, d.QRSize)
}

// GetConfig returns the current configuration (thread-safe)
func GetConfig() *SystemConfig {
	return LoadConfig()
}

// SetConfig replaces the global configuration. Used by tests and by
// main when a file path is passed explicitly.
func SetConfig(cfg *SystemConfig) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Normalize()
	configMutex.Lock()
	globalConfig = cfg
	configMutex.Unlock()
}

func (c *SystemConfig) ScanCooldown() time.Duration {
	return time.Duration(c.ScanCooldownSeconds) * time.Second
}

func (c *SystemConfig) VerificationExpiry() time.Duration {
	return time.Duration(c.VerificationExpirySeconds) * time.Second
}
