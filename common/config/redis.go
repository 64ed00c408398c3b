package config

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/checkin-web/common/logger"
)

// NewRedisClient builds a client from REDIS_ADDR, or REDIS_HOST and
// REDIS_PORT, plus REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
// Returns nil when Redis is not configured or does not answer a ping; the
// caller then keeps its state in process memory.
func NewRedisClient() *redis.Client {
	addr := GetEnv("REDIS_ADDR", "")
	host, port := GetEnv("REDIS_HOST", ""), GetEnv("REDIS_PORT", "6379")
	if host != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		return nil
	}

	var tlsConf *tls.Config
	if tlsEnv := GetEnv("REDIS_TLS", ""); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  GetEnv("REDIS_PASSWORD", ""),
		DB:        GetEnvInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis at %s unreachable, falling back to memory", addr)
		_ = client.Close()
		return nil
	}

	logger.Info("Connected to Redis at %s", addr)
	return client
}
