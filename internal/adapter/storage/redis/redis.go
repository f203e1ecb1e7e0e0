package redis

import (
	"context"
	"fmt"
	"time"

	"nfc-wallet/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces every key this service writes.
const keyPrefix = "nfcw:"

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 2 * time.Second
	pingTimeout = 5 * time.Second
)

// NewClient opens a Redis client and pings it once. Redis holds only
// caches and counters, so short I/O timeouts keep a slow node off the
// request path.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis ready")

	return client, nil
}
