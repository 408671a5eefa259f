package cache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is shared by the server (writer) and the SSH and MCP processes
// (readers). It stays nil until InitRedis succeeds.
var Client *redis.Client

var (
	newRedisClient = redis.NewClient
	pingRedis      = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
)

// InitRedis connects Client. addr is either host:port or a redis:// or
// rediss:// URL; empty means localhost:6379.
func InitRedis(ctx context.Context, addr string) error {
	opts, err := redisOptions(addr)
	if err != nil {
		return err
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}
	Client = client
	log.Printf("Connected to Redis at %s (db %d)", opts.Addr, opts.DB)
	return nil
}

// Close releases Client. Safe to call when InitRedis never succeeded.
func Close() {
	if Client == nil {
		return
	}
	if err := Client.Close(); err != nil {
		log.Printf("Warning: closing redis client: %v", err)
	}
	Client = nil
}

func redisOptions(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = "localhost:6379"
	}
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = dialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = ioTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = ioTimeout
	}
	return opts, nil
}
