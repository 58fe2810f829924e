package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions 는 redis:// 또는 rediss:// URL 을 go-redis 옵션으로 바꾼다.
// rediss 는 TLS, 사용자명은 ACL 계정으로 쓰인다. 타임아웃이 비어 있으면 기본값을 채운다.
func RedisOptions(rawURL string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 3 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	return opts, nil
}

// CacheService 는 JSON 직렬화 값을 TTL 과 함께 보관한다.
// Get 은 키가 없으면 에러 없이 dest 를 그대로 둔다.
type CacheService struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheService 는 URL 로 연결하고 ping 으로 확인한다.
func NewCacheService(redisURL string, logger *zap.Logger) (*CacheService, error) {
	opts, err := RedisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewCacheServiceFromClient(rdb, logger), nil
}

func NewCacheServiceFromClient(rdb *redis.Client, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{client: rdb, logger: logger}
}

// Client 는 같은 연결을 공유하려는 컴포넌트(PvP 등)를 위해 노출한다.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

func (c *CacheService) Get(ctx context.Context, key string, dest any) error {
	if c == nil || c.client == nil {
		return errors.New("cache not initialized")
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("cache_decode_failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return errors.New("cache not initialized")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *CacheService) Del(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil {
		return errors.New("cache not initialized")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}

func (c *CacheService) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
