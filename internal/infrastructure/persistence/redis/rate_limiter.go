package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// RateLimiter 滑动窗口限流器，多实例共享计数
type RateLimiter struct {
	client *Client
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow 判断是否放行，同时返回窗口内剩余配额
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	key = l.client.Key(key)
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_ms", window.Milliseconds()),
	)
	defer span.End()

	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()

	pipe := l.client.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return false, 0, fmt.Errorf("failed to read rate limit window: %w", err)
	}

	count := int(countCmd.Val())
	span.SetAttributes(attribute.Int("ratelimit.current_count", count))
	if count >= limit {
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		return false, 0, nil
	}

	pipe = l.client.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: strconv.FormatInt(now, 10) + "-" + uuid.NewString(),
	})
	pipe.Expire(ctx, key, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return false, 0, fmt.Errorf("failed to record request: %w", err)
	}

	span.SetAttributes(attribute.Bool("ratelimit.allowed", true))
	return true, limit - count - 1, nil
}

// BuildRateLimitKey 构建限流键
func BuildRateLimitKey(tenantID, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", tenantID, endpoint)
}
