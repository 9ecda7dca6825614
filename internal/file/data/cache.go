package data

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const revalidateChannel = "revalidate"

// RedisRevalidator drops the cached rendered view for a path and broadcasts
// the path on a pub/sub channel so frontend workers re-render it.
type RedisRevalidator struct {
	client *redis.Client
}

func NewRedisRevalidator(client *redis.Client) *RedisRevalidator {
	return &RedisRevalidator{client: client}
}

func (r *RedisRevalidator) Revalidate(ctx context.Context, path string) error {
	if err := r.client.Del(ctx, viewKey(path)).Err(); err != nil {
		return fmt.Errorf("failed to drop cached view: %w", err)
	}
	if err := r.client.Publish(ctx, revalidateChannel, path).Err(); err != nil {
		return fmt.Errorf("failed to publish revalidation: %w", err)
	}
	return nil
}

func viewKey(path string) string {
	return fmt.Sprintf("view:%s", path)
}
