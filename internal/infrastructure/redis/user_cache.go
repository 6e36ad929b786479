package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/event-sphere-org/event-service/internal/domain/user"
)

// UserCache はユーザーサービスから取得したユーザー射影をキャッシュする
type UserCache struct {
	client *redis.Client
}

// NewUserCache は新しいUserCacheインスタンスを作成する
func NewUserCache(client *redis.Client) *UserCache {
	return &UserCache{client: client}
}

// Get はユーザーをキャッシュから取得する
func (c *UserCache) Get(ctx context.Context, id int64) (*user.User, error) {
	raw, err := c.client.Get(ctx, c.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, user.ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}

	var u user.User
	if err := json.Unmarshal(raw, &u); err != nil {
		// 壊れたエントリはミス扱いにして再取得させる
		_ = c.client.Del(ctx, c.userKey(id)).Err()
		return nil, user.ErrCacheMiss
	}
	return &u, nil
}

// Set はユーザーをキャッシュに保存する
func (c *UserCache) Set(ctx context.Context, u *user.User, ttl time.Duration) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("キャッシュのシリアライズに失敗: %w", err)
	}
	if err := c.client.Set(ctx, c.userKey(u.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はユーザーのキャッシュを無効化する
func (c *UserCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, c.userKey(id)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *UserCache) userKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

var _ user.Cache = (*UserCache)(nil)
