package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/event-sphere-org/event-service/internal/config"
)

// キャッシュとジョブロックは失敗してもDBにフォールバックできるので短めに切る
const (
	dialTimeout = 2 * time.Second
	ioTimeout   = 500 * time.Millisecond
)

// NewClient はユーザーキャッシュとジョブロックが共有するクライアントを作成する
// 接続確認は行わない。起動時に Redis が落ちていてもサービスは動かす
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})
}

// Ping はヘルスチェック用に疎通を確認する
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis に到達できません (%s): %w", client.Options().Addr, err)
	}
	return nil
}
