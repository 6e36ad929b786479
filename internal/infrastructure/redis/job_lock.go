package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに実行する
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// JobLock は複数インスタンスのうち一つだけが定期ジョブを実行するためのロック
type JobLock struct {
	client *redis.Client
}

func NewJobLock(client *redis.Client) *JobLock {
	return &JobLock{client: client}
}

// TryRun はロックを取得できた場合のみ fn を実行する
// 他のインスタンスが実行中なら fn を呼ばずに false を返す
func (l *JobLock) TryRun(ctx context.Context, job string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	key := l.lockKey(job)
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return false, nil
	}

	runErr := fn(ctx)

	released, err := releaseScript.Run(ctx, l.client, []string{key}, owner).Int()
	if err != nil {
		return true, errors.Join(runErr, fmt.Errorf("ロック解放に失敗: %w", err))
	}
	if released == 0 {
		// TTL 切れで他のインスタンスに渡っている
		return true, errors.Join(runErr, ErrLockNotOwned)
	}
	return true, runErr
}

func (l *JobLock) lockKey(job string) string {
	return fmt.Sprintf("lock:job:%s", job)
}
