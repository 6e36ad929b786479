package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/config"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

const pingTimeout = 5 * time.Second

// NewConnection はPostgreSQLへ接続する
// DB がまだ起動していない場合に備え、ConnectAttempts 回まで ConnectRetryDelay 間隔で再試行する
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := connectOnce(ctx, cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err
		if i == attempts {
			break
		}
		logger.Warn("データベース接続に失敗しました。再試行します",
			zap.Int("attempt", i),
			zap.Duration("retry_in", cfg.ConnectRetryDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.ConnectRetryDelay):
		}
	}
	return nil, fmt.Errorf("データベース接続に失敗しました（%d回試行）: %w", attempts, lastErr)
}

func connectOnce(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(pingCtx, "postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	// イベント/カテゴリの CRUD と連鎖削除しか流れないので小さめのプール
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns / 4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Ping はヘルスチェック用に接続を確認する
func Ping(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}
