package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/application"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

// NotificationRelayer はアウトボックスの中継と掃除を行うインターフェース
type NotificationRelayer interface {
	RelayPending(ctx context.Context) (application.RelayResult, error)
	Cleanup(ctx context.Context) (int64, error)
}

// OutboxRelay はアウトボックスの削除通知を定期的にブローカーへ送るワーカー
type OutboxRelay struct {
	relayer         NotificationRelayer
	interval        time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
	stopCh          chan struct{}
	doneCh          chan struct{}
}

// NewOutboxRelay は新しいワーカーを作成
func NewOutboxRelay(r NotificationRelayer, interval, cleanupInterval time.Duration) *OutboxRelay {
	return &OutboxRelay{
		relayer:         r,
		interval:        interval,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start はワーカーを開始
func (w *OutboxRelay) Start(ctx context.Context) {
	logger.Info("アウトボックス中継開始",
		zap.Duration("interval", w.interval),
		zap.Duration("cleanup_interval", w.cleanupInterval),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("アウトボックス中継停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("アウトボックス中継停止（シグナル受信）")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// Stop はワーカーを停止
func (w *OutboxRelay) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *OutboxRelay) tick(ctx context.Context) {
	w.relay(ctx)

	if w.cleanupInterval <= 0 {
		return
	}
	if now := w.now(); now.Sub(w.lastCleanup) >= w.cleanupInterval {
		w.lastCleanup = now
		w.cleanup(ctx)
	}
}

func (w *OutboxRelay) relay(ctx context.Context) {
	result, err := w.relayer.RelayPending(ctx)
	if err != nil {
		logger.Error("アウトボックス中継失敗", zap.Error(err))
		return
	}
	if result.Sent+result.Retried+result.Dead == 0 {
		logger.Debug("送信待ちの削除通知なし")
	}
}

func (w *OutboxRelay) cleanup(ctx context.Context) {
	if _, err := w.relayer.Cleanup(ctx); err != nil {
		logger.Error("送信済みアウトボックスの掃除失敗", zap.Error(err))
	}
}
