package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
	"github.com/event-sphere-org/event-service/internal/pkg/metrics"
)

const (
	outboxCleanupJob     = "outbox-cleanup"
	outboxCleanupLockTTL = time.Minute
)

// JobRunner は複数インスタンスのうち1つだけでジョブを実行する
type JobRunner interface {
	TryRun(ctx context.Context, job string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

// NotificationRelayService はアウトボックスに溜まった削除通知をブローカーへ送信する
type NotificationRelayService struct {
	outboxRepo notification.OutboxRepository
	publisher  notification.Publisher
	metrics    *metrics.Metrics
	batchSize  int
	retention  time.Duration
	lock       JobRunner
	now        func() time.Time
}

func NewNotificationRelayService(
	outboxRepo notification.OutboxRepository,
	publisher notification.Publisher,
	m *metrics.Metrics,
	batchSize int,
	retention time.Duration,
	lock JobRunner,
) *NotificationRelayService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &NotificationRelayService{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		metrics:    m,
		batchSize:  batchSize,
		retention:  retention,
		lock:       lock,
		now:        time.Now,
	}
}

// RelayResult は1回の送信処理の結果
type RelayResult struct {
	Sent    int
	Retried int
	Dead    int
}

// RelayPending は送信期限の来たエントリを取得して送信する
func (s *NotificationRelayService) RelayPending(ctx context.Context) (RelayResult, error) {
	var result RelayResult

	entries, err := s.outboxRepo.ClaimDue(ctx, s.now(), s.batchSize)
	if err != nil {
		return result, fmt.Errorf("アウトボックスの取得に失敗: %w", err)
	}
	s.metrics.SetOutboxBacklog(len(entries))

	for _, entry := range entries {
		if ctx.Err() != nil {
			// 未処理のエントリは processing のまま残り、一定時間後に再取得される
			return result, ctx.Err()
		}

		log := logger.With(
			zap.Int64("outbox_id", entry.ID),
			zap.String("kind", string(entry.Kind)),
			zap.Int64("id", entry.EntityID),
		)

		if err := s.publisher.Publish(ctx, entry.Notification()); err != nil {
			entry.MarkFailed(err.Error())
			if entry.IsDead() {
				result.Dead++
				s.metrics.ObserveOutbox(string(notification.OutboxStatusDead))
				log.Error("削除通知の送信がリトライ上限に達しました", zap.Int("retry_count", entry.RetryCount), zap.Error(err))
			} else {
				result.Retried++
				s.metrics.ObserveOutbox(metrics.ResultFailed)
				log.Warn("削除通知の送信に失敗しました。再試行します", zap.Int("retry_count", entry.RetryCount), zap.Error(err))
			}
		} else {
			entry.MarkSent()
			result.Sent++
			s.metrics.ObserveOutbox(metrics.ResultPublished)
		}

		if err := s.outboxRepo.Update(ctx, entry); err != nil {
			log.Error("アウトボックスの状態更新に失敗しました", zap.Error(err))
		}
	}

	if len(entries) > 0 {
		logger.Info("アウトボックスを処理しました",
			zap.Int("sent", result.Sent),
			zap.Int("retried", result.Retried),
			zap.Int("dead", result.Dead),
		)
	}
	return result, nil
}

// Cleanup は保持期間を過ぎた送信済みエントリを削除する
// ロックが設定されている場合は他のインスタンスが実行中なら何もしない
func (s *NotificationRelayService) Cleanup(ctx context.Context) (int64, error) {
	var deleted int64
	run := func(ctx context.Context) error {
		n, err := s.outboxRepo.DeleteSentBefore(ctx, s.now().Add(-s.retention))
		if err != nil {
			return fmt.Errorf("送信済みアウトボックスの削除に失敗: %w", err)
		}
		deleted = n
		return nil
	}

	if s.lock == nil {
		err := run(ctx)
		return deleted, err
	}

	ran, err := s.lock.TryRun(ctx, outboxCleanupJob, outboxCleanupLockTTL, run)
	if err != nil {
		return 0, err
	}
	if !ran {
		logger.Debug("他のインスタンスがアウトボックスを掃除中です")
		return 0, nil
	}
	if deleted > 0 {
		logger.Info("送信済みアウトボックスを削除しました", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
