package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/pkg/metrics"
)

func claimedEntry(id int64, kind notification.Kind, entityID int64) *notification.OutboxEntry {
	e := notification.NewOutboxEntry(notification.Deleted(kind, entityID))
	e.ID = id
	e.Status = notification.OutboxStatusProcessing
	return e
}

func TestNotificationRelayService_RelayPending(t *testing.T) {
	ctx := context.Background()

	t.Run("送信できたエントリは sent、失敗は failed になる", func(t *testing.T) {
		outbox, publisher := new(MockOutboxRepository), new(MockPublisher)
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		ok := claimedEntry(1, notification.KindEvent, 5)
		ng := claimedEntry(2, notification.KindCategory, 1)

		outbox.On("ClaimDue", ctx, mock.AnythingOfType("time.Time"), 10).Return([]*notification.OutboxEntry{ok, ng}, nil)
		publisher.On("Publish", ctx, notification.Deleted(notification.KindEvent, 5)).Return(nil)
		publisher.On("Publish", ctx, notification.Deleted(notification.KindCategory, 1)).Return(notification.ErrPublishFailed)
		outbox.On("Update", ctx, mock.Anything).Return(nil).Twice()

		result, err := NewNotificationRelayService(outbox, publisher, m, 10, time.Hour, nil).RelayPending(ctx)

		require.NoError(t, err)
		assert.Equal(t, RelayResult{Sent: 1, Retried: 1}, result)
		assert.Equal(t, notification.OutboxStatusSent, ok.Status)
		assert.Equal(t, notification.OutboxStatusFailed, ng.Status)
		assert.Equal(t, 1, ng.RetryCount)
		assert.NotNil(t, ng.NextRetryAt)
		assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxBacklog))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxRelayedTotal.WithLabelValues(metrics.ResultPublished)))
		outbox.AssertExpectations(t)
	})

	t.Run("リトライ上限に達したエントリは dead になる", func(t *testing.T) {
		outbox, publisher := new(MockOutboxRepository), new(MockPublisher)
		e := claimedEntry(3, notification.KindEvent, 9)
		e.RetryCount = e.MaxRetries - 1

		outbox.On("ClaimDue", ctx, mock.Anything, 100).Return([]*notification.OutboxEntry{e}, nil)
		publisher.On("Publish", ctx, mock.Anything).Return(notification.ErrPublishFailed)
		outbox.On("Update", ctx, e).Return(nil)

		result, err := NewNotificationRelayService(outbox, publisher, nil, 0, time.Hour, nil).RelayPending(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Dead)
		assert.True(t, e.IsDead())
	})

	t.Run("状態更新の失敗は処理を止めない", func(t *testing.T) {
		outbox, publisher := new(MockOutboxRepository), new(MockPublisher)
		a, b := claimedEntry(1, notification.KindEvent, 1), claimedEntry(2, notification.KindEvent, 2)

		outbox.On("ClaimDue", ctx, mock.Anything, 100).Return([]*notification.OutboxEntry{a, b}, nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)
		outbox.On("Update", ctx, a).Return(errors.New("db down"))
		outbox.On("Update", ctx, b).Return(nil)

		result, err := NewNotificationRelayService(outbox, publisher, nil, 100, time.Hour, nil).RelayPending(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Sent)
		publisher.AssertNumberOfCalls(t, "Publish", 2)
	})

	t.Run("取得に失敗したらエラー", func(t *testing.T) {
		outbox, publisher := new(MockOutboxRepository), new(MockPublisher)
		outbox.On("ClaimDue", ctx, mock.Anything, 100).Return(nil, errors.New("db down"))

		_, err := NewNotificationRelayService(outbox, publisher, nil, 100, time.Hour, nil).RelayPending(ctx)

		assert.Error(t, err)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("キャンセルされたら残りを送信しない", func(t *testing.T) {
		outbox, publisher := new(MockOutboxRepository), new(MockPublisher)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		outbox.On("ClaimDue", cctx, mock.Anything, 100).Return([]*notification.OutboxEntry{claimedEntry(1, notification.KindEvent, 1)}, nil)

		_, err := NewNotificationRelayService(outbox, publisher, nil, 100, time.Hour, nil).RelayPending(cctx)

		assert.ErrorIs(t, err, context.Canceled)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestNotificationRelayService_Cleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	t.Run("保持期間より古い送信済みエントリを削除する", func(t *testing.T) {
		outbox := new(MockOutboxRepository)
		outbox.On("DeleteSentBefore", ctx, now.Add(-24*time.Hour)).Return(int64(4), nil)

		s := NewNotificationRelayService(outbox, new(MockPublisher), nil, 100, 24*time.Hour, nil)
		s.now = func() time.Time { return now }
		deleted, err := s.Cleanup(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(4), deleted)
	})

	t.Run("ロックを取得できたときだけ削除する", func(t *testing.T) {
		outbox, lock := new(MockOutboxRepository), new(MockJobRunner)
		lock.On("TryRun", ctx, "outbox-cleanup", time.Minute).Return(true, nil)
		outbox.On("DeleteSentBefore", ctx, mock.Anything).Return(int64(2), nil)

		deleted, err := NewNotificationRelayService(outbox, new(MockPublisher), nil, 100, time.Hour, lock).Cleanup(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)
	})

	t.Run("他のインスタンスが実行中なら何もしない", func(t *testing.T) {
		outbox, lock := new(MockOutboxRepository), new(MockJobRunner)
		lock.On("TryRun", ctx, "outbox-cleanup", time.Minute).Return(false, nil)

		deleted, err := NewNotificationRelayService(outbox, new(MockPublisher), nil, 100, time.Hour, lock).Cleanup(ctx)

		require.NoError(t, err)
		assert.Zero(t, deleted)
		outbox.AssertNotCalled(t, "DeleteSentBefore", mock.Anything, mock.Anything)
	})
}
