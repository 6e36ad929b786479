package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/event-sphere-org/event-service/internal/application"
)

// MockRelayer はNotificationRelayerのモック
type MockRelayer struct {
	mock.Mock
}

func (m *MockRelayer) RelayPending(ctx context.Context) (application.RelayResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(application.RelayResult), args.Error(1)
}

func (m *MockRelayer) Cleanup(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestNewOutboxRelay(t *testing.T) {
	relayer := new(MockRelayer)

	w := NewOutboxRelay(relayer, 2*time.Second, time.Hour)

	assert.NotNil(t, w)
	assert.Equal(t, 2*time.Second, w.interval)
	assert.Equal(t, time.Hour, w.cleanupInterval)
	assert.NotNil(t, w.stopCh)
	assert.NotNil(t, w.doneCh)
}

func TestOutboxRelay_Tick(t *testing.T) {
	t.Run("中継し、掃除間隔が経過していれば掃除する", func(t *testing.T) {
		relayer := new(MockRelayer)
		relayer.On("RelayPending", mock.Anything).Return(application.RelayResult{Sent: 2}, nil).Twice()
		relayer.On("Cleanup", mock.Anything).Return(int64(3), nil).Once()

		now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
		w := NewOutboxRelay(relayer, time.Second, time.Hour)
		w.now = func() time.Time { return now }

		w.tick(context.Background())
		now = now.Add(time.Minute)
		w.tick(context.Background())

		relayer.AssertExpectations(t)
		relayer.AssertNumberOfCalls(t, "Cleanup", 1)
	})

	t.Run("掃除間隔が0なら掃除しない", func(t *testing.T) {
		relayer := new(MockRelayer)
		relayer.On("RelayPending", mock.Anything).Return(application.RelayResult{}, nil)

		w := NewOutboxRelay(relayer, time.Second, 0)
		w.tick(context.Background())

		relayer.AssertNotCalled(t, "Cleanup", mock.Anything)
	})

	t.Run("中継の失敗でも掃除は行う", func(t *testing.T) {
		relayer := new(MockRelayer)
		relayer.On("RelayPending", mock.Anything).Return(application.RelayResult{}, errors.New("db down"))
		relayer.On("Cleanup", mock.Anything).Return(int64(0), errors.New("redis down"))

		w := NewOutboxRelay(relayer, time.Second, time.Minute)
		w.tick(context.Background())

		relayer.AssertExpectations(t)
	})
}

func TestOutboxRelay_StartStop(t *testing.T) {
	t.Run("Stop で停止する", func(t *testing.T) {
		relayer := new(MockRelayer)
		relayer.On("RelayPending", mock.Anything).Return(application.RelayResult{}, nil).Maybe()
		relayer.On("Cleanup", mock.Anything).Return(int64(0), nil).Maybe()

		w := NewOutboxRelay(relayer, 10*time.Millisecond, time.Hour)
		go w.Start(context.Background())

		time.Sleep(35 * time.Millisecond)

		done := make(chan struct{})
		go func() {
			w.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("ワーカーが停止しない")
		}
	})

	t.Run("コンテキストのキャンセルで停止する", func(t *testing.T) {
		relayer := new(MockRelayer)
		ctx, cancel := context.WithCancel(context.Background())

		w := NewOutboxRelay(relayer, time.Hour, 0)
		go w.Start(ctx)
		cancel()

		select {
		case <-w.doneCh:
		case <-time.After(time.Second):
			t.Fatal("ワーカーが停止しない")
		}
		relayer.AssertNotCalled(t, "RelayPending", mock.Anything)
	})
}
