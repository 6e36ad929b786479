package userclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/event-sphere-org/event-service/internal/config"
	"github.com/event-sphere-org/event-service/internal/domain/user"
	"github.com/event-sphere-org/event-service/internal/pkg/apperror"
)

func newTestClient(url string) *Client {
	return NewClient(&config.UserServiceConfig{
		BaseURL:    url,
		Timeout:    200 * time.Millisecond,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
}

func TestClient_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("ユーザーを取得できる", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/user/7", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":7,"username":"alice","email":"alice@example.com","firstName":"Alice","lastName":"Smith"}`))
		}))
		defer srv.Close()

		u, err := newTestClient(srv.URL + "/").FindByID(ctx, 7)

		require.NoError(t, err)
		assert.Equal(t, &user.User{ID: 7, Username: "alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Smith"}, u)
	})

	t.Run("404 は ReferenceNotFound で再試行しない", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FindByID(ctx, 7)

		assert.ErrorIs(t, err, user.ErrUserNotFound)
		assert.Equal(t, apperror.ReferenceNotFound, apperror.KindOf(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("その他の 4xx も ReferenceNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FindByID(ctx, 7)
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("5xx の後に成功すれば結果を返す", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"id":7,"username":"alice"}`))
		}))
		defer srv.Close()

		u, err := newTestClient(srv.URL).FindByID(ctx, 7)

		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("再試行後も 5xx なら RemoteUnavailable", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FindByID(ctx, 7)

		assert.ErrorIs(t, err, user.ErrUserServiceUnavailable)
		assert.Equal(t, apperror.RemoteUnavailable, apperror.KindOf(err))
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("タイムアウトは RemoteUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FindByID(ctx, 7)
		assert.ErrorIs(t, err, user.ErrUserServiceUnavailable)
	})

	t.Run("接続できなければ RemoteUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestClient(url).FindByID(ctx, 7)
		assert.ErrorIs(t, err, user.ErrUserServiceUnavailable)
	})

	t.Run("不正な応答本文は ReferenceNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FindByID(ctx, 7)
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})
}
