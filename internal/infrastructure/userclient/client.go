package userclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/config"
	"github.com/event-sphere-org/event-service/internal/domain/user"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

// maxBodySize はユーザー応答として読み込む最大バイト数
const maxBodySize = 1 << 20

// errRetryable は再試行で回復しうる失敗（通信エラー、5xx）
var errRetryable = errors.New("再試行可能なエラー")

// Client はユーザーサービスの HTTP クライアント
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewClient は設定からクライアントを作成する
func NewClient(cfg *config.UserServiceConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{},
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// FindByID はユーザーを取得する
// 存在しない・応答を解釈できない場合は ErrUserNotFound、
// 再試行しても到達できない場合は ErrUserServiceUnavailable を返す
func (c *Client) FindByID(ctx context.Context, id int64) (*user.User, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", user.ErrUserServiceUnavailable, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}

		u, err := c.fetch(ctx, id)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, errRetryable) {
			return nil, err
		}
		lastErr = err
		logger.Warn("ユーザーサービスの呼び出しに失敗しました",
			zap.Int64("user_id", id),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %v", user.ErrUserServiceUnavailable, lastErr)
}

func (c *Client) fetch(ctx context.Context, id int64) (*user.User, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/v1/user/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, user.ErrUserNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", user.ErrUserNotFound, resp.StatusCode)
	}

	var u user.User
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: 応答の解析に失敗: %v", user.ErrUserNotFound, err)
	}
	if u.ID == 0 {
		u.ID = id
	}
	return &u, nil
}

var _ user.Lookup = (*Client)(nil)
