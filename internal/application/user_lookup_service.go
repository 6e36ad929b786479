package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/domain/user"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
	"github.com/event-sphere-org/event-service/internal/pkg/metrics"
)

const (
	lookupResultCached      = "cached"
	lookupResultFound       = "found"
	lookupResultNotFound    = "not_found"
	lookupResultUnavailable = "unavailable"
)

// UserLookupService はユーザーサービスへの問い合わせの前段にキャッシュを置く
// キャッシュが使えない場合はユーザーサービスに直接問い合わせる
type UserLookupService struct {
	remote  user.Lookup
	cache   user.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

var _ user.Lookup = (*UserLookupService)(nil)

func NewUserLookupService(remote user.Lookup, cache user.Cache, ttl time.Duration, m *metrics.Metrics) *UserLookupService {
	return &UserLookupService{remote: remote, cache: cache, ttl: ttl, metrics: m}
}

func (s *UserLookupService) FindByID(ctx context.Context, id int64) (*user.User, error) {
	started := time.Now()

	if s.cache != nil {
		u, err := s.cache.Get(ctx, id)
		if err == nil {
			s.metrics.ObserveUserLookup(lookupResultCached, started)
			return u, nil
		}
		if !errors.Is(err, user.ErrCacheMiss) {
			logger.Warn("ユーザーキャッシュの取得に失敗しました", zap.Int64("user_id", id), zap.Error(err))
		}
	}

	u, err := s.remote.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.metrics.ObserveUserLookup(lookupResultNotFound, started)
		} else {
			s.metrics.ObserveUserLookup(lookupResultUnavailable, started)
		}
		return nil, err
	}
	s.metrics.ObserveUserLookup(lookupResultFound, started)

	if s.cache != nil {
		if err := s.cache.Set(ctx, u, s.ttl); err != nil {
			logger.Warn("ユーザーキャッシュの保存に失敗しました", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	return u, nil
}
