package user

import (
	"errors"

	"github.com/event-sphere-org/event-service/internal/pkg/apperror"
)

var (
	// ErrUserNotFound はユーザーサービスが存在しないと応答した、または応答を解釈できなかった
	ErrUserNotFound = apperror.New(apperror.ReferenceNotFound, "ユーザーが見つかりません")
	// ErrUserServiceUnavailable はリトライ後もユーザーサービスに到達できなかった
	ErrUserServiceUnavailable = apperror.New(apperror.RemoteUnavailable, "ユーザーサービスに接続できません")

	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)
