package notification

import "github.com/event-sphere-org/event-service/internal/pkg/apperror"

var (
	ErrUnknownKind    = apperror.New(apperror.Internal, "ルーティングキーが設定されていない通知種別です")
	ErrInvalidPayload = apperror.New(apperror.NotValid, "通知メッセージの識別子が不正です")
	ErrOutboxNotFound = apperror.New(apperror.NotFound, "アウトボックスエントリが見つかりません")
	ErrPublishFailed  = apperror.New(apperror.RemoteUnavailable, "削除通知の送信に失敗しました")
)
