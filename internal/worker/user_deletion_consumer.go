package worker

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

// UserDeletionHandler は削除されたユーザーのイベントを一括削除する
type UserDeletionHandler interface {
	OnRemoteUserDeleted(ctx context.Context, userID int64) (int64, error)
}

// UserDeletionConsumer はユーザー削除通知の配信を処理する
type UserDeletionConsumer struct {
	handler UserDeletionHandler
}

func NewUserDeletionConsumer(h UserDeletionHandler) *UserDeletionConsumer {
	return &UserDeletionConsumer{handler: h}
}

// Handle はメッセージ本文のユーザーIDを解釈して連鎖削除を行う
// 本文が不正な場合は notification.ErrInvalidPayload を返す
func (c *UserDeletionConsumer) Handle(ctx context.Context, d amqp.Delivery) error {
	userID, err := notification.ParseID(d.Body)
	if err != nil {
		logger.Warn("ユーザー削除通知の本文が不正です",
			zap.String("message_id", d.MessageId),
			zap.ByteString("body", d.Body),
		)
		return err
	}

	if _, err := c.handler.OnRemoteUserDeleted(ctx, userID); err != nil {
		logger.Error("ユーザー削除通知の処理に失敗しました",
			zap.Int64("user_id", userID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		return err
	}
	return nil
}
