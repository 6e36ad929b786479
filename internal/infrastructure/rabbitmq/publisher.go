package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

var errNacked = errors.New("ブローカーがメッセージを受理しませんでした")

// publishFunc はメッセージを送信し、ブローカーの受理確認まで待つ
type publishFunc func(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error

// Publisher は削除通知をトピックエクスチェンジへ送信する
type Publisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	publish  publishFunc
	exchange string
	keys     notification.RoutingKeys
	timeout  time.Duration
}

// NewPublisher はチャネルを開き、エクスチェンジを宣言して publisher confirm を有効にする
func NewPublisher(conn *Connection, exchange string, keys notification.RoutingKeys, timeout time.Duration) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("チャネルのオープンに失敗: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("エクスチェンジ宣言に失敗: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("publisher confirm の有効化に失敗: %w", err)
	}

	p := newPublisher(exchange, keys, timeout, confirmedPublish(ch))
	p.channel = ch
	return p, nil
}

func newPublisher(exchange string, keys notification.RoutingKeys, timeout time.Duration, publish publishFunc) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{
		publish:  publish,
		exchange: exchange,
		keys:     keys,
		timeout:  timeout,
	}
}

func confirmedPublish(ch *amqp.Channel) publishFunc {
	return func(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
		dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, msg)
		if err != nil {
			return err
		}
		if dc == nil {
			return nil
		}
		acked, err := dc.WaitContext(ctx)
		if err != nil {
			return err
		}
		if !acked {
			return errNacked
		}
		return nil
	}
}

// Publish は通知を送信し、ブローカーが受理するまで待つ
func (p *Publisher) Publish(ctx context.Context, n notification.Notification) error {
	routingKey, err := p.keys.For(n.Kind)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := buildPublishing(n)

	// チャネルはスレッドセーフではないため直列化する
	p.mu.Lock()
	err = p.publish(ctx, p.exchange, routingKey, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", notification.ErrPublishFailed, routingKey, err)
	}

	logger.Debug("削除通知を送信しました",
		zap.String("routing_key", routingKey),
		zap.Int64("id", n.ID),
		zap.String("message_id", msg.MessageId),
	)
	return nil
}

func buildPublishing(n notification.Notification) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Body:         n.Payload(),
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}
}

// Close はチャネルを閉じる
func (p *Publisher) Close() error {
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel.Close()
	}
	return nil
}

var _ notification.Publisher = (*Publisher)(nil)
