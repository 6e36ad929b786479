package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

// ConsumerConfig はコンシューマーの設定
type ConsumerConfig struct {
	Exchange     string
	QueueName    string
	DLQName      string
	RoutingKeys  []string
	ConsumerName string
}

// MessageHandler は配信されたメッセージを処理する
// nil を返すと ack、エラーを返すと再配送または DLQ 行きになる
type MessageHandler func(ctx context.Context, d amqp.Delivery) error

type disposition int

const (
	dispositionAck disposition = iota
	dispositionRequeue
	dispositionDeadLetter
)

// dispositionFor は処理結果からメッセージの扱いを決める
// 不正なメッセージは即座に DLQ へ、それ以外の失敗は一度だけ再配送する
func dispositionFor(err error, redelivered bool) disposition {
	switch {
	case err == nil:
		return dispositionAck
	case errors.Is(err, notification.ErrInvalidPayload):
		return dispositionDeadLetter
	case redelivered:
		return dispositionDeadLetter
	default:
		return dispositionRequeue
	}
}

// Consumer はキューを購読し、メッセージをハンドラーに渡す
type Consumer struct {
	conn    *Connection
	cfg     ConsumerConfig
	handler MessageHandler

	ch     *amqp.Channel
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(conn *Connection, cfg ConsumerConfig, handler MessageHandler) *Consumer {
	return &Consumer{conn: conn, cfg: cfg, handler: handler}
}

// Start はキュー（本体 + DLQ）を宣言してバインドし、購読を開始する
func (c *Consumer) Start(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("チャネルのオープンに失敗: %w", err)
	}
	if err := c.declare(ch); err != nil {
		_ = ch.Close()
		return err
	}

	// 1件ずつ処理する
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("prefetch 設定に失敗: %w", err)
	}

	msgs, err := ch.Consume(
		c.cfg.QueueName,
		c.cfg.ConsumerName,
		false, // auto-ack しない
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("購読開始に失敗: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.ch = ch
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for d := range msgs {
			c.handleDelivery(runCtx, d)
		}
	}()

	logger.Info("コンシューマーを開始しました",
		zap.String("consumer", c.cfg.ConsumerName),
		zap.String("queue", c.cfg.QueueName),
		zap.Strings("routing_keys", c.cfg.RoutingKeys),
	)
	return nil
}

func (c *Consumer) declare(ch *amqp.Channel) error {
	if err := declareExchange(ch, c.cfg.Exchange); err != nil {
		return fmt.Errorf("エクスチェンジ宣言に失敗: %w", err)
	}

	if _, err := ch.QueueDeclare(c.cfg.DLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("DLQ宣言に失敗: %w", err)
	}

	// nack(requeue=false) されたメッセージはデフォルトエクスチェンジ経由で DLQ に送られる
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": c.cfg.DLQName,
	}
	if _, err := ch.QueueDeclare(c.cfg.QueueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("キュー宣言に失敗: %w", err)
	}

	for _, key := range c.cfg.RoutingKeys {
		if err := ch.QueueBind(c.cfg.QueueName, key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("キューのバインドに失敗 (%s): %w", key, err)
		}
	}
	return nil
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	log := logger.With(
		zap.String("consumer", c.cfg.ConsumerName),
		zap.String("routing_key", d.RoutingKey),
		zap.String("message_id", d.MessageId),
		zap.Bool("redelivered", d.Redelivered),
	)

	err := c.handler(ctx, d)

	var settleErr error
	switch dispositionFor(err, d.Redelivered) {
	case dispositionAck:
		settleErr = d.Ack(false)
	case dispositionRequeue:
		log.Warn("メッセージ処理に失敗、再配送します", zap.Error(err))
		settleErr = d.Nack(false, true)
	case dispositionDeadLetter:
		log.Error("メッセージ処理に失敗、DLQへ送ります", zap.Error(err))
		settleErr = d.Nack(false, false)
	}
	if settleErr != nil {
		log.Error("ack/nack に失敗しました", zap.Error(settleErr))
	}
}

// Stop は購読を止め、処理中のメッセージが終わるのを待つ
func (c *Consumer) Stop() error {
	if c.ch == nil {
		return nil
	}
	if err := c.ch.Cancel(c.cfg.ConsumerName, false); err != nil {
		logger.Warn("購読のキャンセルに失敗しました", zap.Error(err))
	}
	c.wg.Wait()
	c.cancel()
	logger.Info("コンシューマーを停止しました", zap.String("consumer", c.cfg.ConsumerName))
	return c.ch.Close()
}
