package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

// Connection は AMQP 接続のラッパー
type Connection struct {
	URL  string
	Conn *amqp.Connection
}

// Connect はリトライ付きで RabbitMQ に接続する
func Connect(ctx context.Context, url string, attempts int, delay time.Duration) (*Connection, error) {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("RabbitMQに接続しました", zap.Int("attempt", i))
			return &Connection{URL: url, Conn: conn}, nil
		}
		logger.Warn("RabbitMQへの接続に失敗、リトライします",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%d回試行してもRabbitMQに接続できませんでした: %w", attempts, err)
}

// Channel は新しいチャネルを開く
func (c *Connection) Channel() (*amqp.Channel, error) {
	return c.Conn.Channel()
}

// Close は接続を閉じる
func (c *Connection) Close() error {
	if c.Conn != nil && !c.Conn.IsClosed() {
		return c.Conn.Close()
	}
	return nil
}

// declareExchange はトピックエクスチェンジを宣言する（冪等）
func declareExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}
