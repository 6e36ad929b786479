package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/event-sphere-org/event-service/internal/domain/notification"
	"github.com/event-sphere-org/event-service/internal/pkg/logger"
)

// messageWriter は kafka.Writer のうち送信に使う部分
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher は削除通知を Kafka のトピックへ送信する
// トピック名はルーティングキーと同じ、メッセージキーは識別子
type Publisher struct {
	writer  messageWriter
	topics  notification.RoutingKeys
	timeout time.Duration
}

// NewPublisher は Kafka 用の Publisher を作成する
func NewPublisher(brokers []string, topics notification.RoutingKeys, timeout time.Duration) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("Kafka のブローカーが1つ以上必要です")
	}
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}, topics, timeout), nil
}

func newPublisher(w messageWriter, topics notification.RoutingKeys, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{writer: w, topics: topics, timeout: timeout}
}

// Publish は通知を送信し、全レプリカの書き込み完了まで待つ
func (p *Publisher) Publish(ctx context.Context, n notification.Notification) error {
	topic, err := p.topics.For(n.Kind)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(n.ID, 10)),
		Value: n.Payload(),
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", notification.ErrPublishFailed, topic, err)
	}

	logger.Debug("削除通知を送信しました", zap.String("topic", topic), zap.Int64("id", n.ID))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ notification.Publisher = (*Publisher)(nil)
