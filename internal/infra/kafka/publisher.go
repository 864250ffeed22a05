package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes terminal-state notifications to the output topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: writer, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, n entity.StatusNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{Value: body}); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	p.logger.Info("notification published",
		zap.String("status", n.Status),
		zap.String("topic", p.writer.Topic),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
