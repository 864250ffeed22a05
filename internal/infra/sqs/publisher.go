package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// Publisher sends terminal-state notifications to the notifications queue.
type Publisher struct {
	client   *awssqs.Client
	queueURL string
	logger   *zap.Logger
}

func NewPublisher(client *awssqs.Client, queueURL string, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, n entity.StatusNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	out, err := p.client.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	p.logger.Info("notification published",
		zap.String("status", n.Status),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}

// Close is a no-op: SendMessage is synchronous, nothing is buffered.
func (p *Publisher) Close() error {
	return nil
}
