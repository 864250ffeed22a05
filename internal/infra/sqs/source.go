package sqs

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/port"
	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// QueueSource is the SQS inbound transport. Poll long-polls the queue;
// Ack deletes the message, and an unacked message becomes visible again
// after the visibility timeout.
type QueueSource struct {
	client   *awssqs.Client
	queueURL string
	logger   *zap.Logger

	waitSeconds       int32
	visibilityTimeout int32
}

func NewQueueSource(client *awssqs.Client, queueURL string, logger *zap.Logger) *QueueSource {
	logger.Info("sqs source initialized", zap.String("queue_url", queueURL))
	return &QueueSource{
		client:            client,
		queueURL:          queueURL,
		logger:            logger,
		waitSeconds:       20,
		visibilityTimeout: 60,
	}
}

func (s *QueueSource) Poll(ctx context.Context) (*port.Message, error) {
	out, err := s.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     s.waitSeconds,
		VisibilityTimeout:   s.visibilityTimeout,
	})
	if err != nil {
		return nil, err
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	msg := out.Messages[0]
	return &port.Message{
		Body:   []byte(aws.ToString(msg.Body)),
		Handle: aws.ToString(msg.ReceiptHandle),
	}, nil
}

func (s *QueueSource) Ack(ctx context.Context, m *port.Message) error {
	receipt, ok := m.Handle.(string)
	if !ok {
		return fmt.Errorf("ack: message does not belong to this source")
	}
	_, err := s.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// Nack is a no-op: the message becomes visible again once the visibility
// timeout lapses.
func (s *QueueSource) Nack(ctx context.Context, m *port.Message) error {
	return nil
}

func (s *QueueSource) Classify(err error) port.ErrorClass {
	switch {
	case err == nil:
		return port.ErrClassOther
	case errors.Is(err, context.Canceled):
		return port.ErrClassFatal
	}

	var notExist *types.QueueDoesNotExist
	if errors.As(err, &notExist) {
		return port.ErrClassMissingDestination
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == "AWS.SimpleQueueService.NonExistentQueue" {
			return port.ErrClassMissingDestination
		}
		return port.ErrClassOther
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return port.ErrClassTransient
	}

	return port.ErrClassTransient
}

func (s *QueueSource) Close() error {
	return nil
}
