package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/port"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TopicSource is the Kafka inbound transport. Poll fetches one message
// with a bounded timeout; Ack commits its offset to the consumer group.
type TopicSource struct {
	reader      *kafkago.Reader
	topic       string
	pollTimeout time.Duration
	logger      *zap.Logger
}

type SourceConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string // "earliest" or "latest"
	PollTimeout time.Duration
}

func NewTopicSource(cfg SourceConfig, logger *zap.Logger) *TopicSource {
	start := kafkago.FirstOffset
	if cfg.StartOffset == "latest" {
		start = kafkago.LastOffset
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: start,
	})

	logger.Info("kafka source initialized",
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
	)

	return &TopicSource{
		reader:      reader,
		topic:       cfg.Topic,
		pollTimeout: cfg.PollTimeout,
		logger:      logger,
	}
}

func (s *TopicSource) Poll(ctx context.Context) (*port.Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()

	msg, err := s.reader.FetchMessage(pollCtx)
	if err != nil {
		// A timed-out fetch is an empty poll, not a broker failure.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, err
	}

	return &port.Message{Body: msg.Value, Handle: msg}, nil
}

func (s *TopicSource) Ack(ctx context.Context, m *port.Message) error {
	msg, ok := m.Handle.(kafkago.Message)
	if !ok {
		return fmt.Errorf("ack: message does not belong to this source")
	}
	if err := s.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("commit offset: %w", err)
	}
	return nil
}

// Nack is a no-op for Kafka: an uncommitted offset is redelivered when the
// group rebalances or the process restarts.
func (s *TopicSource) Nack(ctx context.Context, m *port.Message) error {
	return nil
}

func (s *TopicSource) Classify(err error) port.ErrorClass {
	switch {
	case err == nil:
		return port.ErrClassOther
	case errors.Is(err, context.Canceled), errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
		return port.ErrClassFatal
	}

	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		switch {
		case kerr == kafkago.UnknownTopicOrPartition:
			return port.ErrClassMissingDestination
		case kerr == kafkago.OffsetOutOfRange:
			return port.ErrClassEndOfStream
		case kerr.Temporary():
			return port.ErrClassTransient
		}
		return port.ErrClassOther
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return port.ErrClassTransient
	}

	return port.ErrClassOther
}

func (s *TopicSource) Close() error {
	return s.reader.Close()
}
