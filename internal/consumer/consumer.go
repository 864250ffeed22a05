package consumer

import (
	"context"
	"time"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/dispatcher"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/port"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/metrics"
	"go.uber.org/zap"
)

// Config tunes the consumer's retry policy. Zero values fall back to the
// defaults the transport layer was designed around: fixed (not exponential)
// cooldowns, since the loop is idle while it waits.
type Config struct {
	AckMode port.AckMode

	// TransientCooldown: wait before re-polling after a broker outage.
	TransientCooldown time.Duration
	// MissingCooldown: wait between polls while the destination is absent.
	MissingCooldown time.Duration
	// OtherCooldown: wait after an unclassified broker error.
	OtherCooldown time.Duration
	// MaxMissingWarnings: warnings logged before going quiet about a
	// missing destination.
	MaxMissingWarnings int
	// AckTimeout bounds each acknowledgment call.
	AckTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.TransientCooldown <= 0 {
		c.TransientCooldown = 10 * time.Second
	}
	if c.MissingCooldown <= 0 {
		c.MissingCooldown = 5 * time.Second
	}
	if c.OtherCooldown <= 0 {
		c.OtherCooldown = 5 * time.Second
	}
	if c.MaxMissingWarnings <= 0 {
		c.MaxMissingWarnings = 5
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 10 * time.Second
	}
}

// Consumer owns the inbound message for its lifetime: it polls, classifies
// broker failures, drops poison messages, and decides when a message counts
// as consumed according to the configured acknowledgment mode. Item-level
// processing never blocks the poll loop; it runs on the dispatcher.
type Consumer struct {
	source port.InboundSource
	disp   *dispatcher.Dispatcher
	cfg    Config
	logger *zap.Logger
}

func New(source port.InboundSource, disp *dispatcher.Dispatcher, cfg Config, logger *zap.Logger) *Consumer {
	cfg.applyDefaults()
	return &Consumer{
		source: source,
		disp:   disp,
		cfg:    cfg,
		logger: logger,
	}
}

// Run polls until ctx is cancelled or the source fails fatally. Broker
// errors are retried forever; they never terminate the process.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started, waiting for messages")

	missingWarnings := 0

	for {
		if ctx.Err() != nil {
			c.logger.Info("consumer stopping")
			return nil
		}

		msg, err := c.source.Poll(ctx)
		if err != nil {
			switch c.source.Classify(err) {
			case port.ErrClassFatal:
				if ctx.Err() != nil {
					c.logger.Info("consumer stopping")
					return nil
				}
				c.logger.Error("source failed fatally", zap.Error(err))
				return err
			case port.ErrClassTransient:
				c.logger.Error("broker unreachable, retrying",
					zap.Duration("cooldown", c.cfg.TransientCooldown),
					zap.Error(err),
				)
				c.sleep(ctx, c.cfg.TransientCooldown)
			case port.ErrClassMissingDestination:
				missingWarnings++
				if missingWarnings <= c.cfg.MaxMissingWarnings {
					c.logger.Warn("destination not found, waiting for it to be created",
						zap.Int("attempt", missingWarnings),
						zap.Error(err),
					)
				} else if missingWarnings == c.cfg.MaxMissingWarnings+1 {
					c.logger.Warn("destination still not found, reducing warning frequency")
				}
				c.sleep(ctx, c.cfg.MissingCooldown)
			case port.ErrClassEndOfStream:
				c.logger.Debug("end of partition reached")
			default:
				c.logger.Error("broker error", zap.Error(err))
				c.sleep(ctx, c.cfg.OtherCooldown)
			}
			continue
		}

		if msg == nil {
			continue
		}

		if missingWarnings > 0 {
			c.logger.Info("destination available again, processing messages")
			missingWarnings = 0
		}

		c.handleMessage(ctx, msg)
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg *port.Message) {
	item, err := entity.DecodeProcessingMessage(msg.Body)
	if err != nil {
		// Poison message: dropped permanently, no dead-letter path.
		c.logger.Error("dropping poison message",
			zap.Error(err),
			zap.ByteString("body", msg.Body),
		)
		metrics.PoisonMessagesTotal.Inc()
		c.ack(msg)
		return
	}

	if c.cfg.AckMode == port.AckOnReceipt {
		c.ack(msg)
	}

	task := dispatcher.Task{
		Item: item,
		OnDone: func(procErr error) {
			if procErr != nil {
				c.logger.Warn("processing finished with error",
					zap.String("video_id", item.VideoID),
					zap.Error(procErr),
				)
			}
			// Every workflow outcome is terminal for this delivery; under
			// ack-on-success redelivery only protects against crashes.
			if c.cfg.AckMode == port.AckOnSuccess {
				c.ack(msg)
			}
		},
	}

	if err := c.disp.Submit(task); err != nil {
		c.logger.Warn("dispatcher rejected message, returning it to the transport",
			zap.String("video_id", item.VideoID),
			zap.Error(err),
		)
		nackCtx, cancel := context.WithTimeout(context.Background(), c.cfg.AckTimeout)
		defer cancel()
		if nerr := c.source.Nack(nackCtx, msg); nerr != nil {
			c.logger.Error("nack failed", zap.Error(nerr))
		}
	}
}

// ack is detached from the polling context so a shutdown cannot strand a
// message that already reached a terminal outcome.
func (c *Consumer) ack(msg *port.Message) {
	ackCtx, cancel := context.WithTimeout(context.Background(), c.cfg.AckTimeout)
	defer cancel()
	if err := c.source.Ack(ackCtx, msg); err != nil {
		c.logger.Error("ack failed", zap.Error(err))
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
