package port

import (
	"context"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
)

// NotificationPublisher emits one outbound message per terminal transition.
// A publish failure never rolls back the status already committed.
type NotificationPublisher interface {
	Publish(ctx context.Context, n entity.StatusNotification) error

	// Close flushes pending sends and releases the transport.
	Close() error
}
