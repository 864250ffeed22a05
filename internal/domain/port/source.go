package port

import "context"

// ErrorClass buckets broker-level poll failures into the retry policies the
// consumer applies. Item-level processing errors never reach this taxonomy.
type ErrorClass int

const (
	// ErrClassTransient: brokers unreachable or transport failure; the
	// consumer cools down and retries, it never terminates the process.
	ErrClassTransient ErrorClass = iota

	// ErrClassMissingDestination: the topic or queue does not exist yet;
	// the consumer keeps polling with rate-limited warnings.
	ErrClassMissingDestination

	// ErrClassEndOfStream: the reader reached the end of a partition;
	// informational only.
	ErrClassEndOfStream

	// ErrClassFatal: the source is unusable (closed, context cancelled);
	// the consumer loop exits.
	ErrClassFatal

	// ErrClassOther: anything unclassified; retried after a short cooldown.
	ErrClassOther
)

// AckMode selects when an inbound message stops being re-deliverable.
type AckMode int

const (
	// AckOnReceipt acknowledges right after a successful decode, before
	// processing. A crash mid-processing loses the message.
	AckOnReceipt AckMode = iota

	// AckOnSuccess acknowledges only once the workflow reports a terminal
	// outcome, giving at-least-once delivery. The status CAS guard makes
	// duplicate redelivery safe.
	AckOnSuccess
)

// Message is one raw inbound delivery. Handle is transport-private state
// (a kafka message, an SQS receipt) that only the owning source inspects.
type Message struct {
	Body   []byte
	Handle any
}

// InboundSource is the uniform poll/ack surface over the queue and topic
// transports.
type InboundSource interface {
	// Poll blocks up to the source's poll timeout and returns the next
	// message. A nil message with nil error means an empty poll.
	Poll(ctx context.Context) (*Message, error)

	// Ack marks the message consumed (commit offset / delete from queue).
	Ack(ctx context.Context, m *Message) error

	// Nack releases the message for redelivery where the transport
	// supports it; otherwise it is a no-op and visibility rules apply.
	Nack(ctx context.Context, m *Message) error

	// Classify maps a Poll error onto the consumer's retry taxonomy.
	Classify(err error) ErrorClass

	Close() error
}
