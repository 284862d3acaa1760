package amqpx

import (
	"context"
)

// Delivery represents one received message awaiting acknowledgement.
//
// A Delivery is owned by exactly one consumer invocation and may be resolved,
// acknowledged or rejected, at most once. It is created when the broker hands
// a message to a consumer and is spent once resolved.
type Delivery interface {
	// Context returns a scoped context for this specific delivery.
	Context() context.Context
	// Ack acknowledges that we have processed the message. When multiple is set,
	// all prior unacknowledged deliveries on the same channel are acknowledged
	// with it. When the consumer was started with auto-ack this is a no-op; the
	// broker already considers the message acknowledged.
	Ack(multiple bool) error
	// Nack rejects the message, optionally requeueing it for redelivery. The
	// multiple and auto-ack semantics match Ack.
	Nack(multiple, requeue bool) error
	// DeliveryTag returns the broker-assigned sequence number identifying this
	// delivery on its channel.
	DeliveryTag() (uint64, error)
	// Content returns the raw payload as a decodable Content value.
	Content() Content
	// Headers returns the key-value metadata attached to the message.
	Headers() Table
	// ContentType returns the MIME content type the publisher attached, if any.
	ContentType() string
	// RoutingKey returns the routing key the message was published with.
	RoutingKey() string
	// Redelivered whether the message has been delivered previously.
	Redelivered() bool
}

// Queue represents a single AMQP queue instance bound to the channel which
// declared it.
type Queue interface {
	// Name returns the broker-assigned name of the queue.
	Name() string
	// Bind attempts to bind this queue to an exchange based on the supplied binding key.
	Bind(ctx context.Context, exchange, bindingKey string) error
	// Consume starts consuming messages from this queue, inbound deliveries are sent to the returned channel.
	Consume(ctx context.Context, consumerName string, autoAck, exclusive bool) (deliveries <-chan Delivery, cancel CancelFunc, err error)
	// Delete removes this queue from the broker.
	Delete(ctx context.Context) error
	// Purge drops all messages held on this queue.
	Purge(ctx context.Context) error
}
