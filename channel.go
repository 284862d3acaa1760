package amqpx

import (
	"context"
	"io"
)

// ExchangeType represents a type of exchange.
type ExchangeType string

const (
	// ExchangeTypeDirect represents a direct exchange
	// this is where a message is posted to bound queues where the routing key matches exactly.
	ExchangeTypeDirect ExchangeType = "direct"
	// ExchangeTypeFanout represents a fanout exchange
	// this is where the routing key is ignored and all bound queues receive a copy of the message.
	ExchangeTypeFanout ExchangeType = "fanout"
	// ExchangeTypeTopic represents a topic exchange
	// this extends on top of a direct exchange by allowing the routing key to be pattern based rather
	// than having to match exactly.
	ExchangeTypeTopic ExchangeType = "topic"
	// ExchangeTypeHeaders represents a headers exchange
	// this is where one or more headers are used to route the message
	ExchangeTypeHeaders ExchangeType = "headers"
)

// DefaultExchange is the pre-declared nameless exchange every broker provides.
// Publishing to it routes the message to the queue whose name equals the
// routing key.
const DefaultExchange = ""

// ErrorNotificationFunc the callback function type which receives
// errors from the server.
type ErrorNotificationFunc = func(e Error)

// CancelFunc a function which can be used to cancel an active consume
// this is safe to be called concurrently.
type CancelFunc = func()

// Table holds arbitrary key-value metadata attached to declarations and
// deliveries.
type Table = map[string]interface{}

// QueueSpec describes a queue to declare. The zero value declares a
// non-durable, non-exclusive queue the broker will not delete.
type QueueSpec struct {
	Name       string // Name the queue name; empty asks the broker to generate one.
	Durable    bool   // Durable whether the queue survives a broker restart.
	Exclusive  bool   // Exclusive whether the queue is restricted to this connection.
	AutoDelete bool   // AutoDelete whether the broker removes the queue once unused.
	Args       Table  // Args optional construction arguments passed to the broker.
}

// ExchangeSpec describes an exchange to declare.
type ExchangeSpec struct {
	Name       string
	Type       ExchangeType
	Durable    bool
	AutoDelete bool
	Args       Table
}

// CloseParams carries an optional AMQP reply code and reason for a close or
// abort. Both fields must be set for the pair to be used; an incomplete pair
// silently dispatches the plain close form instead.
type CloseParams struct {
	Code   int    // Code a reply code, see "Reply Codes" in the AMQP specification.
	Reason string // Reason a human readable description of why the channel is closing.
}

// Complete reports whether the pair is present and fully populated.
func (p *CloseParams) Complete() bool {
	return p != nil && p.Code != 0 && p.Reason != ""
}

// Channel represents a single AMQP channel.
//
// A channel is described as a lightweight session which can be spawned from a single TCP connection
// source. We can have n number of channels on the same Connection. All AMQP operations are derived from a Channel
// rather than the connection itself.
//
// A Channel is not safe for concurrent operations from multiple goroutines;
// callers needing concurrency open one channel per goroutine over the same
// Connection.
type Channel interface {
	io.Closer
	Notifier

	// ID returns the session identifier assigned when the channel was opened.
	ID() string
	// QoS sets the prefetch count and size on a channel. This effectively limits how many messages
	// can be passed to a consumer to process at once. For example if the count is 5 then after
	// the consumer has received 5 messages, the queue won't deliver any more until the consumer has ack'd
	// any of the messages it is currently processing.
	QoS(ctx context.Context, count, size int64, global bool) error
	// DeclareQueue attempts to declare a queue, returning a handle on the declared queue.
	// A nil spec declares an exclusive, auto-delete queue whose name is generated by the
	// broker; the returned handle always carries the broker-assigned name.
	DeclareQueue(ctx context.Context, spec *QueueSpec) (Queue, error)
	// DeclareExchange attempts to declare an exchange.
	DeclareExchange(ctx context.Context, spec ExchangeSpec) error
	// BindQueue attempts to bind a queue to an exchange using the binding key.
	BindQueue(ctx context.Context, queue, exchange, bindingKey string) error
	// Publish attempts to publish a message to an exchange using the supplied routing key
	// if the exchange is DefaultExchange, the default exchange defined by the broker will
	// be used which effectively routes the message to a queue with exactly the same name
	// as the routing key. Textual payloads are published as their UTF-8 bytes.
	Publish(ctx context.Context, exchange, routingKey string, body io.Reader) error
	// DeleteQueue removes a queue and any messages held on it.
	DeleteQueue(ctx context.Context, queue string) error
	// DeleteExchange removes an exchange; bound queues survive unbound.
	DeleteExchange(ctx context.Context, exchange string) error
	// PurgeQueue drops all messages held on a queue without removing the queue itself.
	PurgeQueue(ctx context.Context, queue string) error
	// Consume starts consuming messages from a queue, inbound deliveries are sent to the returned channel.
	Consume(ctx context.Context, queue, consumerName string, autoAck, exclusive bool) (deliveries <-chan Delivery, cancel CancelFunc, err error)
	// CloseWith gracefully closes the channel. A complete params pair dispatches the
	// parameterized close form, anything else falls back to the plain Close.
	CloseWith(params *CloseParams) error
	// Abort forcefully closes the channel, discarding outstanding work.
	Abort() error
	// AbortWith forcefully closes the channel with the same two-form dispatch as CloseWith.
	AbortWith(params *CloseParams) error
	// IsClosed determines if the channel is closed.
	IsClosed() bool
}
