package rabbitmq

import (
	"context"

	"github.com/rabbitmq/amqp091-go"

	"github.com/gimantha/amqpx"
)

// queue represents a wrapped amqp091.Queue bound to the channel which
// declared it.
type queue struct {
	amqp091.Queue
	ch amqpx.Channel // ch the declaring channel; so queue helpers can delegate to it.
}

// Name returns the broker-assigned name of the queue.
func (q *queue) Name() string { return q.Queue.Name }

// Bind attempts to bind this queue to the requested exchange using the binding key.
func (q *queue) Bind(ctx context.Context, exchange, bindingKey string) error {
	return q.ch.BindQueue(ctx, q.Name(), exchange, bindingKey)
}

// Consume helper function which allows us to consume directly from the defined queue, rather than supplying the
// queue name when calling channel.Consume.
func (q *queue) Consume(ctx context.Context, consumerName string, autoAck, exclusive bool) (deliveries <-chan amqpx.Delivery, cancel amqpx.CancelFunc, err error) {
	return q.ch.Consume(ctx, q.Name(), consumerName, autoAck, exclusive)
}

// Delete removes this queue from the broker.
func (q *queue) Delete(ctx context.Context) error {
	return q.ch.DeleteQueue(ctx, q.Name())
}

// Purge drops all messages held on this queue.
func (q *queue) Purge(ctx context.Context) error {
	return q.ch.PurgeQueue(ctx, q.Name())
}
