package rabbitmq

import (
	"context"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"github.com/gimantha/amqpx"
)

// ackState the resolution state of a delivery handle.
type ackState int

const (
	stateUnacknowledged ackState = iota // initial, the handle may still be resolved.
	stateAcknowledged                   // terminal, resolved with an ack.
	stateRejected                       // terminal, resolved with a nack.
)

// delivery implements amqpx.Delivery over an amqp091.Delivery,
// tracking the resolution state so a handle can be acknowledged or
// rejected at most once.
type delivery struct {
	ctx     context.Context
	autoAck bool // autoAck whether the consumer was started in auto-ack mode.

	mu    sync.Mutex
	state ackState

	d amqp091.Delivery
}

// newDelivery wraps a raw delivery handed over by the broker.
func newDelivery(ctx context.Context, d amqp091.Delivery, autoAck bool) *delivery {
	return &delivery{ctx: ctx, d: d, autoAck: autoAck}
}

// Context returns the attached ctx
func (m *delivery) Context() context.Context {
	return m.ctx
}

// Ack attempts to acknowledge the message. With multiple set, all prior
// unacknowledged deliveries on the same channel are acknowledged with it.
func (m *delivery) Ack(multiple bool) error {
	return m.resolve(stateAcknowledged, KindAcknowledge, func() error {
		return m.d.Ack(multiple)
	})
}

// Nack attempts to negatively acknowledge the message, optionally asking the
// broker to requeue it.
func (m *delivery) Nack(multiple, requeue bool) error {
	return m.resolve(stateRejected, KindReject, func() error {
		return m.d.Nack(multiple, requeue)
	})
}

// resolve moves the handle into a terminal state, issuing the
// acknowledgement to the broker on the way.
//
// A handle already in a terminal state fails with ErrAlreadyAcknowledged.
// Under auto-ack the broker settled the message on receipt, so the transition
// succeeds without issuing anything. A transport failure leaves the handle
// unacknowledged; resolving again is the caller's call.
func (m *delivery) resolve(to ackState, kind Kind, issue func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateUnacknowledged {
		return ErrAlreadyAcknowledged
	}

	if !m.autoAck {
		if err := issue(); err != nil {
			return wrapErr(kind, err)
		}
	}

	m.state = to
	return nil
}

// DeliveryTag returns the broker-assigned sequence number for this delivery.
// Tags start at 1, so the zero value marks a handle the broker never tagged.
func (m *delivery) DeliveryTag() (uint64, error) {
	if m.d.DeliveryTag == 0 {
		return 0, ErrUninitializedTag
	}
	return m.d.DeliveryTag, nil
}

// Content returns the raw payload for on-demand decoding.
func (m *delivery) Content() amqpx.Content {
	return amqpx.Content(m.d.Body)
}

// Headers returns the metadata table attached to the message.
func (m *delivery) Headers() amqpx.Table {
	return amqpx.Table(m.d.Headers)
}

// ContentType returns the MIME content type attached by the publisher.
func (m *delivery) ContentType() string {
	return m.d.ContentType
}

// RoutingKey returns the routing key the message was published with.
func (m *delivery) RoutingKey() string {
	return m.d.RoutingKey
}

// Redelivered whether the message has been redelivered previously.
func (m *delivery) Redelivered() bool {
	return m.d.Redelivered
}
