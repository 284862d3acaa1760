package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimantha/amqpx"
)

func TestQueue_Name(t *testing.T) {
	assert.Equal(t, "tasks", (&queue{Queue: amqp091.Queue{Name: "tasks"}}).Name())
}

func TestQueue_Bind(t *testing.T) {
	tt := []struct {
		Name     string
		Setup    func(h *mockAMQPChannelHandlers)
		Expected func(t *testing.T, err error)
	}{
		{
			Name: "Valid",
			Setup: func(h *mockAMQPChannelHandlers) {
				h.QueueBind = func() error {
					return nil
				}
			},
			Expected: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			Name: "ErrFromAMQP",
			Setup: func(h *mockAMQPChannelHandlers) {
				h.QueueBind = func() error {
					return errors.New("could not bind queue")
				}
			},
			Expected: func(t *testing.T, err error) {
				require.Error(t, err)
				kind, _ := KindOf(err)
				assert.Equal(t, KindBinding, kind)
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			h := newDefaultAMQPChannelHandlers()
			tc.Setup(&h)
			err := (&queue{ch: newTestChannel(h)}).Bind(context.Background(), "logs", "")
			tc.Expected(t, err)
		})
	}
}

func TestQueue_Delete(t *testing.T) {
	h := newDefaultAMQPChannelHandlers()
	assert.NoError(t, (&queue{ch: newTestChannel(h)}).Delete(context.Background()))

	h.QueueDelete = func() (int, error) { return 0, errors.New("no such queue") }
	err := (&queue{ch: newTestChannel(h)}).Delete(context.Background())
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindQueueDeletion, kind)
}

func TestQueue_Purge(t *testing.T) {
	h := newDefaultAMQPChannelHandlers()
	assert.NoError(t, (&queue{ch: newTestChannel(h)}).Purge(context.Background()))

	h.QueuePurge = func() (int, error) { return 0, errors.New("no such queue") }
	err := (&queue{ch: newTestChannel(h)}).Purge(context.Background())
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindQueuePurge, kind)
}

func TestQueue_ConsumeDelivers(t *testing.T) {
	deliveries := make(chan amqp091.Delivery, 1)
	deliveries <- amqp091.Delivery{Body: []byte("hello"), DeliveryTag: 1}

	h := newDefaultAMQPChannelHandlers()
	h.Consume = func() (<-chan amqp091.Delivery, error) {
		return deliveries, nil
	}
	// don't close or send a message as this is seen as a channel close.
	h.NotifyClose = func(ch chan *amqp091.Error) chan *amqp091.Error { return ch }

	ch := newTestChannel(h)
	require.NoError(t, ch.init())

	msgs, cancel, err := (&queue{Queue: amqp091.Queue{Name: "tasks"}, ch: ch}).Consume(context.Background(), "test-consumer", false, false)
	require.NoError(t, err)

	m, ok := <-msgs
	require.True(t, ok)

	// round-trip: the published text decodes back to the original string.
	s, tErr := m.Content().Text()
	require.NoError(t, tErr)
	assert.Equal(t, "hello", s)

	tag, tagErr := m.DeliveryTag()
	require.NoError(t, tagErr)
	assert.Equal(t, uint64(1), tag)

	// cancelling the consume closes the delivery channel.
	cancel()
	_, ok = <-msgs
	assert.False(t, ok)
}

func TestQueue_Consume(t *testing.T) {
	closed, cancel := context.WithCancel(context.Background())
	cancel() // cancel straight away.

	tt := []struct {
		Name     string
		Context  context.Context
		Setup    func(h *mockAMQPChannelHandlers)
		Expected func(t *testing.T, ch <-chan amqpx.Delivery, err error)
	}{
		{
			Name: "ErrFromAMQP",
			Setup: func(h *mockAMQPChannelHandlers) {
				h.Consume = func() (<-chan amqp091.Delivery, error) {
					return nil, errors.New("could not consume from queue")
				}
				// don't close or send a message as this is seen as a channel close.
				h.NotifyClose = func(ch chan *amqp091.Error) chan *amqp091.Error { return ch }
			},
			Expected: func(t *testing.T, ch <-chan amqpx.Delivery, err error) {
				require.Error(t, err)
				kind, _ := KindOf(err)
				assert.Equal(t, KindConsume, kind)
			},
		},
		{
			Name:    "ClosedContext",
			Context: closed,
			Setup: func(h *mockAMQPChannelHandlers) {
				ch := make(chan amqp091.Delivery, 1)
				h.Consume = func() (<-chan amqp091.Delivery, error) {
					// this is purposely not closed here.
					return ch, nil
				}
				h.Cancel = func() error {
					close(ch) // this will ensure we attempt to call cancel on the parent.
					return nil
				}
				// don't close or send a message as this is seen as a channel close.
				h.NotifyClose = func(ch chan *amqp091.Error) chan *amqp091.Error { return ch }
			},
			Expected: func(t *testing.T, ch <-chan amqpx.Delivery, err error) {
				// expect no error from consume, but expect the supplied channel
				// to be closed.
				_, ok := <-ch
				assert.False(t, ok)
				assert.NoError(t, err)
			},
		},
		{
			Name:    "ErrFromCancel",
			Context: closed,
			Setup: func(h *mockAMQPChannelHandlers) {
				ch := make(chan amqp091.Delivery, 1)
				h.Consume = func() (<-chan amqp091.Delivery, error) {
					// this is purposely not closed here.
					return ch, nil
				}
				h.Cancel = func() error {
					close(ch) // this will ensure we attempt to call cancel on the parent.
					return errors.New("could not cancel consume")
				}
				// don't close or send a message as this is seen as a channel close.
				h.NotifyClose = func(ch chan *amqp091.Error) chan *amqp091.Error { return ch }
			},
			Expected: func(t *testing.T, ch <-chan amqpx.Delivery, err error) {
				// expect no error from consume, but expect the supplied channel
				// to be closed.
				_, ok := <-ch
				assert.False(t, ok)

				// we can assert that the error from cancel is logged but
				// not returned, as it is more of a courtesy than a requirement.
				assert.NoError(t, err)
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			ctx := context.Background()
			if tc.Context != nil {
				ctx = tc.Context
			}

			h := newDefaultAMQPChannelHandlers()
			tc.Setup(&h)
			ch := newTestChannel(h)
			require.NoError(t, ch.init())
			d, stop, err := (&queue{ch: ch}).Consume(ctx, "test", false, false)
			stop()
			tc.Expected(t, d, err)
		})
	}
}
