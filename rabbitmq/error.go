package rabbitmq

import (
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Kind identifies which façade operation a transport failure surfaced from,
// so callers can branch on cause without string matching.
type Kind string

const (
	KindChannelCreation     Kind = "channel creation"
	KindChannelClose        Kind = "channel close"
	KindChannelAbort        Kind = "channel abort"
	KindQueueDeclaration    Kind = "queue declaration"
	KindQueueDeletion       Kind = "queue deletion"
	KindQueuePurge          Kind = "queue purge"
	KindExchangeDeclaration Kind = "exchange declaration"
	KindExchangeDeletion    Kind = "exchange deletion"
	KindBinding             Kind = "queue binding"
	KindPublish             Kind = "publish"
	KindConsume             Kind = "consume"
	KindQoS                 Kind = "qos"
	KindAcknowledge         Kind = "acknowledge"
	KindReject              Kind = "reject"
)

// State errors reported for caller mistakes rather than transport failures.
var (
	// ErrAlreadyAcknowledged is returned when a delivery is acknowledged or
	// rejected a second time.
	ErrAlreadyAcknowledged = errors.New("rabbitmq: delivery already acknowledged or rejected")
	// ErrUninitializedTag is returned when a delivery tag is requested but was
	// never assigned by the broker.
	ErrUninitializedTag = errors.New("rabbitmq: delivery tag was never assigned")
)

// OpError wraps a transport failure with the façade operation it came from.
// The original diagnostic is preserved; use errors.Is / errors.As to reach it.
type OpError struct {
	Kind Kind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("rabbitmq: %s failed: %s", e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// wrapErr ties err to the operation kind it surfaced from, passing nil
// through untouched. Failures are wrapped exactly once, never retried or
// suppressed.
func wrapErr(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Kind: kind, Err: err}
}

// KindOf extracts the operation kind from err when it carries one.
func KindOf(err error) (Kind, bool) {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind, true
	}
	return "", false
}

// notifier helper interface which wraps notification methods
// which are usually shared by different types.
type notifier interface {
	// NotifyClose the internal amqp091 function defined on both
	// channels and connections which set up notifications for errors.
	NotifyClose(rcv chan *amqp091.Error) chan *amqp091.Error
}

// amqpError represents a wrapped amqp091.Error
type amqpError struct {
	*amqp091.Error
}

// Code returns the AMQP error code.
func (a *amqpError) Code() int {
	return a.Error.Code
}

// Reason returns the error description
func (a *amqpError) Reason() string {
	return a.Error.Reason
}

// Recover whether the error is recoverable.
func (a *amqpError) Recover() bool {
	return a.Error.Recover
}

// FromServer whether the close originated from the client or server.
func (a *amqpError) FromServer() bool {
	return a.Error.Server
}
