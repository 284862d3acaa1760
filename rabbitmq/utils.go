package rabbitmq

import (
	"context"
	"io"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// closer represents any stream which can be closed
// this is either a channel or the overall connection.
type closer interface {
	io.Closer
	notifier

	IsClosed() bool // IsClosed determines if a channel or connection is closed.
}

// isClosed helper function to check whether a connection or channel is closed.
func isClosed(ch closer) bool {
	return ch == nil || ch.IsClosed()
}

// nopLogger the fallback for handles constructed without an injected logger.
var nopLogger = zap.NewNop()

// logErr logs an internal failure which is not surfaced to the caller,
// typically a courtesy cleanup such as cancelling a dead consume.
func logErr(log *zap.Logger, msg string, err error) {
	if err == nil {
		return
	}

	log.Warn(msg, zap.Error(err))
}

// newBackoff the function to generate the backoff policy
// a variable in order to reduce the backoff in tests.
var newBackoff = defaultBackoff

// defaultBackoff generates a new backoff to use when performing reconnects.
func defaultBackoff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
}
