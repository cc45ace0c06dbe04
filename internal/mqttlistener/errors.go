package mqttlistener

import "errors"

// Domain-specific errors for listener operations. Use errors.Is() to
// check for these in calling code.
var (
	// ErrNotConnected is returned when the broker connection is down.
	ErrNotConnected = errors.New("mqttlistener: not connected")

	// ErrSubscribeFailed is returned when the initial subscribe call
	// fails outright (broker rejects the request).
	ErrSubscribeFailed = errors.New("mqttlistener: subscribe failed")

	// ErrSubscribeTimeout is returned when the client connects but
	// never receives a subscribe acknowledgment within the timeout.
	ErrSubscribeTimeout = errors.New("mqttlistener: timed out waiting to subscribe")

	// ErrConnectionLost is surfaced by EnsureConnection after an
	// unexpected disconnect (rc != 0), signaling the caller should
	// treat the process as unhealthy and let it be restarted.
	ErrConnectionLost = errors.New("mqttlistener: connection lost unexpectedly")
)
