package tlsbench

import "errors"

var (
	// ErrWouldBlock signals that a transport read found no data. It is a
	// normal condition during a handshake, distinct from end-of-stream and
	// from failure.
	ErrWouldBlock = errors.New("no data available")

	// ErrTransportExhausted signals a read past everything the peer ever
	// sent. In the cooperatively stepped harness data never arrives later,
	// so this is a harness bug rather than a protocol condition.
	ErrTransportExhausted = errors.New("transport exhausted")

	// ErrHandshakeFailed wraps protocol-level negotiation failures. The
	// benchmark iteration that hits it is aborted, never retried.
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrUnsupportedParameters is returned by a backend that cannot express
	// the requested cipher/group/signature combination. A backend rejects
	// such a request up front rather than silently substituting parameters,
	// which would mislabel the measurement.
	ErrUnsupportedParameters = errors.New("unsupported parameter combination")
)
