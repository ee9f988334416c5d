package tlsbench

import (
	"fmt"
	"sort"
)

// Mode is the role a connection plays in the handshake.
type Mode int

const (
	ModeClient Mode = iota
	ModeServer
)

func (m Mode) String() string {
	switch m {
	case ModeClient:
		return "client"
	case ModeServer:
		return "server"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// HandshakeType selects which side presents a certificate. The zero value is
// server-authentication only.
type HandshakeType int

const (
	ServerAuth HandshakeType = iota
	MutualAuth
)

func (h HandshakeType) String() string {
	switch h {
	case ServerAuth:
		return "server-auth"
	case MutualAuth:
		return "mutual-auth"
	default:
		return fmt.Sprintf("handshake(%d)", int(h))
	}
}

// CipherSuite enumerates the TLS 1.3 suites every backend must support.
// The zero value is the default suite.
type CipherSuite int

const (
	AES128GCMSHA256 CipherSuite = iota
	AES256GCMSHA384
)

func (c CipherSuite) String() string {
	switch c {
	case AES128GCMSHA256:
		return "AES_128_GCM_SHA256"
	case AES256GCMSHA384:
		return "AES_256_GCM_SHA384"
	default:
		return fmt.Sprintf("ciphersuite(%d)", int(c))
	}
}

// ECGroup enumerates the key-exchange groups. The zero value is the default
// group.
type ECGroup int

const (
	X25519 ECGroup = iota
	SECP256R1
)

func (g ECGroup) String() string {
	switch g {
	case X25519:
		return "X25519"
	case SECP256R1:
		return "SECP256R1"
	default:
		return fmt.Sprintf("group(%d)", int(g))
	}
}

// SigType enumerates the certificate key types the credential set ships.
// The zero value is the default type.
type SigType int

const (
	EC384 SigType = iota
	RSA2048
	RSA4096
)

func (s SigType) String() string {
	switch s {
	case EC384:
		return "ec384"
	case RSA2048:
		return "rsa2048"
	case RSA4096:
		return "rsa4096"
	default:
		return fmt.Sprintf("sigtype(%d)", int(s))
	}
}

// CryptoConfig is the immutable parameter tuple shared by all backends. The
// zero value is the default configuration, so partial construction works:
// CryptoConfig{SigType: RSA2048} selects the default suite and group.
type CryptoConfig struct {
	CipherSuite CipherSuite
	Group       ECGroup
	SigType     SigType
}

func (c CryptoConfig) String() string {
	return fmt.Sprintf("%s/%s/%s", c.CipherSuite, c.Group, c.SigType)
}

// Config is an opaque, backend-specific bundle of immutable connection
// settings produced by MakeConfig. A Config may be reused for any number of
// connections of the same backend.
type Config interface {
	backendName() string
}

// Connection is the capability contract every backend implements. One
// benchmark loop drives any backend through exactly this call sequence, which
// is what makes cross-library numbers comparable.
type Connection interface {
	// Handshake advances the handshake by one step. It returns promptly
	// whether or not progress was made and never blocks waiting for peer
	// data; the caller alternates steps between the two sides until both
	// report completion. A step that made no progress is not an error.
	Handshake() error

	HandshakeCompleted() bool

	// NegotiatedCipherSuite maps the backend's negotiated suite onto the
	// shared enumeration. Valid only after completion; a suite outside the
	// benchmark grid is an invariant violation and panics.
	NegotiatedCipherSuite() CipherSuite

	// NegotiatedTLS13 reports whether TLS 1.3 was negotiated. Valid only
	// after completion.
	NegotiatedTLS13() bool

	// Send encrypts and writes data in full. When Send returns, every byte
	// is visible to the peer's transport reads.
	Send(data []byte) error

	// Recv decrypts exactly len(data) bytes into data. Reading past what the
	// peer sent fails with ErrTransportExhausted.
	Recv(data []byte) error

	// ShrinkConnectionBuffers releases internal protocol scratch space
	// without invalidating the session. Safe to call repeatedly.
	ShrinkConnectionBuffers()

	// ShrinkConnectedBuffer clears and releases the transport endpoint's
	// queues. Call after ShrinkConnectionBuffers, never before.
	ShrinkConnectedBuffer()

	// ConnectedBuffer exposes the owned transport endpoint for pairing
	// validation or peer construction.
	ConnectedBuffer() *ConnectedBuffer

	// Close releases backend resources. The engine is torn down before the
	// transport endpoint is released.
	Close() error
}

// Backend constructs configs and connections for one TLS implementation.
type Backend interface {
	Name() string

	// MakeConfig selects a security policy for the requested parameters and
	// loads the certificate material the role needs: trust for the peer's
	// certificate when the role verifies one (client always, server under
	// mutual auth), and the role's own certificate and key when it presents
	// one (server always, client under mutual auth).
	MakeConfig(mode Mode, crypto CryptoConfig, handshake HandshakeType) (Config, error)

	// NewConnection binds a connection to one transport endpoint and one
	// config. No handshake activity happens yet.
	NewConnection(cfg Config, buf *ConnectedBuffer) (Connection, error)
}

var backends = map[string]Backend{}

func registerBackend(b Backend) {
	backends[b.Name()] = b
}

// Backends returns the backends compiled into this build, keyed by name. The
// openssl backend is present only when built with the openssl tag.
func Backends() map[string]Backend {
	out := make(map[string]Backend, len(backends))
	for name, b := range backends {
		out[name] = b
	}
	return out
}

// BackendNames returns the registered backend names in stable order.
func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupBackend resolves a backend by name.
func LookupBackend(name string) (Backend, error) {
	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (have %v)", name, BackendNames())
	}
	return b, nil
}
