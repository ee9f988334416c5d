package tlsbench

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
)

// serverName is the peer name baked into the benchmark server certificates.
// Every backend verifies it so that all three pay for hostname verification.
const serverName = "localhost"

func init() {
	registerBackend(StdTLSBackend{})
}

// StdTLSBackend drives the standard library's crypto/tls engine.
type StdTLSBackend struct{}

func (StdTLSBackend) Name() string { return "stdtls" }

var stdGroups = map[ECGroup]tls.CurveID{
	X25519:    tls.X25519,
	SECP256R1: tls.CurveP256,
}

type stdTLSConfig struct {
	mode  Mode
	suite uint16
	conf  *tls.Config
}

func (stdTLSConfig) backendName() string { return "stdtls" }

func (b StdTLSBackend) MakeConfig(mode Mode, crypto CryptoConfig, handshake HandshakeType) (Config, error) {
	// crypto/tls ignores Config.CipherSuites for TLS 1.3; negotiation
	// follows the engine's own preference order, which never selects
	// AES_256_GCM_SHA384. Only the AES_128 request can be honored, and the
	// handshake still verifies the outcome: hardware without AES
	// acceleration prefers CHACHA20_POLY1305.
	if crypto.CipherSuite != AES128GCMSHA256 {
		return nil, fmt.Errorf("%w: stdtls cannot restrict TLS 1.3 suites to %s",
			ErrUnsupportedParameters, crypto.CipherSuite)
	}
	group, okGroup := stdGroups[crypto.Group]
	if !okGroup {
		return nil, fmt.Errorf("%w: stdtls cannot express group %s", ErrUnsupportedParameters, crypto.Group)
	}

	conf := &tls.Config{
		MinVersion:       tls.VersionTLS13,
		MaxVersion:       tls.VersionTLS13,
		CurvePreferences: []tls.CurveID{group},
	}

	// Trust the CA when this role verifies the peer's certificate.
	if mode == ModeClient || handshake == MutualAuth {
		caPEM, err := ReadCredential(CACert, crypto.SigType)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("stdtls: no CA certificate in %s", CertPath(CACert, crypto.SigType))
		}
		if mode == ModeClient {
			conf.RootCAs = pool
			conf.ServerName = serverName
		} else {
			conf.ClientCAs = pool
			conf.ClientAuth = tls.RequireAndVerifyClientCert
		}
	}

	// Present a certificate when this role authenticates itself.
	if mode == ModeServer || handshake == MutualAuth {
		chainKind, keyKind := ServerChain, ServerKey
		if mode == ModeClient {
			chainKind, keyKind = ClientChain, ClientKey
		}
		chainPEM, err := ReadCredential(chainKind, crypto.SigType)
		if err != nil {
			return nil, err
		}
		keyPEM, err := ReadCredential(keyKind, crypto.SigType)
		if err != nil {
			return nil, err
		}
		cert, err := tls.X509KeyPair(chainPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("stdtls: load %s key pair: %w", mode, err)
		}
		conf.Certificates = []tls.Certificate{cert}
	}

	return &stdTLSConfig{mode: mode, suite: tls.TLS_AES_128_GCM_SHA256, conf: conf}, nil
}

func (b StdTLSBackend) NewConnection(cfg Config, buf *ConnectedBuffer) (Connection, error) {
	c, ok := cfg.(*stdTLSConfig)
	if !ok {
		return nil, fmt.Errorf("stdtls: config built by backend %q", cfg.backendName())
	}
	pipe := newEngineConn(buf)
	var conn *tls.Conn
	if c.mode == ModeClient {
		conn = tls.Client(pipe, c.conf)
	} else {
		conn = tls.Server(pipe, c.conf)
	}
	return &stdTLSConn{buf: buf, pipe: pipe, conn: conn, suite: c.suite, stepper: newHandshakeStepper(pipe)}, nil
}

type stdTLSConn struct {
	buf     *ConnectedBuffer
	pipe    *engineConn
	conn    *tls.Conn
	suite   uint16
	stepper *handshakeStepper
}

func (c *stdTLSConn) Handshake() error {
	return c.stepper.step(func() error {
		if err := c.conn.Handshake(); err != nil {
			return err
		}
		// A measurement under the wrong suite would be mislabeled; fail the
		// connection instead.
		if got := c.conn.ConnectionState().CipherSuite; got != c.suite {
			return fmt.Errorf("negotiated cipher suite %#04x, requested %#04x", got, c.suite)
		}
		return nil
	})
}

func (c *stdTLSConn) HandshakeCompleted() bool {
	return c.stepper.completed
}

func (c *stdTLSConn) NegotiatedCipherSuite() CipherSuite {
	switch c.conn.ConnectionState().CipherSuite {
	case tls.TLS_AES_128_GCM_SHA256:
		return AES128GCMSHA256
	case tls.TLS_AES_256_GCM_SHA384:
		return AES256GCMSHA384
	default:
		panic(fmt.Sprintf("stdtls: negotiated cipher suite %#04x outside the benchmark grid",
			c.conn.ConnectionState().CipherSuite))
	}
}

func (c *stdTLSConn) NegotiatedTLS13() bool {
	return c.conn.ConnectionState().Version == tls.VersionTLS13
}

func (c *stdTLSConn) Send(data []byte) error {
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("stdtls send: %w", err)
	}
	return nil
}

func (c *stdTLSConn) Recv(data []byte) error {
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return fmt.Errorf("stdtls recv: %w", err)
	}
	return nil
}

// ShrinkConnectionBuffers: crypto/tls owns its record buffers internally and
// frees them with the connection; there is no scratch held on this side to
// release.
func (c *stdTLSConn) ShrinkConnectionBuffers() {}

func (c *stdTLSConn) ShrinkConnectedBuffer() {
	c.buf.Shrink()
}

func (c *stdTLSConn) ConnectedBuffer() *ConnectedBuffer {
	return c.buf
}

func (c *stdTLSConn) Close() error {
	err := c.conn.Close()
	c.pipe.Close()
	return err
}
