package tlsbench

import (
	"crypto/x509"
	"fmt"
	"io"

	utls "github.com/refraction-networking/utls"
)

func init() {
	registerBackend(UTLSBackend{})
}

// UTLSBackend drives refraction-networking/utls. The engine shares the
// stream model of crypto/tls but is an independently maintained stack with
// its own config types and client-hello construction; clients use UClient
// with the Golang hello so the wire shape stays interoperable with the other
// backends.
type UTLSBackend struct{}

func (UTLSBackend) Name() string { return "utls" }

var utlsGroups = map[ECGroup]utls.CurveID{
	X25519:    utls.X25519,
	SECP256R1: utls.CurveP256,
}

type utlsConfig struct {
	mode  Mode
	suite uint16
	conf  *utls.Config
}

func (utlsConfig) backendName() string { return "utls" }

func (b UTLSBackend) MakeConfig(mode Mode, crypto CryptoConfig, handshake HandshakeType) (Config, error) {
	// Like its crypto/tls ancestor, the fork ignores Config.CipherSuites
	// for TLS 1.3 and never prefers AES_256_GCM_SHA384. Only the AES_128
	// request can be honored; the handshake verifies the outcome.
	if crypto.CipherSuite != AES128GCMSHA256 {
		return nil, fmt.Errorf("%w: utls cannot restrict TLS 1.3 suites to %s",
			ErrUnsupportedParameters, crypto.CipherSuite)
	}
	group, okGroup := utlsGroups[crypto.Group]
	if !okGroup {
		return nil, fmt.Errorf("%w: utls cannot express group %s", ErrUnsupportedParameters, crypto.Group)
	}

	conf := &utls.Config{
		MinVersion:       utls.VersionTLS13,
		MaxVersion:       utls.VersionTLS13,
		CurvePreferences: []utls.CurveID{group},
	}

	if mode == ModeClient || handshake == MutualAuth {
		caPEM, err := ReadCredential(CACert, crypto.SigType)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("utls: no CA certificate in %s", CertPath(CACert, crypto.SigType))
		}
		if mode == ModeClient {
			conf.RootCAs = pool
			conf.ServerName = serverName
		} else {
			conf.ClientCAs = pool
			conf.ClientAuth = utls.RequireAndVerifyClientCert
		}
	}

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
		cert, err := utls.X509KeyPair(chainPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("utls: load %s key pair: %w", mode, err)
		}
		conf.Certificates = []utls.Certificate{cert}
	}

	return &utlsConfig{mode: mode, suite: utls.TLS_AES_128_GCM_SHA256, conf: conf}, nil
}

// utlsEngine is the surface shared by *utls.Conn and *utls.UConn.
type utlsEngine interface {
	Handshake() error
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
	ConnectionState() utls.ConnectionState
}

func (b UTLSBackend) NewConnection(cfg Config, buf *ConnectedBuffer) (Connection, error) {
	c, ok := cfg.(*utlsConfig)
	if !ok {
		return nil, fmt.Errorf("utls: config built by backend %q", cfg.backendName())
	}
	pipe := newEngineConn(buf)
	var conn utlsEngine
	if c.mode == ModeClient {
		conn = utls.UClient(pipe, c.conf, utls.HelloGolang)
	} else {
		conn = utls.Server(pipe, c.conf)
	}
	return &utlsConn{buf: buf, pipe: pipe, conn: conn, suite: c.suite, stepper: newHandshakeStepper(pipe)}, nil
}

type utlsConn struct {
	buf     *ConnectedBuffer
	pipe    *engineConn
	conn    utlsEngine
	suite   uint16
	stepper *handshakeStepper
}

func (c *utlsConn) Handshake() error {
	return c.stepper.step(func() error {
		if err := c.conn.Handshake(); err != nil {
			return err
		}
		if got := c.conn.ConnectionState().CipherSuite; got != c.suite {
			return fmt.Errorf("negotiated cipher suite %#04x, requested %#04x", got, c.suite)
		}
		return nil
	})
}

func (c *utlsConn) HandshakeCompleted() bool {
	return c.stepper.completed
}

func (c *utlsConn) NegotiatedCipherSuite() CipherSuite {
	switch c.conn.ConnectionState().CipherSuite {
	case utls.TLS_AES_128_GCM_SHA256:
		return AES128GCMSHA256
	case utls.TLS_AES_256_GCM_SHA384:
		return AES256GCMSHA384
	default:
		panic(fmt.Sprintf("utls: negotiated cipher suite %#04x outside the benchmark grid",
			c.conn.ConnectionState().CipherSuite))
	}
}

func (c *utlsConn) NegotiatedTLS13() bool {
	return c.conn.ConnectionState().Version == utls.VersionTLS13
}

func (c *utlsConn) Send(data []byte) error {
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("utls send: %w", err)
	}
	return nil
}

func (c *utlsConn) Recv(data []byte) error {
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return fmt.Errorf("utls recv: %w", err)
	}
	return nil
}

// ShrinkConnectionBuffers: like crypto/tls, the engine owns its record
// buffers; nothing held on this side to release.
func (c *utlsConn) ShrinkConnectionBuffers() {}

func (c *utlsConn) ShrinkConnectedBuffer() {
	c.buf.Shrink()
}

func (c *utlsConn) ConnectedBuffer() *ConnectedBuffer {
	return c.buf
}

func (c *utlsConn) Close() error {
	err := c.conn.Close()
	c.pipe.Close()
	return err
}
