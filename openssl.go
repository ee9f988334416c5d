//go:build openssl
// +build openssl

package tlsbench

import (
	"fmt"
	"io"

	"github.com/libp2p/go-openssl"
)

func init() {
	registerBackend(OpenSSLBackend{})
}

// OpenSSLBackend drives libp2p/go-openssl, a cgo binding over the system
// libssl. The Ctx and Conn wrap C allocations that are released by
// finalizers, so teardown order matters: the Conn is shut down before its
// transport endpoint is released, and the Ctx must outlive every Conn built
// from it.
type OpenSSLBackend struct{}

func (OpenSSLBackend) Name() string { return "openssl" }

type opensslConfig struct {
	mode Mode
	ctx  *openssl.Ctx
}

func (opensslConfig) backendName() string { return "openssl" }

func (b OpenSSLBackend) MakeConfig(mode Mode, crypto CryptoConfig, handshake HandshakeType) (Config, error) {
	// The binding exposes no SSL_CTX_set_ciphersuites, so TLS 1.3 suite
	// selection cannot be constrained. Negotiation with default preferences
	// lands on TLS_AES_256_GCM_SHA384; only that request is honest here.
	if crypto.CipherSuite != AES256GCMSHA384 {
		return nil, fmt.Errorf("%w: openssl cannot restrict TLS 1.3 suites to %s",
			ErrUnsupportedParameters, crypto.CipherSuite)
	}

	ctx, err := openssl.NewCtx()
	if err != nil {
		return nil, err
	}
	if !ctx.SetMinProtoVersion(openssl.TLS1_3_VERSION) {
		return nil, fmt.Errorf("openssl: libssl without TLS 1.3 support")
	}
	// Ticket records issued after the handshake would otherwise sit unread
	// in the transport and distort the exhaustion accounting.
	ctx.SetOptions(openssl.NoTicket)

	switch crypto.Group {
	case X25519:
		// Default group preference already puts X25519 first.
	case SECP256R1:
		if err := ctx.SetEllipticCurve(openssl.Prime256v1); err != nil {
			return nil, fmt.Errorf("openssl: pin group %s: %w", crypto.Group, err)
		}
	default:
		return nil, fmt.Errorf("%w: openssl cannot express group %s", ErrUnsupportedParameters, crypto.Group)
	}

	if mode == ModeClient || handshake == MutualAuth {
		caPEM, err := ReadCredential(CACert, crypto.SigType)
		if err != nil {
			return nil, err
		}
		ca, err := openssl.LoadCertificateFromPEM(caPEM)
		if err != nil {
			return nil, fmt.Errorf("openssl: parse CA certificate: %w", err)
		}
		if err := ctx.GetCertificateStore().AddCertificate(ca); err != nil {
			return nil, fmt.Errorf("openssl: trust CA certificate: %w", err)
		}
	}

	switch {
	case mode == ModeClient:
		ctx.SetVerifyMode(openssl.VerifyPeer)
	case handshake == MutualAuth:
		ctx.SetVerifyMode(openssl.VerifyPeer | openssl.VerifyFailIfNoPeerCert)
	default:
		ctx.SetVerifyMode(openssl.VerifyNone)
	}

	if mode == ModeServer || handshake == MutualAuth {
		chainKind, keyKind := ServerChain, ServerKey
		if mode == ModeClient {
			chainKind, keyKind = ClientChain, ClientKey
		}
		if err := useChain(ctx, crypto.SigType, chainKind, keyKind); err != nil {
			return nil, err
		}
	}

	return &opensslConfig{mode: mode, ctx: ctx}, nil
}

// useChain installs the leaf, its issuers and the private key on the context.
func useChain(ctx *openssl.Ctx, sig SigType, chainKind, keyKind PemType) error {
	chainPEM, err := ReadCredential(chainKind, sig)
	if err != nil {
		return err
	}
	blocks := splitCertificatePEM(chainPEM)
	if len(blocks) == 0 {
		return fmt.Errorf("openssl: no certificates in %s", CertPath(chainKind, sig))
	}
	for i, block := range blocks {
		cert, err := openssl.LoadCertificateFromPEM(block)
		if err != nil {
			return fmt.Errorf("openssl: parse certificate %d in %s: %w", i, CertPath(chainKind, sig), err)
		}
		if i == 0 {
			err = ctx.UseCertificate(cert)
		} else {
			err = ctx.AddChainCertificate(cert)
		}
		if err != nil {
			return fmt.Errorf("openssl: install certificate %d: %w", i, err)
		}
	}

	keyPEM, err := ReadCredential(keyKind, sig)
	if err != nil {
		return err
	}
	key, err := openssl.LoadPrivateKeyFromPEM(keyPEM)
	if err != nil {
		return fmt.Errorf("openssl: parse key %s: %w", CertPath(keyKind, sig), err)
	}
	if err := ctx.UsePrivateKey(key); err != nil {
		return fmt.Errorf("openssl: install key: %w", err)
	}
	return nil
}

func (b OpenSSLBackend) NewConnection(cfg Config, buf *ConnectedBuffer) (Connection, error) {
	c, ok := cfg.(*opensslConfig)
	if !ok {
		return nil, fmt.Errorf("openssl: config built by backend %q", cfg.backendName())
	}
	pipe := newEngineConn(buf)
	var conn *openssl.Conn
	var err error
	if c.mode == ModeClient {
		conn, err = openssl.Client(pipe, c.ctx)
	} else {
		conn, err = openssl.Server(pipe, c.ctx)
	}
	if err != nil {
		pipe.Close()
		return nil, err
	}
	return &opensslConn{cfg: c, buf: buf, pipe: pipe, conn: conn, stepper: newHandshakeStepper(pipe)}, nil
}

type opensslConn struct {
	// cfg keeps the Ctx reachable for as long as the Conn lives. The C side
	// of the Conn borrows state owned by the Ctx.
	cfg     *opensslConfig
	buf     *ConnectedBuffer
	pipe    *engineConn
	conn    *openssl.Conn
	stepper *handshakeStepper
}

func (c *opensslConn) Handshake() error {
	return c.stepper.step(func() error {
		if err := c.conn.Handshake(); err != nil {
			return err
		}
		if c.cfg.mode == ModeClient {
			return c.conn.VerifyHostname(serverName)
		}
		return nil
	})
}

func (c *opensslConn) HandshakeCompleted() bool {
	return c.stepper.completed
}

func (c *opensslConn) NegotiatedCipherSuite() CipherSuite {
	name, err := c.conn.CurrentCipher()
	if err != nil {
		panic(fmt.Sprintf("openssl: no cipher on completed connection: %v", err))
	}
	switch name {
	case "TLS_AES_128_GCM_SHA256":
		return AES128GCMSHA256
	case "TLS_AES_256_GCM_SHA384":
		return AES256GCMSHA384
	default:
		panic(fmt.Sprintf("openssl: negotiated cipher suite %q outside the benchmark grid", name))
	}
}

func (c *opensslConn) NegotiatedTLS13() bool {
	// The context refuses anything below TLS 1.3, so a completed handshake
	// is a TLS 1.3 handshake.
	return c.stepper.completed
}

func (c *opensslConn) Send(data []byte) error {
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("openssl send: %w", err)
	}
	return nil
}

func (c *opensslConn) Recv(data []byte) error {
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return fmt.Errorf("openssl recv: %w", err)
	}
	return nil
}

// ShrinkConnectionBuffers: record scratch lives on the C heap behind the
// memory BIOs; nothing on the Go side to release.
func (c *opensslConn) ShrinkConnectionBuffers() {}

func (c *opensslConn) ShrinkConnectedBuffer() {
	c.buf.Shrink()
}

func (c *opensslConn) ConnectedBuffer() *ConnectedBuffer {
	return c.buf
}

func (c *opensslConn) Close() error {
	err := c.conn.Close()
	c.pipe.Close()
	return err
}
