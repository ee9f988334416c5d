package tlsbench

import "fmt"

// handshakeRounds is the number of client-step/server-step alternations the
// orchestrator performs. Two full rounds complete a TLS 1.3 handshake on
// every supported backend; the completion check afterwards catches any flow
// (retry, cookie, future protocol shape) that needs more.
const handshakeRounds = 2

// ConnPair composes a client and a server connection bound to inverse views
// of one duplex pipe, and drives them as two simulated network peers on a
// single goroutine.
type ConnPair struct {
	Client Connection
	Server Connection
}

// NewConnPair builds both sides over a fresh pipe from the given parameters.
// The server owns the pipe's creator view and the client the inverse, so what
// either sends the other receives.
func NewConnPair(client, server Backend, crypto CryptoConfig, handshake HandshakeType) (*ConnPair, error) {
	clientCfg, err := client.MakeConfig(ModeClient, crypto, handshake)
	if err != nil {
		return nil, fmt.Errorf("%s client config: %w", client.Name(), err)
	}
	serverCfg, err := server.MakeConfig(ModeServer, crypto, handshake)
	if err != nil {
		return nil, fmt.Errorf("%s server config: %w", server.Name(), err)
	}
	buf := NewConnectedBuffer()
	clientConn, err := client.NewConnection(clientCfg, buf.Inverse())
	if err != nil {
		return nil, fmt.Errorf("%s client connection: %w", client.Name(), err)
	}
	serverConn, err := server.NewConnection(serverCfg, buf)
	if err != nil {
		clientConn.Close()
		return nil, fmt.Errorf("%s server connection: %w", server.Name(), err)
	}
	return &ConnPair{Client: clientConn, Server: serverConn}, nil
}

// NewDefaultConnPair builds a same-backend pair with the default parameters.
func NewDefaultConnPair(backend Backend) (*ConnPair, error) {
	return NewConnPair(backend, backend, CryptoConfig{}, ServerAuth)
}

// WrapConnPair composes two pre-built connections. The connections' transport
// endpoints must be mutual inverses of one pipe; anything else is a caller
// defect and panics rather than silently corrupting results.
func WrapConnPair(client, server Connection) *ConnPair {
	if !client.ConnectedBuffer().IsInverseOf(server.ConnectedBuffer()) {
		panic("tlsbench: connected buffers don't match")
	}
	return &ConnPair{Client: client, Server: server}
}

// Handshake alternates one client step and one server step for a fixed
// number of rounds, then verifies both sides completed. A step that made no
// progress is not an error; a side that fails aborts immediately.
func (p *ConnPair) Handshake() error {
	for i := 0; i < handshakeRounds; i++ {
		if err := p.Client.Handshake(); err != nil {
			return fmt.Errorf("client: %w", err)
		}
		if err := p.Server.Handshake(); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	if !p.HandshakeCompleted() {
		return fmt.Errorf("%w: not complete after %d rounds", ErrHandshakeFailed, handshakeRounds)
	}
	return nil
}

// HandshakeCompleted reports whether both sides finished negotiating.
func (p *ConnPair) HandshakeCompleted() bool {
	return p.Client.HandshakeCompleted() && p.Server.HandshakeCompleted()
}

// NegotiatedCipherSuite returns the suite both sides agreed on. An
// asymmetric result is a harness bug and panics.
func (p *ConnPair) NegotiatedCipherSuite() CipherSuite {
	if !p.HandshakeCompleted() {
		panic("tlsbench: negotiated cipher suite queried before handshake completion")
	}
	client, server := p.Client.NegotiatedCipherSuite(), p.Server.NegotiatedCipherSuite()
	if client != server {
		panic(fmt.Sprintf("tlsbench: asymmetric negotiation: client %s, server %s", client, server))
	}
	return client
}

// NegotiatedTLS13 reports whether both sides negotiated TLS 1.3.
func (p *ConnPair) NegotiatedTLS13() bool {
	return p.Client.NegotiatedTLS13() && p.Server.NegotiatedTLS13()
}

// RoundTripTransfer echoes data client -> server -> client, decrypting into
// data in place on each receiving leg. Any failing leg aborts the whole
// operation.
func (p *ConnPair) RoundTripTransfer(data []byte) error {
	if err := p.Client.Send(data); err != nil {
		return fmt.Errorf("client send: %w", err)
	}
	if err := p.Server.Recv(data); err != nil {
		return fmt.Errorf("server recv: %w", err)
	}
	if err := p.Server.Send(data); err != nil {
		return fmt.Errorf("server send: %w", err)
	}
	if err := p.Client.Recv(data); err != nil {
		return fmt.Errorf("client recv: %w", err)
	}
	return nil
}

// ShrinkConnectionBuffers releases both sides' protocol scratch space.
func (p *ConnPair) ShrinkConnectionBuffers() {
	p.Client.ShrinkConnectionBuffers()
	p.Server.ShrinkConnectionBuffers()
}

// ShrinkConnectedBuffers releases both sides' transport queues. Call only
// after ShrinkConnectionBuffers: protocol buffers may reference transport
// memory, and releasing the transport first would leave that memory
// still-reachable in heap snapshots.
func (p *ConnPair) ShrinkConnectedBuffers() {
	p.Client.ShrinkConnectedBuffer()
	p.Server.ShrinkConnectedBuffer()
}

// Close releases both connections.
func (p *ConnPair) Close() error {
	clientErr := p.Client.Close()
	serverErr := p.Server.Close()
	if clientErr != nil {
		return clientErr
	}
	return serverErr
}
