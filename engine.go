package tlsbench

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// engineConn presents the blocking net.Conn contract that stream-oriented TLS
// engines expect on top of a non-blocking ConnectedBuffer. While the
// handshake is in flight the engine runs on its own goroutine; a read that
// finds the receive queue empty parks that goroutine until the orchestrator's
// next step has let the peer produce data. After the handshake the engine
// goroutine is gone and an empty read means the peer never sent enough, which
// is ErrTransportExhausted.
//
// The parking is a rendezvous, not concurrency: between step boundaries at
// most one goroutine is runnable, so measurement stays deterministic.
type engineConn struct {
	buf *ConnectedBuffer

	handshaking bool
	stallCh     chan struct{}
	resumeCh    chan struct{}

	closeOnce sync.Once
	closeCh   chan struct{}
}

func newEngineConn(buf *ConnectedBuffer) *engineConn {
	return &engineConn{
		buf:         buf,
		handshaking: true,
		stallCh:     make(chan struct{}),
		resumeCh:    make(chan struct{}),
		closeCh:     make(chan struct{}),
	}
}

func (c *engineConn) Read(p []byte) (int, error) {
	for {
		n, err := c.buf.Read(p)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			return n, err
		}
		if !c.handshaking {
			return 0, ErrTransportExhausted
		}
		// Hand control back to the stepper, then wait for the next step.
		select {
		case c.stallCh <- struct{}{}:
		case <-c.closeCh:
			return 0, io.ErrClosedPipe
		}
		select {
		case <-c.resumeCh:
		case <-c.closeCh:
			return 0, io.ErrClosedPipe
		}
	}
}

func (c *engineConn) Write(p []byte) (int, error) {
	select {
	case <-c.closeCh:
		return 0, io.ErrClosedPipe
	default:
	}
	return c.buf.Write(p)
}

// Close unparks a waiting engine goroutine so an abandoned mid-handshake
// connection cannot leak it. The ConnectedBuffer itself is not touched; the
// peer may still drain it.
func (c *engineConn) Close() error {
	c.closeOnce.Do(func() { close(c.closeCh) })
	return nil
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "tlsbench" }
func (pipeAddr) String() string  { return "tlsbench" }

func (c *engineConn) LocalAddr() net.Addr  { return pipeAddr{} }
func (c *engineConn) RemoteAddr() net.Addr { return pipeAddr{} }

// Deadlines are meaningless on a cooperatively stepped pipe.
func (c *engineConn) SetDeadline(t time.Time) error      { return nil }
func (c *engineConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *engineConn) SetWriteDeadline(t time.Time) error { return nil }

// handshakeStepper drives a blocking handshake function one cooperative step
// at a time. The first step starts the engine goroutine; each step lets the
// engine run until it either parks on an empty receive queue (no progress
// possible, not an error) or finishes. The step call returns in both cases,
// so the orchestrator can alternate sides without either ever blocking on the
// other.
type handshakeStepper struct {
	pipe      *engineConn
	started   bool
	completed bool
	done      chan struct{}
	err       error
}

func newHandshakeStepper(pipe *engineConn) *handshakeStepper {
	return &handshakeStepper{pipe: pipe, done: make(chan struct{})}
}

func (s *handshakeStepper) step(handshake func() error) error {
	if s.completed {
		return nil
	}
	if !s.started {
		s.started = true
		go func() {
			s.err = handshake()
			close(s.done)
		}()
	} else {
		// The engine is either parked on resumeCh or already finished.
		select {
		case s.pipe.resumeCh <- struct{}{}:
		case <-s.done:
			return s.finish()
		}
	}
	select {
	case <-s.pipe.stallCh:
		// The engine wants peer data that does not exist yet.
		return nil
	case <-s.done:
		return s.finish()
	}
}

func (s *handshakeStepper) finish() error {
	if s.err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, s.err)
	}
	s.completed = true
	s.pipe.handshaking = false
	return nil
}
