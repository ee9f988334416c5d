package tlsbench

// initialQueueCapacity pre-sizes both queues of a fresh pipe so that a
// handshake does not trigger reallocation noise during measurement.
const initialQueueCapacity = 10000

// byteQueue is a FIFO over a single contiguous slice. Reads advance a head
// index instead of reslicing so that spare capacity survives a drain and can
// be reused by the next write.
type byteQueue struct {
	buf  []byte
	head int
}

func newByteQueue() *byteQueue {
	return &byteQueue{buf: make([]byte, 0, initialQueueCapacity)}
}

func (q *byteQueue) len() int {
	return len(q.buf) - q.head
}

func (q *byteQueue) write(p []byte) {
	q.buf = append(q.buf, p...)
}

func (q *byteQueue) read(p []byte) int {
	n := copy(p, q.buf[q.head:])
	q.head += n
	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
	}
	return n
}

// shrink drops the contents and the backing array. The next write
// reallocates from scratch.
func (q *byteQueue) shrink() {
	q.buf = nil
	q.head = 0
}

// ConnectedBuffer is one endpoint's view of an in-memory duplex pipe: it
// reads from one queue and writes to the other. The two queues are shared
// with the peer endpoint, whose view is obtained from Inverse; what one side
// writes, the other reads. Each queue has a single writer, so no locking is
// needed as long as the two endpoints are stepped cooperatively.
type ConnectedBuffer struct {
	recv *byteQueue
	send *byteQueue
}

// NewConnectedBuffer creates a fresh pipe with two empty, pre-sized queues.
// The returned handle is one endpoint; derive the peer's endpoint with
// Inverse.
func NewConnectedBuffer() *ConnectedBuffer {
	return &ConnectedBuffer{recv: newByteQueue(), send: newByteQueue()}
}

// Inverse returns the peer's view of the same pipe: the queue this handle
// sends to is the queue the inverse receives from, and vice versa.
func (b *ConnectedBuffer) Inverse() *ConnectedBuffer {
	return &ConnectedBuffer{recv: b.send, send: b.recv}
}

// Read pops up to len(p) bytes from the receive queue. An empty queue yields
// ErrWouldBlock: no data right now, not end-of-stream.
func (b *ConnectedBuffer) Read(p []byte) (int, error) {
	if b.recv.len() == 0 {
		return 0, ErrWouldBlock
	}
	return b.recv.read(p), nil
}

// Write appends all of p to the send queue. It cannot fail and never blocks;
// the data is immediately visible to the paired reader.
func (b *ConnectedBuffer) Write(p []byte) (int, error) {
	b.send.write(p)
	return len(p), nil
}

// Flush is a no-op: writes are visible to the peer as soon as Write returns.
func (b *ConnectedBuffer) Flush() error {
	return nil
}

// Shrink clears both queues and releases their backing storage. Only call
// between measurement phases, never mid-handshake: pending records are lost.
func (b *ConnectedBuffer) Shrink() {
	b.recv.shrink()
	b.send.shrink()
}

// Equal reports whether two handles are views of the same queue pair with
// the same orientation. This is identity of the underlying queues, not
// content comparison.
func (b *ConnectedBuffer) Equal(other *ConnectedBuffer) bool {
	return b.recv == other.recv && b.send == other.send
}

// IsInverseOf reports whether other is the peer view of this handle's pipe:
// this side's receive queue is the other side's send queue and vice versa.
func (b *ConnectedBuffer) IsInverseOf(other *ConnectedBuffer) bool {
	return b.recv == other.send && b.send == other.recv
}
