// Package connection implements the per-socket state the reactor hands
// requests through: a growable receive buffer, a growable send buffer, and
// the non-blocking read/write/re-arm dance described by §4.7 and §5. A Conn
// is exclusively owned by the reactor goroutine that accepted it; nothing
// here takes a lock.
package connection

// initialBufferCapacity is the starting size of every per-connection
// buffer; it doubles whenever a write would overflow the current capacity.
const initialBufferCapacity = 2048

// buffer is a growable byte queue: writes append, reads consume from the
// front. Once every unread byte has been consumed, both ends reset to the
// beginning rather than continuing to advance into previously-freed space,
// so later writes reuse the space already allocated. The backing array is
// never shrunk: a connection keeps the capacity of its largest burst.
type buffer struct {
	data []byte
	off  int
}

func newBuffer() *buffer {
	return &buffer{data: make([]byte, 0, initialBufferCapacity)}
}

// unread returns the unconsumed suffix of the buffer.
func (b *buffer) unread() []byte { return b.data[b.off:] }

// len reports the number of unconsumed bytes.
func (b *buffer) len() int { return len(b.data) - b.off }

// append grows the buffer's backing array if needed and appends p.
func (b *buffer) append(p []byte) {
	if len(b.data)+len(p) > cap(b.data) {
		b.grow(len(b.data) + len(p))
	}
	b.data = append(b.data, p...)
}

func (b *buffer) grow(minCap int) {
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = initialBufferCapacity
	}
	for newCap < minCap {
		newCap *= 2
	}
	grown := make([]byte, b.len(), newCap)
	copy(grown, b.data[b.off:])
	b.data = grown
	b.off = 0
}

// advance marks the first n unread bytes as consumed.
func (b *buffer) advance(n int) {
	b.off += n
	if b.off == len(b.data) {
		b.data = b.data[:0]
		b.off = 0
	}
}

// reset empties the buffer, keeping its current capacity.
func (b *buffer) reset() {
	b.data = b.data[:0]
	b.off = 0
}
