package protocol

// InputBuffer is received link data waiting to be parsed
type InputBuffer interface {
	// Data returns everything buffered as one slice
	Data() []byte

	// Pop drops n bytes from the front
	Pop(n int)
}

// OutputBuffer collects an outgoing frame
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
}

// ScratchOutput is a fixed frame-sized OutputBuffer, so building a frame
// never allocates. Writes past the end are dropped.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < s.pos {
		s.buf[pos] = val
	}
}

// Result returns the frame built so far
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset starts a new frame
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FifoBuffer is the receive ring between a serial reader and the decoder.
// Every slot is usable; Write stops when the ring is full.
type FifoBuffer struct {
	ring  []byte
	flat  []byte // contiguous copy handed out by Data when wrapped
	head  int
	count int
}

// NewFifoBuffer creates a ring holding up to capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		ring: make([]byte, capacity),
		flat: make([]byte, capacity),
	}
}

// Write appends as much of data as fits and returns how many bytes it took
func (f *FifoBuffer) Write(data []byte) int {
	n := 0
	for _, b := range data {
		if f.count == len(f.ring) {
			break
		}
		f.ring[(f.head+f.count)%len(f.ring)] = b
		f.count++
		n++
	}
	return n
}

// Available returns the number of buffered bytes
func (f *FifoBuffer) Available() int {
	return f.count
}

// Free returns the room left
func (f *FifoBuffer) Free() int {
	return len(f.ring) - f.count
}

// Data returns the buffered bytes as one slice. When they wrap they are
// copied into an internal buffer that stays valid until the next call.
func (f *FifoBuffer) Data() []byte {
	end := f.head + f.count
	if end <= len(f.ring) {
		return f.ring[f.head:end]
	}
	n := copy(f.flat, f.ring[f.head:])
	copy(f.flat[n:], f.ring[:end-len(f.ring)])
	return f.flat[:f.count]
}

// Pop drops n bytes from the front
func (f *FifoBuffer) Pop(n int) {
	if n > f.count {
		n = f.count
	}
	if n <= 0 {
		return
	}
	f.head = (f.head + n) % len(f.ring)
	f.count -= n
}

// Reset empties the ring
func (f *FifoBuffer) Reset() {
	f.head, f.count = 0, 0
}
