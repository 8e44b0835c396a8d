package protocol

import (
	"errors"
	"io"
	"sync/atomic"
)

// ErrFrameTooLarge is returned when a payload does not fit in one frame
var ErrFrameTooLarge = errors.New("frame exceeds MessageMax")

// FrameHandler receives each valid frame's sequence byte and payload. The
// payload aliases the receive buffer and is only valid during the call.
type FrameHandler func(seq uint8, payload []byte)

// Decoder splits a byte stream into frames. A bad length, sequence tag,
// trailing sync byte or CRC drops synchronisation; the decoder then skips to
// the next sync byte and carries on.
type Decoder struct {
	dest   uint8  // expected high nibble of the sequence byte
	synced uint32 // atomic bool
	frames uint32 // atomic
	errs   uint32 // atomic
}

// NewDecoder creates a decoder accepting frames tagged dest
// (MessageDest on the car, MessageSource on the host)
func NewDecoder(dest uint8) *Decoder {
	return &Decoder{dest: dest, synced: 1}
}

// Feed parses as many complete frames as data holds and returns how many
// bytes were consumed. A trailing partial frame is left unconsumed.
func (d *Decoder) Feed(data []byte, fn FrameHandler) int {
	total := len(data)

	for len(data) > 0 {
		if !d.Synchronized() {
			// Look for sync byte to resynchronize
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			d.setSynchronized(true)
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		// Need at least minimum message length
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageMax {
			d.fail()
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != d.dest {
			d.fail()
			continue
		}

		// Wait for full message
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.fail()
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.fail()
			continue
		}

		payload := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]
		atomic.AddUint32(&d.frames, 1)
		if fn != nil {
			fn(seq, payload)
		}
	}

	return total - len(data)
}

// Receive feeds everything buffered in input and pops what was consumed
func (d *Decoder) Receive(input InputBuffer, fn FrameHandler) {
	consumed := d.Feed(input.Data(), fn)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// Frames returns the number of valid frames decoded
func (d *Decoder) Frames() uint32 {
	return atomic.LoadUint32(&d.frames)
}

// Errors returns the number of times synchronisation was lost
func (d *Decoder) Errors() uint32 {
	return atomic.LoadUint32(&d.errs)
}

// Synchronized reports whether the decoder is aligned on frame boundaries
func (d *Decoder) Synchronized() bool {
	return atomic.LoadUint32(&d.synced) != 0
}

func (d *Decoder) fail() {
	atomic.AddUint32(&d.errs, 1)
	d.setSynchronized(false)
}

func (d *Decoder) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&d.synced, 1)
	} else {
		atomic.StoreUint32(&d.synced, 0)
	}
}

// Encoder frames payloads and writes them out. Every frame carries the next
// sequence number in the low nibble and the direction tag in the high nibble.
type Encoder struct {
	w       io.Writer
	tag     uint8
	seq     uint8
	scratch ScratchOutput
}

// NewEncoder creates an encoder tagging frames with tag
// (MessageSource on the car, MessageDest on the host)
func NewEncoder(w io.Writer, tag uint8) *Encoder {
	return &Encoder{w: w, tag: tag}
}

// EncodeFrame builds one frame from the payload writer and sends it
func (e *Encoder) EncodeFrame(payload func(output OutputBuffer)) error {
	e.scratch.Reset()

	// Header: length placeholder and sequence
	e.scratch.Output([]byte{0, e.tag | e.seq})
	payload(&e.scratch)

	body := e.scratch.CurPosition()
	if body+MessageTrailerSize > MessageMax {
		return ErrFrameTooLarge
	}
	e.scratch.Update(MessagePositionLen, uint8(body+MessageTrailerSize))

	appendCRC(&e.scratch, e.scratch.Result())
	e.scratch.Output([]byte{MessageValueSync})

	e.seq = (e.seq + 1) & MessageSeqMask
	_, err := e.w.Write(e.scratch.Result())
	return err
}

// Sequence returns the sequence number the next frame will carry
func (e *Encoder) Sequence() uint8 {
	return e.seq
}

// CommandHandler is called for every command received by the car
type CommandHandler func(cmd Command)

// Transport is the car's end of the link: it sends status frames and turns
// received command frames into CommandHandler calls.
type Transport struct {
	enc     *Encoder
	dec     *Decoder
	handler CommandHandler
}

// NewTransport creates the car-side transport writing frames to w
func NewTransport(w io.Writer, handler CommandHandler) *Transport {
	return &Transport{
		enc:     NewEncoder(w, MessageSource),
		dec:     NewDecoder(MessageDest),
		handler: handler,
	}
}

// SendStatus frames and writes one status report
func (t *Transport) SendStatus(m StatusMessage) error {
	return t.enc.EncodeFrame(m.Encode)
}

// Receive processes incoming data from the input buffer
func (t *Transport) Receive(input InputBuffer) {
	t.dec.Receive(input, t.parseFrame)
}

// parseFrame dispatches every message in a frame; unknown IDs end the frame
func (t *Transport) parseFrame(seq uint8, frame []byte) {
	for len(frame) > 0 {
		id, err := DecodeVLQUint(&frame)
		if err != nil {
			return
		}
		switch id {
		case MsgCommand:
			cmd, err := DecodeCommand(&frame)
			if err != nil {
				return
			}
			if t.handler != nil {
				t.handler(cmd)
			}
		default:
			return
		}
	}
}

// Decoder returns the receive-side decoder, for its counters
func (t *Transport) Decoder() *Decoder {
	return t.dec
}
