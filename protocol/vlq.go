package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// vlqMaxBytes is the longest encoding of a 32-bit value
const vlqMaxBytes = 5

// EncodeVLQUint writes v as a Klipper VLQ: seven bits per byte, most
// significant group first, the high bit set on every byte but the last.
// The value is sign-extended on decode, so v < 96 fits one byte and
// values with bit 31 set come back unchanged after the uint32 cast.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	var tmp [vlqMaxBytes]byte
	s := int32(v)
	n := 0
	for shift := uint(28); shift > 0; shift -= 7 {
		lo := -(int32(1) << (shift - 2))
		hi := int32(3) << (shift - 2)
		if n > 0 || s < lo || s >= hi {
			tmp[n] = byte(s>>shift)&0x7F | 0x80
			n++
		}
	}
	tmp[n] = byte(s & 0x7F)
	output.Output(tmp[:n+1])
}

// EncodeVLQBool encodes a flag as 0 or 1
func EncodeVLQBool(output OutputBuffer, v bool) {
	if v {
		EncodeVLQUint(output, 1)
		return
	}
	EncodeVLQUint(output, 0)
}

// DecodeVLQUint reads one VLQ value and advances data past it
func DecodeVLQUint(data *[]byte) (uint32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32(buf[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	i := 1
	for ; c&0x80 != 0; i++ {
		if i >= vlqMaxBytes {
			return 0, ErrInvalidVLQ
		}
		if i >= len(buf) {
			return 0, ErrBufferTooSmall
		}
		c = uint32(buf[i])
		v = v<<7 | c&0x7F
	}

	*data = buf[i:]
	return v, nil
}

// DecodeVLQBool decodes a flag; any non-zero value is true
func DecodeVLQBool(data *[]byte) (bool, error) {
	val, err := DecodeVLQUint(data)
	return val != 0, err
}
