package protocol

// CRC16 calculates the CRC16-CCITT checksum covering a frame's header and
// payload. Same polynomial and bit order as the Klipper serial protocol.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// appendCRC appends the big-endian CRC of data
func appendCRC(out OutputBuffer, data []byte) {
	crc := CRC16(data)
	out.Output([]byte{uint8(crc >> 8), uint8(crc & 0xFF)})
}
