// Package protocol implements the car status link: Klipper-style frames
// carrying VLQ-encoded status reports (car to host) and commands (host to car).
package protocol

// Version is the link protocol version reported by the tools
const Version = "0.1.0"

// Frame layout constants
const (
	MessageMax         = 64 // Maximum frame size
	MessageHeaderSize  = 2  // Length and sequence
	MessageTrailerSize = 3  // CRC16 and sync
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// Sequence byte: low nibble counts frames, high nibble tags the direction
	MessageSeqMask = 0x0F
	MessageDest    = 0x10 // Frames sent to the car
	MessageSource  = 0x00 // Frames sent by the car
)

// Message IDs carried as the first VLQ of a frame payload
const (
	MsgStatus  = 1
	MsgCommand = 2
)
