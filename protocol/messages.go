package protocol

import "errors"

// ErrUnknownCommand is returned for command codes outside the known set
var ErrUnknownCommand = errors.New("unknown command")

// StatusMessage is the car's periodic report. Enumerations travel as their
// numeric values; distance is sent in whole millimetres.
type StatusMessage struct {
	State      uint8
	Motion     uint8
	Speed      uint8
	Turn       uint8
	DistanceMM uint32
	Attempts   uint8
	Running    bool
}

// Encode writes the message ID and fields
func (m StatusMessage) Encode(out OutputBuffer) {
	EncodeVLQUint(out, MsgStatus)
	EncodeVLQUint(out, uint32(m.State))
	EncodeVLQUint(out, uint32(m.Motion))
	EncodeVLQUint(out, uint32(m.Speed))
	EncodeVLQUint(out, uint32(m.Turn))
	EncodeVLQUint(out, m.DistanceMM)
	EncodeVLQUint(out, uint32(m.Attempts))
	EncodeVLQBool(out, m.Running)
}

// DecodeStatus reads the fields of a status message whose ID has already
// been consumed
func DecodeStatus(data *[]byte) (StatusMessage, error) {
	var m StatusMessage
	var fields [6]uint32
	for i := range fields {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return m, err
		}
		fields[i] = v
	}
	running, err := DecodeVLQBool(data)
	if err != nil {
		return m, err
	}
	m.State = uint8(fields[0])
	m.Motion = uint8(fields[1])
	m.Speed = uint8(fields[2])
	m.Turn = uint8(fields[3])
	m.DistanceMM = fields[4]
	m.Attempts = uint8(fields[5])
	m.Running = running
	return m, nil
}

// Command is a request from the host
type Command uint8

const (
	CmdStart     Command = 1 // Start a run (direction selection first)
	CmdStop      Command = 2 // Stop immediately
	CmdDirection Command = 3 // Same as a direction button press
)

func (c Command) String() string {
	switch c {
	case CmdStart:
		return "start"
	case CmdStop:
		return "stop"
	case CmdDirection:
		return "dir"
	default:
		return "unknown"
	}
}

// Encode writes the message ID and the command
func (c Command) Encode(out OutputBuffer) {
	EncodeVLQUint(out, MsgCommand)
	EncodeVLQUint(out, uint32(c))
}

// DecodeCommand reads a command whose message ID has already been consumed
func DecodeCommand(data *[]byte) (Command, error) {
	v, err := DecodeVLQUint(data)
	if err != nil {
		return 0, err
	}
	c := Command(v)
	if c < CmdStart || c > CmdDirection {
		return 0, ErrUnknownCommand
	}
	return c, nil
}
