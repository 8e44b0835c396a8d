package nav

import (
	"sync/atomic"

	"obstacar/core"
	"obstacar/protocol"
)

// Message converts the status to its link form
func (s Status) Message() protocol.StatusMessage {
	var mm uint32
	if s.Distance > 0 {
		mm = uint32(s.Distance*10 + 0.5)
	}
	return protocol.StatusMessage{
		State:      uint8(s.State),
		Motion:     uint8(s.Motion),
		Speed:      s.Speed,
		Turn:       uint8(s.Turn),
		DistanceMM: mm,
		Attempts:   s.Attempts,
		Running:    s.Running,
	}
}

// StatusFromMessage converts a received status report back
func StatusFromMessage(m protocol.StatusMessage) Status {
	return Status{
		State:    State(m.State),
		Motion:   Motion(m.Motion),
		Speed:    m.Speed,
		Turn:     Direction(m.Turn),
		Distance: float32(m.DistanceMM) / 10,
		Attempts: m.Attempts,
		Running:  m.Running,
	}
}

// LinkSink sends every reported status over the link
type LinkSink struct {
	t      *protocol.Transport
	failed uint32
}

// NewLinkSink creates a sink writing to t
func NewLinkSink(t *protocol.Transport) *LinkSink {
	return &LinkSink{t: t}
}

func (l *LinkSink) Report(s Status) {
	if err := l.t.SendStatus(s.Message()); err != nil {
		if atomic.AddUint32(&l.failed, 1) == 1 {
			core.DebugPrintln("[LINK] send failed: " + err.Error())
		}
	}
}

// Failed returns the number of reports that could not be sent
func (l *LinkSink) Failed() uint32 {
	return atomic.LoadUint32(&l.failed)
}

// Sinks fans a report out to several sinks
type Sinks []StatusSink

func (s Sinks) Report(st Status) {
	for _, sink := range s {
		sink.Report(st)
	}
}

// CommandHandler applies link commands to the run and direction latches, the
// same way the buttons do
func CommandHandler(run, dir *Latch) protocol.CommandHandler {
	return func(cmd protocol.Command) {
		switch cmd {
		case protocol.CmdStart:
			run.Set(true)
		case protocol.CmdStop:
			run.Set(false)
		case protocol.CmdDirection:
			dir.Toggle()
		}
	}
}
