package nav

import (
	"bytes"
	"errors"
	"testing"

	"obstacar/protocol"
)

func TestStatusMessageConversion(t *testing.T) {
	s := Status{
		State:    StateMid,
		Motion:   MotionReverseLeft,
		Speed:    30,
		Turn:     Left,
		Distance: 25.46,
		Attempts: 2,
		Running:  true,
	}
	m := s.Message()
	if m.DistanceMM != 255 {
		t.Errorf("DistanceMM = %d, want 255", m.DistanceMM)
	}
	back := StatusFromMessage(m)
	s.Distance = 25.5
	if back != s {
		t.Errorf("StatusFromMessage = %+v, want %+v", back, s)
	}
}

func TestLinkSinkSendsFrames(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLinkSink(protocol.NewTransport(&buf, nil))
	sink.Report(Status{State: StateFar, Motion: MotionForward, Speed: 30, Distance: 45, Running: true})

	var got []Status
	dec := protocol.NewDecoder(protocol.MessageSource)
	dec.Feed(buf.Bytes(), func(seq uint8, payload []byte) {
		if _, err := protocol.DecodeVLQUint(&payload); err != nil {
			t.Fatal(err)
		}
		m, err := protocol.DecodeStatus(&payload)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, StatusFromMessage(m))
	})
	if len(got) != 1 || got[0].State != StateFar || got[0].Distance != 45 {
		t.Errorf("decoded %+v", got)
	}
	if sink.Failed() != 0 {
		t.Errorf("Failed() = %d", sink.Failed())
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("unplugged") }

func TestLinkSinkCountsFailures(t *testing.T) {
	sink := NewLinkSink(protocol.NewTransport(failWriter{}, nil))
	sink.Report(Status{})
	sink.Report(Status{Speed: 30})
	if sink.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", sink.Failed())
	}
}

func TestSinksFanOut(t *testing.T) {
	a, b := &recordSink{}, &recordSink{}
	Sinks{a, b}.Report(Status{Speed: 50})
	if len(a.reports) != 1 || len(b.reports) != 1 {
		t.Errorf("reports a=%d b=%d, want 1 each", len(a.reports), len(b.reports))
	}
}

func TestCommandHandler(t *testing.T) {
	var run, dir Latch
	h := CommandHandler(&run, &dir)

	h(protocol.CmdStart)
	if !run.Get() {
		t.Error("start did not set the run latch")
	}
	h(protocol.CmdDirection)
	h(protocol.CmdDirection)
	h(protocol.CmdDirection)
	if !dir.Get() {
		t.Error("three direction presses should leave the latch set")
	}
	h(protocol.CmdStop)
	if run.Get() {
		t.Error("stop did not clear the run latch")
	}
}
