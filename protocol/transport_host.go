//go:build !tinygo

package protocol

import (
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	ErrTimeout = errors.New("timed out")
	ErrClosed  = errors.New("transport closed")
)

// StatusHandler is called from the read loop for every status report
type StatusHandler func(m StatusMessage)

// HostTransport is the host's end of the link. A background reader decodes
// status frames from the car; commands are written without acknowledgement.
type HostTransport struct {
	// Serial I/O
	port io.ReadWriteCloser

	enc         *Encoder
	dec         *Decoder
	inputBuffer *FifoBuffer

	// Channel for status reports, oldest dropped when full
	statusChan chan StatusMessage

	mu            sync.Mutex
	statusHandler StatusHandler
	last          StatusMessage
	haveLast      bool

	writeMutex sync.Mutex

	closeOnce sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewHostTransport creates a host-side transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:        port,
		dec:         NewDecoder(MessageSource),
		inputBuffer: NewFifoBuffer(512),
		statusChan:  make(chan StatusMessage, 16),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
	t.enc = NewEncoder(port, MessageDest)

	go t.readLoop()

	return t
}

// SendCommand frames and writes one command
func (t *HostTransport) SendCommand(cmd Command) error {
	select {
	case <-t.stopChan:
		return ErrClosed
	default:
	}

	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	if err := t.enc.EncodeFrame(cmd.Encode); err != nil {
		return errors.Wrapf(err, "send %s", cmd)
	}
	return nil
}

// ReceiveStatus waits for the next status report
func (t *HostTransport) ReceiveStatus(timeout time.Duration) (StatusMessage, error) {
	select {
	case m := <-t.statusChan:
		return m, nil

	case <-time.After(timeout):
		return StatusMessage{}, errors.Wrapf(ErrTimeout, "no status after %v", timeout)

	case <-t.stopChan:
		return StatusMessage{}, ErrClosed
	}
}

// SetStatusHandler sets a callback for status reports
func (t *HostTransport) SetStatusHandler(handler StatusHandler) {
	t.mu.Lock()
	t.statusHandler = handler
	t.mu.Unlock()
}

// LastStatus returns the most recent status report, if any arrived
func (t *HostTransport) LastStatus() (StatusMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.haveLast
}

// Decoder returns the receive-side decoder, for its counters
func (t *HostTransport) Decoder() *Decoder {
	return t.dec
}

// readLoop continuously reads from the port and decodes frames
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			t.inputBuffer.Write(buffer[:n])
			t.dec.Receive(t.inputBuffer, t.parseFrame)
		}
		if err != nil {
			if err == io.EOF || errors.Cause(err) == io.ErrClosedPipe {
				return
			}
			select {
			case <-t.stopChan:
				return
			default:
			}
			glog.V(1).Infof("link read: %v", err)
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// parseFrame decodes the messages of one frame from the car
func (t *HostTransport) parseFrame(seq uint8, frame []byte) {
	for len(frame) > 0 {
		id, err := DecodeVLQUint(&frame)
		if err != nil {
			return
		}
		if id != MsgStatus {
			glog.V(2).Infof("link: unknown message id %d in frame %#02x", id, seq)
			return
		}
		m, err := DecodeStatus(&frame)
		if err != nil {
			glog.V(1).Infof("link: bad status: %v", err)
			return
		}
		t.dispatchStatus(m)
	}
}

func (t *HostTransport) dispatchStatus(m StatusMessage) {
	t.mu.Lock()
	t.last = m
	t.haveLast = true
	handler := t.statusHandler
	t.mu.Unlock()

	if handler != nil {
		handler(m)
	}

	select {
	case t.statusChan <- m:
	default:
		// Channel full, drop oldest
		select {
		case <-t.statusChan:
		default:
		}
		select {
		case t.statusChan <- m:
		default:
		}
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}
