//go:build !tinygo

package protocol

import (
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostTransportReceivesStatus(t *testing.T) {
	carEnd, hostEnd := net.Pipe()
	defer carEnd.Close()
	host := NewHostTransport(hostEnd)
	defer host.Close()

	var handled []StatusMessage
	done := make(chan struct{}, 1)
	host.SetStatusHandler(func(m StatusMessage) {
		handled = append(handled, m)
		done <- struct{}{}
	})

	car := NewTransport(carEnd, nil)
	want := StatusMessage{State: 3, Motion: 1, Speed: 30, DistanceMM: 455, Running: true}
	go car.SendStatus(want)

	got, err := host.ReceiveStatus(time.Second)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	<-done
	assert.Equal(t, []StatusMessage{want}, handled)
	last, ok := host.LastStatus()
	assert.True(t, ok)
	assert.Equal(t, want, last)
	assert.EqualValues(t, 1, host.Decoder().Frames())
}

func TestHostTransportSendsCommands(t *testing.T) {
	carEnd, hostEnd := net.Pipe()
	defer carEnd.Close()
	host := NewHostTransport(hostEnd)
	defer host.Close()

	got := make(chan Command, 4)
	car := NewTransport(carEnd, func(c Command) { got <- c })
	go func() {
		fifo := NewFifoBuffer(128)
		buf := make([]byte, 64)
		for {
			n, err := carEnd.Read(buf)
			if err != nil {
				return
			}
			fifo.Write(buf[:n])
			car.Receive(fifo)
		}
	}()

	for _, cmd := range []Command{CmdStart, CmdDirection, CmdStop} {
		require.NoError(t, host.SendCommand(cmd))
		select {
		case c := <-got:
			assert.Equal(t, cmd, c)
		case <-time.After(time.Second):
			t.Fatalf("command %s not received", cmd)
		}
	}
}

func TestHostTransportTimeoutAndClose(t *testing.T) {
	carEnd, hostEnd := net.Pipe()
	defer carEnd.Close()
	host := NewHostTransport(hostEnd)

	_, err := host.ReceiveStatus(10 * time.Millisecond)
	assert.Equal(t, ErrTimeout, errors.Cause(err))
	_, ok := host.LastStatus()
	assert.False(t, ok)

	require.NoError(t, host.Close())
	assert.NoError(t, host.Close())
	assert.Equal(t, ErrClosed, host.SendCommand(CmdStop))
	_, err = host.ReceiveStatus(time.Second)
	assert.Equal(t, ErrClosed, err)
}
