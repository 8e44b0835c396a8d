//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/hd44780"

	"obstacar/core"
	"obstacar/nav"
)

const lcdWidth = 16

// LCD wiring: 4-bit bus, RW tied low
var (
	lcdData = []machine.Pin{machine.GPIO18, machine.GPIO19, machine.GPIO20, machine.GPIO21}
	lcdE    = machine.GPIO17
	lcdRS   = machine.GPIO16
)

// lcdSink shows the status on a 16x2 character display:
//
//	Speed:30% Dir:F
//	Dist:45cm FAR
type lcdSink struct {
	dev  hd44780.Device
	line [lcdWidth]byte
}

func newLCDSink() (*lcdSink, error) {
	dev, err := hd44780.NewGPIO4Bit(lcdData, lcdE, lcdRS, machine.NoPin)
	if err != nil {
		return nil, err
	}
	if err := dev.Configure(hd44780.Config{Width: lcdWidth, Height: 2}); err != nil {
		return nil, err
	}
	dev.ClearDisplay()
	return &lcdSink{dev: dev}, nil
}

func (l *lcdSink) Report(s nav.Status) {
	l.print(0, "Speed:"+core.Utoa(uint32(s.Speed))+"% Dir:"+s.Motion.Letter())
	l.print(1, "Dist:"+core.Utoa(uint32(s.Distance))+"cm "+s.State.String())
	if err := l.dev.Display(); err != nil {
		core.DebugPrintln("[LCD] " + err.Error())
	}
}

// print writes one row, blank padded and cut to the display width
func (l *lcdSink) print(row uint8, text string) {
	n := copy(l.line[:], text)
	for i := n; i < lcdWidth; i++ {
		l.line[i] = ' '
	}
	l.dev.SetCursor(0, row)
	l.dev.Write(l.line[:])
}
