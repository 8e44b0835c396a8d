//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"obstacar/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14
	timerARMED    = timerBase + 0x20
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	timerHz = 1000000

	// Alarm 0 belongs to the TinyGo runtime (time.Sleep)
	alarmBit = 1 << 1
)

var (
	timerRAWL  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerArmed = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerIntr  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

// fineClock reads the low 32 bits of the 1 MHz microsecond counter
var fineClock = core.ClockFunc(func() core.Tick {
	return core.Tick(timerRAWL.Get())
})

// alarmTimer drives the tick source from timer alarm 1. The 64-bit timer
// never stops; the alarm is re-armed one reload ahead on every match.
type alarmTimer struct {
	reload   uint32
	target   uint32
	running  bool
	overflow func()
	irq      interrupt.Interrupt
}

var tickTimer alarmTimer

// initTickTimer binds the alarm interrupt to the tick source
func initTickTimer(overflow func()) *alarmTimer {
	tickTimer.overflow = overflow
	tickTimer.irq = interrupt.New(rp.IRQ_TIMER_IRQ_1, alarmISR)
	tickTimer.irq.SetPriority(0x40)
	return &tickTimer
}

func alarmISR(interrupt.Interrupt) {
	tickTimer.fire()
}

func (t *alarmTimer) ClockHz() uint32 {
	return timerHz
}

func (t *alarmTimer) Width() uint8 {
	return 32
}

func (t *alarmTimer) Dividers() []uint32 {
	return []uint32{1}
}

func (t *alarmTimer) Program(divider, reload uint32) error {
	if divider != 1 || reload == 0 {
		return core.ErrConfiguration
	}
	t.reload = reload
	return nil
}

func (t *alarmTimer) Start() {
	if t.running || t.reload == 0 {
		return
	}
	t.running = true
	t.target = timerRAWL.Get() + t.reload
	timerIntr.Set(alarmBit)
	timerAlarm.Set(t.target)
	timerInte.SetBits(alarmBit)
	t.irq.Enable()
}

func (t *alarmTimer) Stop() {
	t.running = false
	timerInte.ClearBits(alarmBit)
	timerArmed.Set(alarmBit) // write 1 to disarm
	timerIntr.Set(alarmBit)
}

func (t *alarmTimer) fire() {
	timerIntr.Set(alarmBit)
	if !t.running {
		return
	}
	t.target += t.reload
	timerAlarm.Set(t.target)
	if t.overflow != nil {
		t.overflow()
	}
}
