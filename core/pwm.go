// Software PWM support
// Generates PWM on plain GPIO pins from the tick source: every tick the
// channel table is walked and each active pin is driven high or low
// according to its phase in the current cycle.
package core

import "fmt"

// MaxPWMChannels is the size of the channel table
const MaxPWMChannels = 5

// ChannelID indexes the channel table. IDs are handed out in registration order.
type ChannelID uint8

// PWMConfig describes one software PWM output
type PWMConfig struct {
	Pin         GPIOPin
	DutyPercent uint8  // 0 to 100
	FrequencyHz uint32 // > 0
}

// PWMTiming is a channel's cycle split in ticks. On never exceeds Cycle.
type PWMTiming struct {
	Cycle Tick
	On    Tick
}

// RateClock is a Clock that also knows its tick rate
type RateClock interface {
	Clock
	Rate() uint32
}

// pwmChannel is one entry in the channel table. The control loop only
// touches it inside the critical section; the tick handler runs inside it.
type pwmChannel struct {
	pin        GPIOPin
	duty       uint8
	freq       uint32
	timing     PWMTiming
	next       PWMTiming // applied at the next cycle boundary when pending
	pending    bool
	active     bool
	high       bool
	phaseStart Tick
}

// SoftPWM is the software PWM engine
type SoftPWM struct {
	gpio     GPIODriver
	clock    RateClock
	channels [MaxPWMChannels]pwmChannel
	count    int
}

// NewSoftPWM creates the engine and hooks it to the tick event
func NewSoftPWM(gpio GPIODriver, clock RateClock, d *Dispatcher) (*SoftPWM, error) {
	if gpio == nil {
		return nil, fmt.Errorf("pwm gpio: %w", ErrNullReference)
	}
	if clock == nil {
		return nil, fmt.Errorf("pwm clock: %w", ErrNullReference)
	}
	if d == nil {
		return nil, fmt.Errorf("pwm dispatcher: %w", ErrNullReference)
	}
	p := &SoftPWM{gpio: gpio, clock: clock}
	if err := d.Register(EventTick, func() { p.Tick(clock.Now()) }); err != nil {
		return nil, err
	}
	return p, nil
}

// ComputeTiming converts a duty and frequency to tick durations for the given
// tick rate. It fails when the rate cannot resolve one tick per cycle.
func ComputeTiming(rate uint32, dutyPercent uint8, freqHz uint32) (PWMTiming, error) {
	if freqHz == 0 {
		return PWMTiming{}, fmt.Errorf("pwm frequency 0 Hz: %w", ErrConfiguration)
	}
	if dutyPercent > 100 {
		return PWMTiming{}, fmt.Errorf("pwm duty %d%%: %w", dutyPercent, ErrConfiguration)
	}
	cycle := rate / freqHz
	if cycle == 0 {
		return PWMTiming{}, fmt.Errorf("pwm frequency %d Hz exceeds tick rate %d: %w", freqHz, rate, ErrConfiguration)
	}
	on := uint32(uint64(cycle) * uint64(dutyPercent) / 100)
	return PWMTiming{Cycle: Tick(cycle), On: Tick(on)}, nil
}

// Register adds a channel to the table and configures its pin as a low output
func (p *SoftPWM) Register(cfg PWMConfig) (ChannelID, error) {
	timing, err := ComputeTiming(p.clock.Rate(), cfg.DutyPercent, cfg.FrequencyHz)
	if err != nil {
		return 0, err
	}
	if err := p.gpio.ConfigureOutput(cfg.Pin); err != nil {
		return 0, err
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	if p.count >= MaxPWMChannels {
		return 0, fmt.Errorf("pwm channel table full (%d): %w", MaxPWMChannels, ErrConfiguration)
	}
	id := ChannelID(p.count)
	p.channels[id] = pwmChannel{
		pin:    cfg.Pin,
		duty:   cfg.DutyPercent,
		freq:   cfg.FrequencyHz,
		timing: timing,
	}
	p.count++
	return id, nil
}

func (p *SoftPWM) channel(id ChannelID) (*pwmChannel, error) {
	if int(id) >= p.count {
		return nil, fmt.Errorf("pwm channel %d: %w", id, ErrConfiguration)
	}
	return &p.channels[id], nil
}

// Start turns the channel on: the pin goes high and a cycle begins now
func (p *SoftPWM) Start(id ChannelID) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	ch, err := p.channel(id)
	if err != nil {
		return err
	}
	ch.applyPending()
	ch.active = true
	ch.phaseStart = p.clock.Now()
	ch.high = true
	p.gpio.SetPin(ch.pin, true)
	return nil
}

// Stop forces the pin low and turns the channel off. Stopping an inactive
// channel is a no-op.
func (p *SoftPWM) Stop(id ChannelID) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	ch, err := p.channel(id)
	if err != nil {
		return err
	}
	if !ch.active {
		return nil
	}
	ch.active = false
	ch.high = false
	ch.applyPending()
	p.gpio.SetPin(ch.pin, false)
	return nil
}

// Reconfigure changes duty and frequency. A running channel finishes its
// current cycle with the old timing; an idle one takes the new timing at once.
func (p *SoftPWM) Reconfigure(id ChannelID, dutyPercent uint8, freqHz uint32) error {
	timing, err := ComputeTiming(p.clock.Rate(), dutyPercent, freqHz)
	if err != nil {
		return err
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	ch, err := p.channel(id)
	if err != nil {
		return err
	}
	ch.duty = dutyPercent
	ch.freq = freqHz
	if ch.active {
		ch.next = timing
		ch.pending = true
	} else {
		ch.timing = timing
		ch.pending = false
	}
	return nil
}

// Tick advances every active channel to tick now. Runs from the tick handler.
func (p *SoftPWM) Tick(now Tick) {
	for i := 0; i < p.count; i++ {
		ch := &p.channels[i]
		if !ch.active {
			continue
		}
		elapsed := Elapsed(ch.phaseStart, now)
		switch {
		case elapsed < ch.timing.On:
			p.drive(ch, true)
		case elapsed < ch.timing.Cycle:
			p.drive(ch, false)
		default:
			if ch.applyPending() {
				RecordEvent(EvtPWMReconfig, uint8(i), uint32(now), uint32(ch.timing.Cycle), uint32(ch.timing.On))
			}
			ch.phaseStart = now
			p.drive(ch, ch.timing.On > 0)
		}
	}
}

func (p *SoftPWM) drive(ch *pwmChannel, high bool) {
	if ch.high == high {
		return
	}
	ch.high = high
	p.gpio.SetPin(ch.pin, high)
}

// applyPending moves a pending timing into place
func (ch *pwmChannel) applyPending() bool {
	if !ch.pending {
		return false
	}
	ch.timing = ch.next
	ch.pending = false
	return true
}

// Duty returns the most recently requested duty and frequency
func (p *SoftPWM) Duty(id ChannelID) (dutyPercent uint8, freqHz uint32, err error) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	ch, err := p.channel(id)
	if err != nil {
		return 0, 0, err
	}
	return ch.duty, ch.freq, nil
}

// Timing returns the timing currently driving the channel
func (p *SoftPWM) Timing(id ChannelID) (PWMTiming, error) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	ch, err := p.channel(id)
	if err != nil {
		return PWMTiming{}, err
	}
	return ch.timing, nil
}

// Active reports whether the channel is on
func (p *SoftPWM) Active(id ChannelID) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	ch, err := p.channel(id)
	if err != nil {
		return false
	}
	return ch.active
}
