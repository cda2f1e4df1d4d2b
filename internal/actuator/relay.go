package actuator

import (
	"fmt"
	"log/slog"

	"fanctl/internal/config"
	"fanctl/internal/control"

	"github.com/stianeikeland/go-rpio/v4"
)

// relayPin is the subset of rpio.Pin the bank drives.
type relayPin interface {
	Output()
	High()
	Low()
}

// RelayBank switches the two relay outputs.
type RelayBank struct {
	pins      [control.RelayCount]relayPin
	activeLow bool
	states    [control.RelayCount]bool
	closer    func() error
	logger    *slog.Logger
}

func newRelayBank(pins [control.RelayCount]relayPin, activeLow bool, closer func() error, logger *slog.Logger) *RelayBank {
	if logger == nil {
		logger = slog.Default()
	}
	b := &RelayBank{
		pins:      pins,
		activeLow: activeLow,
		closer:    closer,
		logger:    logger.With("component", "relays"),
	}
	for i, p := range b.pins {
		p.Output()
		b.write(control.RelayID(i), false)
	}
	return b
}

// OpenRelayBank maps /dev/gpiomem and configures both relay pins as outputs,
// switched off.
func OpenRelayBank(pins config.RelayPins, logger *slog.Logger) (*RelayBank, error) {
	if len(pins.Pins) != control.RelayCount {
		return nil, fmt.Errorf("want %d relay pins, got %d", control.RelayCount, len(pins.Pins))
	}
	for _, n := range pins.Pins {
		if n < 0 || n > config.MaxBCMPin {
			return nil, fmt.Errorf("invalid relay pin %d", n)
		}
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}

	var rp [control.RelayCount]relayPin
	for i, n := range pins.Pins {
		rp[i] = rpio.Pin(n)
	}
	return newRelayBank(rp, pins.ActiveLow, rpio.Close, logger), nil
}

// NewSimulatedRelayBank returns a bank of in-memory latches.
func NewSimulatedRelayBank(logger *slog.Logger) *RelayBank {
	var rp [control.RelayCount]relayPin
	for i := range rp {
		rp[i] = &Latch{}
	}
	return newRelayBank(rp, false, nil, logger)
}

func (b *RelayBank) SetRelay(id control.RelayID, on bool) error {
	if id < 0 || int(id) >= control.RelayCount {
		return fmt.Errorf("unknown relay %d", id)
	}
	b.write(id, on)
	if b.states[id] != on {
		b.logger.Debug("relay pin written", "relay", int(id)+1, "on", on)
	}
	b.states[id] = on
	return nil
}

// States returns the last written state of each relay.
func (b *RelayBank) States() [control.RelayCount]bool {
	return b.states
}

// Close switches both relays off and unmaps the GPIO memory.
func (b *RelayBank) Close() error {
	for i := range b.pins {
		b.write(control.RelayID(i), false)
		b.states[i] = false
	}
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

func (b *RelayBank) write(id control.RelayID, on bool) {
	if on != b.activeLow {
		b.pins[id].High()
	} else {
		b.pins[id].Low()
	}
}

// Latch is an in-memory relay pin.
type Latch struct {
	IsOutput bool
	IsHigh   bool
}

func (l *Latch) Output() { l.IsOutput = true }
func (l *Latch) High()   { l.IsHigh = true }
func (l *Latch) Low()    { l.IsHigh = false }
