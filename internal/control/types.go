package control

import (
	"fmt"
	"math"
)

// SpeedLevel is a discrete fan speed tier.
type SpeedLevel int

const (
	LevelLow SpeedLevel = iota
	LevelMedium
	LevelHigh
	LevelMax
)

// dutyCycles maps each SpeedLevel to its PWM duty cycle on a 0-255 scale.
var dutyCycles = [...]uint8{
	LevelLow:    64,
	LevelMedium: 128,
	LevelHigh:   192,
	LevelMax:    255,
}

// Valid reports whether l is one of the defined levels.
func (l SpeedLevel) Valid() bool {
	return l >= LevelLow && l <= LevelMax
}

// DutyCycle returns the duty cycle for l, or ErrInvalidLevel.
func (l SpeedLevel) DutyCycle() (uint8, error) {
	if !l.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, int(l))
	}
	return dutyCycles[l], nil
}

type Mode int

const (
	ModeAuto Mode = iota
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Reading is a single temperature (°C) and relative humidity (%) sample.
type Reading struct {
	Temperature float64
	Humidity    float64
}

// Valid is false when either field is NaN.
func (r Reading) Valid() bool {
	return !math.IsNaN(r.Temperature) && !math.IsNaN(r.Humidity)
}

// FanCommand is the fan state requested by the policy for one iteration.
type FanCommand struct {
	Enabled bool
	Level   SpeedLevel
}

func (c FanCommand) String() string {
	if !c.Enabled {
		return "off"
	}
	return fmt.Sprintf("level %d", int(c.Level))
}

// RelayID identifies one of the two auxiliary relays.
type RelayID int

const (
	Relay1 RelayID = iota
	Relay2
)

// RelayCount is the number of relays mirrored from the remote store.
const RelayCount = 2

// ActuatorState is what was last applied to the hardware. It is owned by the
// Loop and only updated after an actuation succeeded.
type ActuatorState struct {
	Fan       FanCommand
	DutyCycle uint8
	Relays    [RelayCount]bool
	// FanApplied is false until the first fan command reached the driver.
	FanApplied bool
}
