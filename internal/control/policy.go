package control

import "fmt"

type threshold struct {
	floor float64
	level SpeedLevel
}

// thresholds is evaluated highest floor first; the first floor the
// temperature reaches wins. Below the last floor the fan is off.
var thresholds = [...]threshold{
	{floor: 40.0, level: LevelMax},
	{floor: 30.0, level: LevelHigh},
	{floor: 26.0, level: LevelMedium},
}

// Decide maps a reading and the remote mode inputs to a fan command.
//
// In auto mode the manual inputs are ignored and the level comes from the
// threshold table. In manual mode a disabled fan is off whatever the level,
// and an enabled fan must carry a valid level, otherwise ErrInvalidLevel is
// returned and the caller must leave the fan untouched.
//
// Decide keeps no state. There is no hysteresis, so a temperature hovering
// around a floor flips the command from one call to the next.
func Decide(reading Reading, mode Mode, manualEnabled bool, manualLevel SpeedLevel) (FanCommand, error) {
	switch mode {
	case ModeAuto:
		for _, t := range thresholds {
			if reading.Temperature >= t.floor {
				return FanCommand{Enabled: true, Level: t.level}, nil
			}
		}
		return FanCommand{}, nil

	case ModeManual:
		if !manualEnabled {
			return FanCommand{}, nil
		}
		if !manualLevel.Valid() {
			return FanCommand{}, fmt.Errorf("%w: manual level %d", ErrInvalidLevel, int(manualLevel))
		}
		return FanCommand{Enabled: true, Level: manualLevel}, nil

	default:
		return FanCommand{}, fmt.Errorf("unknown mode %d", int(mode))
	}
}
