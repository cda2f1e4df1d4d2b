package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Hardware is the pin layout of the board, loaded from HARDWARE_CONFIG.
//
//	fan:
//	  pwm_pin: GPIO18
//	  in1_pin: GPIO23
//	  in2_pin: GPIO24
//	  pwm_frequency_hz: 25000
//	relays:
//	  pins: [17, 27]
//	  active_low: true
type Hardware struct {
	Fan    FanPins   `yaml:"fan"`
	Relays RelayPins `yaml:"relays"`
}

// FanPins are periph pin names of the motor driver.
type FanPins struct {
	PWMPin         string `yaml:"pwm_pin"`
	IN1Pin         string `yaml:"in1_pin"`
	IN2Pin         string `yaml:"in2_pin"`
	PWMFrequencyHz int64  `yaml:"pwm_frequency_hz"`
}

// MaxBCMPin is the highest GPIO number of the BCM283x register bank.
const MaxBCMPin = 53

// RelayPins are BCM GPIO numbers, relay 1 first.
type RelayPins struct {
	Pins      []int `yaml:"pins"`
	ActiveLow bool  `yaml:"active_low"`
}

func DefaultHardware() Hardware {
	return Hardware{
		Fan: FanPins{
			PWMPin:         "GPIO18",
			IN1Pin:         "GPIO23",
			IN2Pin:         "GPIO24",
			PWMFrequencyHz: 25000,
		},
		Relays: RelayPins{
			Pins:      []int{17, 27},
			ActiveLow: true,
		},
	}
}

// LoadHardware reads the pin map at path. An empty path returns the defaults;
// keys missing from the file keep their default value.
func LoadHardware(path string) (Hardware, error) {
	hw := DefaultHardware()
	if path == "" {
		return hw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Hardware{}, fmt.Errorf("read hardware config: %w", err)
	}

	if err := yaml.Unmarshal(data, &hw); err != nil {
		return Hardware{}, fmt.Errorf("parse hardware config %s: %w", path, err)
	}

	if err := hw.Validate(); err != nil {
		return Hardware{}, fmt.Errorf("hardware config %s: %w", path, err)
	}
	return hw, nil
}

func (hw Hardware) Validate() error {
	if hw.Fan.PWMPin == "" || hw.Fan.IN1Pin == "" || hw.Fan.IN2Pin == "" {
		return errors.New("fan pwm_pin, in1_pin and in2_pin are required")
	}
	if hw.Fan.PWMPin == hw.Fan.IN1Pin || hw.Fan.PWMPin == hw.Fan.IN2Pin || hw.Fan.IN1Pin == hw.Fan.IN2Pin {
		return errors.New("fan pins must be distinct")
	}
	if hw.Fan.PWMFrequencyHz <= 0 {
		return fmt.Errorf("fan pwm_frequency_hz must be positive, got %d", hw.Fan.PWMFrequencyHz)
	}

	if len(hw.Relays.Pins) != 2 {
		return fmt.Errorf("exactly 2 relay pins required, got %d", len(hw.Relays.Pins))
	}
	if hw.Relays.Pins[0] == hw.Relays.Pins[1] {
		return errors.New("relay pins must be distinct")
	}
	for _, p := range hw.Relays.Pins {
		if p < 0 || p > MaxBCMPin {
			return fmt.Errorf("invalid relay pin %d (allowed: 0-%d)", p, MaxBCMPin)
		}
	}
	return nil
}
