package actuator

import (
	"errors"
	"fmt"
	"log/slog"

	"fanctl/internal/config"
	"fanctl/internal/control"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// MotorDriver drives the fan through an H-bridge: one PWM pin for the speed
// and two direction pins.
type MotorDriver struct {
	pwm  gpio.PinOut
	in1  gpio.PinOut
	in2  gpio.PinOut
	freq physic.Frequency

	duty   uint8
	logger *slog.Logger
}

func NewMotorDriver(pwm, in1, in2 gpio.PinOut, freq physic.Frequency, logger *slog.Logger) *MotorDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &MotorDriver{
		pwm:    pwm,
		in1:    in1,
		in2:    in2,
		freq:   freq,
		logger: logger.With("component", "motor"),
	}
}

// OpenMotorDriver looks the pins up by name in the periph registry.
func OpenMotorDriver(pins config.FanPins, logger *slog.Logger) (*MotorDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	lookup := func(name string) (gpio.PinOut, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		return p, nil
	}

	pwm, err := lookup(pins.PWMPin)
	if err != nil {
		return nil, err
	}
	in1, err := lookup(pins.IN1Pin)
	if err != nil {
		return nil, err
	}
	in2, err := lookup(pins.IN2Pin)
	if err != nil {
		return nil, err
	}

	return NewMotorDriver(pwm, in1, in2, physic.Frequency(pins.PWMFrequencyHz)*physic.Hertz, logger), nil
}

// SetSpeed turns the motor forward at the duty cycle of level. An invalid
// level leaves every pin as it was.
func (m *MotorDriver) SetSpeed(level control.SpeedLevel) error {
	duty, err := level.DutyCycle()
	if err != nil {
		return err
	}

	if err := m.in1.Out(gpio.High); err != nil {
		return fmt.Errorf("set in1: %w", err)
	}
	if err := m.in2.Out(gpio.Low); err != nil {
		return fmt.Errorf("set in2: %w", err)
	}
	if err := m.setDuty(duty); err != nil {
		return err
	}

	m.logger.Debug("motor speed set", "level", int(level), "duty_cycle", duty)
	return nil
}

// Stop drops the duty cycle to zero. The direction pins are left alone.
func (m *MotorDriver) Stop() error {
	if err := m.setDuty(0); err != nil {
		return err
	}
	m.logger.Debug("motor stopped")
	return nil
}

// DutyCycle returns the last duty cycle written, 0..255.
func (m *MotorDriver) DutyCycle() uint8 {
	return m.duty
}

// Close stops the motor and releases the pins.
func (m *MotorDriver) Close() error {
	err := m.Stop()
	for _, p := range []gpio.PinOut{m.pwm, m.in1, m.in2} {
		err = errors.Join(err, p.Halt())
	}
	return err
}

func (m *MotorDriver) setDuty(duty uint8) error {
	if err := m.pwm.PWM(toDuty(duty), m.freq); err != nil {
		return fmt.Errorf("set pwm duty %d: %w", duty, err)
	}
	m.duty = duty
	return nil
}

// toDuty scales an 8-bit duty cycle to periph's 24-bit range.
func toDuty(d uint8) gpio.Duty {
	return gpio.Duty(uint64(d) * uint64(gpio.DutyMax) / 255)
}

// NewSimulatedMotorDriver drives in-memory pins.
func NewSimulatedMotorDriver(pins config.FanPins, logger *slog.Logger) *MotorDriver {
	return NewMotorDriver(
		&gpiotest.Pin{N: pins.PWMPin},
		&gpiotest.Pin{N: pins.IN1Pin},
		&gpiotest.Pin{N: pins.IN2Pin},
		physic.Frequency(pins.PWMFrequencyHz)*physic.Hertz,
		logger,
	)
}
