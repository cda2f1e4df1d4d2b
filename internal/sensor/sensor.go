package sensor

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"fanctl/internal/config"
	"fanctl/internal/control"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// senser is the part of bmxx80.Dev the reader needs.
type senser interface {
	Sense(env *physic.Env) error
	Halt() error
}

// BME280 reads temperature and humidity from a Bosch BME280 on I2C.
type BME280 struct {
	dev senser
	bus i2c.BusCloser

	closeOnce sync.Once
}

// Open initializes the host drivers and opens the sensor on cfg.I2CBus
// (empty means the default bus, usually /dev/i2c-1) at cfg.BME280Address.
func Open(cfg config.Config) (*BME280, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}

	dev, err := bmxx80.NewI2C(bus, cfg.BME280Address, &bmxx80.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("bme280 at 0x%02x: %w", cfg.BME280Address, err)
	}

	return &BME280{dev: dev, bus: bus}, nil
}

// Read takes one measurement. A failed measurement is reported as an error;
// a measurement the chip flags as out of range comes back as NaN fields.
func (s *BME280) Read() (control.Reading, error) {
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return control.Reading{}, fmt.Errorf("bme280 sense: %w", err)
	}
	return fromEnv(env), nil
}

// Close halts the chip and releases the bus. Safe to call more than once.
func (s *BME280) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.dev.Halt()
		if s.bus != nil {
			err = errors.Join(err, s.bus.Close())
		}
	})
	return err
}

func fromEnv(env physic.Env) control.Reading {
	temperature := env.Temperature.Celsius()

	// env.Humidity is fixed point at 0.00001 %rH.
	humidity := float64(env.Humidity) / 100000.0
	if humidity < 0 || humidity > 100 {
		humidity = math.NaN()
	}

	return control.Reading{Temperature: temperature, Humidity: humidity}
}
