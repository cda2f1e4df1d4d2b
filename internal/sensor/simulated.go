package sensor

import (
	"fanctl/internal/control"
)

// Simulated is a bench source that sweeps the temperature up and down
// between Min and Max so every fan threshold gets crossed.
type Simulated struct {
	Min, Max float64
	Step     float64
	Humidity float64

	temp float64
	dir  float64
}

func NewSimulated() *Simulated {
	return &Simulated{Min: 20, Max: 45, Step: 0.5, Humidity: 50}
}

func (s *Simulated) Read() (control.Reading, error) {
	if s.dir == 0 {
		s.temp, s.dir = s.Min, 1
	} else {
		s.temp += s.dir * s.Step
	}

	if s.temp >= s.Max {
		s.temp, s.dir = s.Max, -1
	} else if s.temp <= s.Min {
		s.temp, s.dir = s.Min, 1
	}

	return control.Reading{Temperature: s.temp, Humidity: s.Humidity}, nil
}

func (s *Simulated) Close() error { return nil }
