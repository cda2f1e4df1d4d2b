package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Remote key paths.
const (
	PathMACAddress  = "/device/mac_address"
	PathHumidity    = "/sensor/humidity"
	PathTemperature = "/sensor/temperature"
	PathRelay1      = "/relay/status1"
	PathRelay2      = "/relay/status2"
	PathAutoMode    = "/fan/auto_mode"
	PathFanStatus   = "/fan/status"
	PathFanSpeed    = "/fan/speed"
)

// AutoModeAck is written back to PathAutoMode after an auto-mode actuation.
const AutoModeAck = 1.0

const DefaultInterval = 2 * time.Second

var relayPaths = [RelayCount]string{
	Relay1: PathRelay1,
	Relay2: PathRelay2,
}

// RemoteChannel is a key-path store of scalar values. Every call blocks until
// it succeeds or fails; the error text is the reason reported in the logs.
type RemoteChannel interface {
	SetString(path, value string) error
	SetFloat(path string, value float64) error
	GetInt(path string) (int, error)
	GetBool(path string) (bool, error)
}

// SensorSource produces one reading per call. A reading may carry NaN fields.
type SensorSource interface {
	Read() (Reading, error)
}

// Fan drives the fan motor.
type Fan interface {
	SetSpeed(level SpeedLevel) error
	Stop() error
}

// Relays switches the auxiliary relay outputs.
type Relays interface {
	SetRelay(id RelayID, on bool) error
}

type Options struct {
	// Interval is the sleep between iterations. Zero means DefaultInterval.
	Interval time.Duration
	Logger   *slog.Logger
}

// Loop runs the read, publish, reconcile and actuate cycle. It is not safe
// for concurrent use; a single goroutine owns it and the hardware behind it.
type Loop struct {
	sensor   SensorSource
	remote   RemoteChannel
	fan      Fan
	relays   Relays
	interval time.Duration
	logger   *slog.Logger

	state ActuatorState
}

func NewLoop(sensor SensorSource, remote RemoteChannel, fan Fan, relays Relays, opts Options) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Loop{
		sensor:   sensor,
		remote:   remote,
		fan:      fan,
		relays:   relays,
		interval: opts.Interval,
		logger:   opts.Logger.With("component", "loop"),
	}
}

// State returns the last applied actuator state.
func (l *Loop) State() ActuatorState {
	return l.state
}

// Run executes Step every interval until ctx is done. Errors never stop the
// loop; they are logged and the next iteration starts from scratch.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("control loop started", "interval", l.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := l.Step(); err != nil {
			l.logCycleError(err)
		}

		timer.Reset(l.interval)
	}
}

// Step runs a single iteration. The returned error is the one that cut the
// iteration short; failures that only skip one action are logged instead.
func (l *Loop) Step() error {
	reading, err := l.sensor.Read()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSensorInvalid, err)
	}
	if !reading.Valid() {
		return fmt.Errorf("%w: temperature=%v humidity=%v", ErrSensorInvalid, reading.Temperature, reading.Humidity)
	}

	l.logger.Debug("sensor reading", "temperature", reading.Temperature, "humidity", reading.Humidity)

	// A failed telemetry write means the channel is unhealthy, so commands
	// read in the same cycle are not trusted either.
	if err := l.remote.SetFloat(PathHumidity, reading.Humidity); err != nil {
		return writeError(PathHumidity, err)
	}
	if err := l.remote.SetFloat(PathTemperature, reading.Temperature); err != nil {
		return writeError(PathTemperature, err)
	}

	l.syncRelays()

	autoMode, err := l.remote.GetBool(PathAutoMode)
	if err != nil {
		return readError(PathAutoMode, err)
	}

	if autoMode {
		return l.runAuto(reading)
	}
	return l.runManual(reading)
}

func (l *Loop) syncRelays() {
	for id, path := range relayPaths {
		v, err := l.remote.GetInt(path)
		if err != nil {
			l.report(readError(path, err))
			continue
		}

		var on bool
		switch v {
		case 0:
		case 1:
			on = true
		default:
			l.report(readError(path, fmt.Errorf("unexpected relay value %d", v)))
			continue
		}

		if err := l.relays.SetRelay(RelayID(id), on); err != nil {
			l.logger.Error("failed to switch relay", "relay", id+1, "on", on, "error", err)
			continue
		}

		if l.state.Relays[id] != on {
			l.logger.Info("relay switched", "relay", id+1, "on", on)
		}
		l.state.Relays[id] = on
	}
}

func (l *Loop) runAuto(reading Reading) error {
	cmd, err := Decide(reading, ModeAuto, false, LevelLow)
	if err != nil {
		return err
	}

	if err := l.applyFan(cmd, ModeAuto); err != nil {
		return err
	}

	if err := l.remote.SetFloat(PathAutoMode, AutoModeAck); err != nil {
		l.report(writeError(PathAutoMode, err))
	}
	return nil
}

func (l *Loop) runManual(reading Reading) error {
	enabled, err := l.remote.GetBool(PathFanStatus)
	if err != nil {
		return readError(PathFanStatus, err)
	}

	level := LevelLow
	if enabled {
		v, err := l.remote.GetInt(PathFanSpeed)
		if err != nil {
			return readError(PathFanSpeed, err)
		}
		level = SpeedLevel(v)
	}

	cmd, err := Decide(reading, ModeManual, enabled, level)
	if err != nil {
		return err
	}

	return l.applyFan(cmd, ModeManual)
}

func (l *Loop) applyFan(cmd FanCommand, mode Mode) error {
	var duty uint8
	if cmd.Enabled {
		d, err := cmd.Level.DutyCycle()
		if err != nil {
			return err
		}
		if err := l.fan.SetSpeed(cmd.Level); err != nil {
			return fmt.Errorf("set fan speed: %w", err)
		}
		duty = d
	} else {
		if err := l.fan.Stop(); err != nil {
			return fmt.Errorf("stop fan: %w", err)
		}
	}

	changed := !l.state.FanApplied || l.state.Fan != cmd
	l.state.Fan = cmd
	l.state.DutyCycle = duty
	l.state.FanApplied = true

	if changed {
		l.logger.Info("fan updated", "mode", mode.String(), "fan", cmd.String(), "duty_cycle", duty)
	}
	return nil
}

func (l *Loop) report(err error) {
	var re *RemoteError
	if errors.As(err, &re) {
		l.logger.Warn("remote call failed", "op", re.Op, "path", re.Path, "error", re.Err)
		return
	}
	l.logger.Error("control error", "error", err)
}

func (l *Loop) logCycleError(err error) {
	var re *RemoteError
	switch {
	case errors.Is(err, ErrSensorInvalid):
		l.logger.Warn("cycle skipped", "reason", "sensor", "error", err)
	case errors.As(err, &re):
		l.logger.Warn("cycle aborted", "op", re.Op, "path", re.Path, "error", re.Err)
	case errors.Is(err, ErrInvalidLevel):
		l.logger.Warn("fan left unchanged", "error", err)
	default:
		l.logger.Error("cycle failed", "error", err)
	}
}
