package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fanctl/internal/actuator"
	"fanctl/internal/config"
	"fanctl/internal/control"
	"fanctl/internal/mqtt"
	"fanctl/internal/sensor"
)

type sensorSource interface {
	control.SensorSource
	Close() error
}

// hardware bundles the devices the loop owns.
type hardware struct {
	sensor sensorSource
	fan    *actuator.MotorDriver
	relays *actuator.RelayBank
}

func (h *hardware) close() error {
	var errs []error
	if h.fan != nil {
		errs = append(errs, h.fan.Close())
	}
	if h.relays != nil {
		errs = append(errs, h.relays.Close())
	}
	if h.sensor != nil {
		errs = append(errs, h.sensor.Close())
	}
	return errors.Join(errs...)
}

func openHardware(cfg config.Config, hw config.Hardware, simulate bool) (*hardware, error) {
	logger := slog.Default()

	if simulate {
		return &hardware{
			sensor: sensor.NewSimulated(),
			fan:    actuator.NewSimulatedMotorDriver(hw.Fan, logger),
			relays: actuator.NewSimulatedRelayBank(logger),
		}, nil
	}

	h := &hardware{}
	var err error

	if h.sensor, err = sensor.Open(cfg); err != nil {
		return nil, err
	}
	if h.fan, err = actuator.OpenMotorDriver(hw.Fan, logger); err != nil {
		_ = h.close()
		return nil, err
	}
	if h.relays, err = actuator.OpenRelayBank(hw.Relays, logger); err != nil {
		_ = h.close()
		return nil, err
	}
	return h, nil
}

func Run(ctx context.Context, cfg config.Config, hw config.Hardware, simulate bool) error {
	slog.Info("initializing fan controller",
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"mqtt_client_id", cfg.MQTTClientID,
		"mqtt_topic_prefix", cfg.MQTTTopicPrefix,
		"simulate", simulate,
	)

	devices, err := openHardware(cfg, hw, simulate)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}
	defer func() {
		if err := devices.close(); err != nil {
			slog.Warn("hardware shutdown incomplete", "error", err)
		}
	}()

	mqttClient, err := mqtt.NewClient(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer mqttClient.Disconnect()

	if err := mqttClient.Connect(ctx); err != nil {
		return err
	}

	publishIdentity(mqttClient, cfg.DeviceID)

	loop := control.NewLoop(devices.sensor, mqttClient, devices.fan, devices.relays, control.Options{
		Interval: cfg.LoopInterval,
		Logger:   slog.Default(),
	})

	err = loop.Run(ctx)

	slog.Info("fan controller shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// publishIdentity pushes the device identity once. Failure is not fatal.
func publishIdentity(remote control.RemoteChannel, deviceID string) {
	id, err := deviceIdentity(deviceID, netInterfaces)
	if err != nil {
		slog.Warn("device identity unavailable", "error", err)
		return
	}
	if err := remote.SetString(control.PathMACAddress, id); err != nil {
		slog.Warn("device identity not published", "path", control.PathMACAddress, "error", err)
		return
	}
	slog.Info("device identity published", "id", id)
}
