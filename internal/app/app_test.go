package app

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"fanctl/internal/config"
	"fanctl/internal/control"
)

func TestDeviceIdentity(t *testing.T) {
	mac := net.HardwareAddr{0xb8, 0x27, 0xeb, 0x12, 0x34, 0x56}
	ifaces := func() ([]net.Interface, error) {
		return []net.Interface{
			{Name: "lo", Flags: net.FlagLoopback | net.FlagUp},
			{Name: "tun0", Flags: net.FlagUp},
			{Name: "wlan0", Flags: net.FlagUp, HardwareAddr: mac},
		}, nil
	}

	tests := []struct {
		name     string
		override string
		list     func() ([]net.Interface, error)
		want     string
		wantErr  bool
	}{
		{name: "override wins", override: " kitchen-fan ", list: ifaces, want: "kitchen-fan"},
		{name: "first hardware address", list: ifaces, want: "b8:27:eb:12:34:56"},
		{
			name:    "only loopback",
			list:    func() ([]net.Interface, error) { return []net.Interface{{Name: "lo", Flags: net.FlagLoopback}}, nil },
			wantErr: true,
		},
		{
			name:    "listing fails",
			list:    func() ([]net.Interface, error) { return nil, errors.New("netlink") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deviceIdentity(tt.override, tt.list)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

type recordingRemote struct {
	control.RemoteChannel
	path, value string
	err         error
}

func (r *recordingRemote) SetString(path, value string) error {
	r.path, r.value = path, value
	return r.err
}

func TestPublishIdentity(t *testing.T) {
	r := &recordingRemote{}
	publishIdentity(r, "dev-7")
	if r.path != control.PathMACAddress || r.value != "dev-7" {
		t.Fatalf("published %q=%q", r.path, r.value)
	}

	// A failed write is only logged.
	publishIdentity(&recordingRemote{err: errors.New("offline")}, "dev-7")
}

func TestOpenHardware_Simulated(t *testing.T) {
	h, err := openHardware(config.Config{}, config.DefaultHardware(), true)
	if err != nil {
		t.Fatalf("openHardware: %v", err)
	}

	r, err := h.sensor.Read()
	if err != nil || !r.Valid() {
		t.Fatalf("simulated read = %+v, %v", r, err)
	}
	if err := h.fan.SetSpeed(control.LevelMax); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if err := h.relays.SetRelay(control.Relay1, true); err != nil {
		t.Fatalf("SetRelay: %v", err)
	}

	if err := h.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.fan.DutyCycle() != 0 {
		t.Fatalf("fan duty after close = %d, want 0", h.fan.DutyCycle())
	}
	if h.relays.States()[0] {
		t.Fatal("relay 1 still on after close")
	}
}

func TestRun_CanceledBeforeConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.Config{
		MQTTBroker:      "127.0.0.1",
		MQTTPort:        1,
		MQTTClientID:    "fanctl-test",
		MQTTTopicPrefix: "fanctl/test",
		MQTTTimeout:     100 * time.Millisecond,
		LoopInterval:    time.Second,
	}

	err := Run(ctx, cfg, config.DefaultHardware(), true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
}
