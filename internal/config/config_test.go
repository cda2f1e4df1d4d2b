package config

import (
	"log/slog"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL",
		"MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX", "MQTT_TIMEOUT",
		"BME280_ADDRESS", "I2C_BUS", "LOOP_INTERVAL", "DEVICE_ID", "HARDWARE_CONFIG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.MQTTBroker != "localhost" {
		t.Errorf("MQTTBroker = %q, want %q", got.MQTTBroker, "localhost")
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want %d", got.MQTTPort, 1883)
	}
	if got.MQTTClientID != "fanctl" {
		t.Errorf("MQTTClientID = %q, want %q", got.MQTTClientID, "fanctl")
	}
	if got.MQTTTopicPrefix != "fanctl" {
		t.Errorf("MQTTTopicPrefix = %q, want %q", got.MQTTTopicPrefix, "fanctl")
	}
	if got.MQTTTimeout != 5*time.Second {
		t.Errorf("MQTTTimeout = %v, want %v", got.MQTTTimeout, 5*time.Second)
	}
	if got.BME280Address != 0x76 {
		t.Errorf("BME280Address = %#x, want %#x", got.BME280Address, 0x76)
	}
	if got.LoopInterval != 2*time.Second {
		t.Errorf("LoopInterval = %v, want %v", got.LoopInterval, 2*time.Second)
	}
	if got.DeviceID != "" || got.HardwareConfig != "" || got.I2CBus != "" {
		t.Errorf("optional fields = (%q, %q, %q), want empty", got.DeviceID, got.HardwareConfig, got.I2CBus)
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
	}{
		{name: "staging", appEnv: "staging"},
		{name: "uppercase invalid", appEnv: "DEV"},
		{name: "random", appEnv: "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadFromEnv_TopicPrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "default when empty", in: "", want: "fanctl"},
		{name: "trailing slash trimmed", in: "home/garage/", want: "home/garage"},
		{name: "whitespace trimmed", in: "  devices/fan1 ", want: "devices/fan1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("MQTT_TOPIC_PREFIX", tt.in)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.MQTTTopicPrefix != tt.want {
				t.Errorf("MQTTTopicPrefix = %q, want %q", got.MQTTTopicPrefix, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port not a number", key: "MQTT_PORT", value: "mqtt"},
		{name: "address not a number", key: "BME280_ADDRESS", value: "bme"},
		{name: "address too large", key: "BME280_ADDRESS", value: "0x10000"},
		{name: "interval garbage", key: "LOOP_INTERVAL", value: "soon"},
		{name: "interval zero", key: "LOOP_INTERVAL", value: "0s"},
		{name: "interval negative", key: "LOOP_INTERVAL", value: "-2s"},
		{name: "timeout zero", key: "MQTT_TIMEOUT", value: "0"},
		{name: "log level", key: "LOG_LEVEL", value: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MQTT_BROKER", "broker.lan")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("BME280_ADDRESS", "0x77")
	t.Setenv("LOOP_INTERVAL", "500ms")
	t.Setenv("DEVICE_ID", "fan-garage")
	t.Setenv("HARDWARE_CONFIG", "/etc/fanctl/hardware.yaml")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "prod" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "prod")
	}
	if got.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelDebug)
	}
	if got.MQTTBroker != "broker.lan" || got.MQTTPort != 8883 {
		t.Errorf("broker = %s:%d, want broker.lan:8883", got.MQTTBroker, got.MQTTPort)
	}
	if got.BME280Address != 0x77 {
		t.Errorf("BME280Address = %#x, want %#x", got.BME280Address, 0x77)
	}
	if got.LoopInterval != 500*time.Millisecond {
		t.Errorf("LoopInterval = %v, want %v", got.LoopInterval, 500*time.Millisecond)
	}
	if got.DeviceID != "fan-garage" {
		t.Errorf("DeviceID = %q, want %q", got.DeviceID, "fan-garage")
	}
	if got.HardwareConfig != "/etc/fanctl/hardware.yaml" {
		t.Errorf("HardwareConfig = %q, want %q", got.HardwareConfig, "/etc/fanctl/hardware.yaml")
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		got, err := parseLogLevel(in)
		if err == nil {
			t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
		}
		if got != slog.LevelInfo {
			t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
		}
	}
}
