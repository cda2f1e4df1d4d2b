package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"fanctl/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrNoValue      = errors.New("no value received for path")
)

// Client is the remote key-path store. Each path lives under a retained
// topic "<prefix><path>". Writes publish retained messages; reads answer from
// the latest retained values received on "<prefix>/#".
type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	values    map[string]string

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.MQTTTopicPrefix == "" {
		return nil, errors.New("mqtt topic prefix is required")
	}

	c := &Client{
		cfg:    cfg,
		logger: logger.With("component", "mqtt"),
		values: make(map[string]string),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWriteTimeout(cfg.MQTTTimeout)

	// Subscribing on every connect refills the value cache; the broker
	// replays retained values right after SUBACK.
	opts.SetOnConnectHandler(func(cl mqtt.Client) {
		c.onConnect()
		c.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := c.subscribe(cl); err != nil {
			c.logger.Error("mqtt subscribe failed", "error", err)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.onConnectionLost()
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Connect blocks until the first connection succeeds, ctx is done or the
// client is disconnected.
func (c *Client) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	// Fast path.
	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry(true), the token only completes once connected.
	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

func (c *Client) subscribe(cl mqtt.Client) error {
	filter := c.cfg.MQTTTopicPrefix + "/#"
	qos := byte(1)

	token := cl.Subscribe(filter, qos, func(_ mqtt.Client, msg mqtt.Message) {
		c.store(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(c.cfg.MQTTTimeout) {
		return fmt.Errorf("subscribe timeout for topic %s", filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", filter, err)
	}

	c.logger.Info("subscribed to mqtt topic", "topic", filter, "qos", qos)
	return nil
}

// store records the latest payload of a topic. An empty retained payload
// clears the path.
func (c *Client) store(topic string, payload []byte) {
	path, ok := strings.CutPrefix(topic, c.cfg.MQTTTopicPrefix)
	if !ok || !strings.HasPrefix(path, "/") {
		return
	}

	c.mu.Lock()
	if len(payload) == 0 {
		delete(c.values, path)
	} else {
		c.values[path] = strings.TrimSpace(string(payload))
	}
	c.mu.Unlock()

	c.logger.Debug("received value", "path", path, "value", string(payload))
}

func (c *Client) lookup(path string) (string, error) {
	c.mu.RLock()
	v, ok := c.values[path]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w %s", ErrNoValue, path)
	}
	return v, nil
}

func (c *Client) value(path string) (string, error) {
	if !c.IsConnected() {
		return "", ErrNotConnected
	}
	return c.lookup(path)
}

func (c *Client) publish(path, payload string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	topic := c.cfg.MQTTTopicPrefix + path

	token := c.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(c.cfg.MQTTTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	c.logger.Debug("published value", "topic", topic, "value", payload)
	return nil
}

func (c *Client) SetString(path, value string) error {
	return c.publish(path, value)
}

func (c *Client) SetFloat(path string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("refusing to publish non-finite value %v", value)
	}
	return c.publish(path, formatFloat(value))
}

func (c *Client) GetInt(path string) (int, error) {
	s, err := c.value(path)
	if err != nil {
		return 0, err
	}
	return parseInt(s)
}

func (c *Client) GetBool(path string) (bool, error) {
	s, err := c.value(path)
	if err != nil {
		return false, err
	}
	return parseBool(s)
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent and safe to call multiple times.
// After Disconnect, Connect() will return "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// onConnect starts from an empty cache. A topic cleared while offline is
// not replayed, so values from the previous session must not survive.
func (c *Client) onConnect() {
	c.mu.Lock()
	c.values = make(map[string]string)
	c.connected = true
	c.mu.Unlock()
}

func (c *Client) onConnectionLost() {
	c.mu.Lock()
	c.values = make(map[string]string)
	c.connected = false
	c.mu.Unlock()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}

	// Dashboards often store numbers as floats ("2.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func parseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err == nil {
		return b, nil
	}

	// The auto-mode ack is written as a float, so "1.0" must read as true.
	switch f, ferr := strconv.ParseFloat(s, 64); {
	case ferr != nil:
		return false, fmt.Errorf("not a boolean: %q", s)
	case f == 1:
		return true, nil
	case f == 0:
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}
