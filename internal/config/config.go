// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"math"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Payload encodings accepted by PAYLOAD_ENCODING.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// Relay sources accepted by RELAY_SOURCE.
const (
	RelaySourceMock   = "mock"
	RelaySourceSerial = "serial"
)

// Config holds all application configuration values.
// Intervals and timeouts are in milliseconds.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDBridge  string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicSample     string
	PayloadEncoding string

	// Bridge
	BridgeHost              string
	BridgePort              int
	MalformedFrameThreshold int
	DialTimeout             int
	ReadBackoffInitial      int
	ReadBackoffMax          int
	StopGrace               int
	ReportLinkHealth        bool
	SerialNumber            string

	// Timing
	PollInterval       int
	ConsoleLogInterval int

	// Metrics endpoint of the bridge runner, 0 disables it
	MetricsPort int

	// Web Server
	WebServerPort   int
	WebPushInterval int

	// Relay
	RelayListenAddr string
	RelaySource     string
	RelaySerialPort string
	RelayBaudRate   int
	RelayInterval   int

	// Display
	DisplayI2CBus         string // empty selects the first bus
	DisplayUpdateInterval int

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional key at its default.
func Default() *Config {
	return &Config{
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDBridge:  "orientation-bridge",
		MQTTClientIDConsole: "orientation-console",
		MQTTClientIDWeb:     "orientation-web",
		MQTTClientIDDisplay: "orientation-display",

		TopicSample:     "orientation/sample",
		PayloadEncoding: EncodingJSON,

		BridgeHost:              "127.0.0.1",
		BridgePort:              31000,
		MalformedFrameThreshold: 10,
		DialTimeout:             5000,
		ReadBackoffInitial:      10,
		ReadBackoffMax:          1000,
		StopGrace:               1000,
		SerialNumber:            "unknown",

		PollInterval:       11,
		ConsoleLogInterval: 1000,

		MetricsPort: 9100,

		WebServerPort:   8080,
		WebPushInterval: 50,

		RelayListenAddr: ":31000",
		RelaySource:     RelaySourceMock,
		RelayBaudRate:   115200,
		RelayInterval:   10,

		DisplayUpdateInterval: 200,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads a KEY=VALUE configuration file on top of the defaults.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromMap(values)
}

// FromMap applies values on top of the defaults and validates the result.
func FromMap(values map[string]string) (*Config, error) {
	cfg := Default()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseInt(key, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, v)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error

	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SAMPLE":
		c.TopicSample = value
	case "PAYLOAD_ENCODING":
		c.PayloadEncoding = strings.ToLower(value)

	// Bridge
	case "BRIDGE_HOST":
		c.BridgeHost = value
	case "BRIDGE_PORT":
		c.BridgePort, err = parseInt(key, value, 1, 65535)
	case "MALFORMED_FRAME_THRESHOLD":
		c.MalformedFrameThreshold, err = parseInt(key, value, 1, 10000)
	case "DIAL_TIMEOUT_MS":
		c.DialTimeout, err = parseInt(key, value, 1, 60000)
	case "READ_BACKOFF_INITIAL_MS":
		c.ReadBackoffInitial, err = parseInt(key, value, 1, 60000)
	case "READ_BACKOFF_MAX_MS":
		c.ReadBackoffMax, err = parseInt(key, value, 1, 60000)
	case "STOP_GRACE_MS":
		c.StopGrace, err = parseInt(key, value, 1, 60000)
	case "REPORT_LINK_HEALTH":
		c.ReportLinkHealth, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid REPORT_LINK_HEALTH %q: %w", value, err)
		}
	case "SERIAL_NUMBER":
		c.SerialNumber = value

	// Timing
	case "POLL_INTERVAL":
		c.PollInterval, err = parseInt(key, value, 1, 10000)
	case "CONSOLE_LOG_INTERVAL":
		c.ConsoleLogInterval, err = parseInt(key, value, 1, math.MaxInt32)

	// Metrics
	case "METRICS_PORT":
		c.MetricsPort, err = parseInt(key, value, 0, 65535)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)
	case "WEB_PUSH_INTERVAL":
		c.WebPushInterval, err = parseInt(key, value, 1, 60000)

	// Relay
	case "RELAY_LISTEN_ADDR":
		c.RelayListenAddr = value
	case "RELAY_SOURCE":
		c.RelaySource = strings.ToLower(value)
	case "RELAY_SERIAL_PORT":
		c.RelaySerialPort = value
	case "RELAY_BAUD_RATE":
		c.RelayBaudRate, err = parseInt(key, value, 1, 4000000)
	case "RELAY_INTERVAL":
		c.RelayInterval, err = parseInt(key, value, 0, 60000)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, 60000)

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_FORMAT":
		c.LogFormat = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field constraints and required values.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicSample == "" {
		return fmt.Errorf("TOPIC_SAMPLE is required")
	}
	if net.ParseIP(c.BridgeHost) == nil {
		return fmt.Errorf("BRIDGE_HOST must be an IP address, got %q", c.BridgeHost)
	}
	if c.ReadBackoffMax < c.ReadBackoffInitial {
		return fmt.Errorf("READ_BACKOFF_MAX_MS (%d) must not be below READ_BACKOFF_INITIAL_MS (%d)", c.ReadBackoffMax, c.ReadBackoffInitial)
	}

	switch c.PayloadEncoding {
	case EncodingJSON, EncodingMsgpack:
	default:
		return fmt.Errorf("PAYLOAD_ENCODING must be %q or %q, got %q", EncodingJSON, EncodingMsgpack, c.PayloadEncoding)
	}

	switch c.RelaySource {
	case RelaySourceMock:
		if c.RelayInterval < 1 {
			return fmt.Errorf("RELAY_INTERVAL must be at least 1 when RELAY_SOURCE=mock, got %d", c.RelayInterval)
		}
	case RelaySourceSerial:
		if c.RelaySerialPort == "" {
			return fmt.Errorf("RELAY_SERIAL_PORT is required when RELAY_SOURCE=serial")
		}
	default:
		return fmt.Errorf("RELAY_SOURCE must be %q or %q, got %q", RelaySourceMock, RelaySourceSerial, c.RelaySource)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

// InitGlobal loads the global configuration once. Later calls are no-ops.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
