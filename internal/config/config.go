package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Device / channels
	NumChannels int
	Transport   string // "ble" or "serial", defaults to "ble"

	// BLE
	BLEDeviceName         string
	BLEServiceUUID        string
	BLECharacteristicUUID string
	BLEScanTimeout        int // seconds

	// Serial (alternative transport, same frames over UART)
	SerialPort     string
	SerialBaudRate int

	// MQTT
	MQTTBroker          string
	MQTTClientIDBridge  string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string
	MQTTClientIDReplay  string

	// Topics
	TopicRaw           string // aggregated samples, e.g. "loadcell/raw"
	TopicChannelPrefix string // per-channel scalars, e.g. "loadcell/ch" -> loadcell/ch1..chN

	// Pipeline
	SinkQueueSize        int // live sinks (MQTT, websocket, console)
	RecorderQueueSize    int // CSV recorder
	SinkFailureThreshold int

	// CSV recorder
	CSVOutputPath    string
	CSVFlushInterval int // milliseconds

	// Web server (live view)
	WebServerPort int

	// Console
	ConsoleLogInterval int // milliseconds

	// Replay
	ReplayFrameInterval int // milliseconds

	// Display
	DisplayI2CBus         string // empty = first available bus
	DisplayUpdateInterval int    // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access; write lock for initialization,
//     read lock for Get().
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Device / channels
	case "NUM_CHANNELS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid NUM_CHANNELS %q: %w", value, err)
		}
		if n <= 0 {
			return fmt.Errorf("NUM_CHANNELS must be positive, got %d", n)
		}
		c.NumChannels = n
	case "TRANSPORT":
		if value != "ble" && value != "serial" {
			return fmt.Errorf("TRANSPORT must be \"ble\" or \"serial\", got %q", value)
		}
		c.Transport = value

	// BLE
	case "BLE_DEVICE_NAME":
		c.BLEDeviceName = value
	case "BLE_SERVICE_UUID":
		c.BLEServiceUUID = value
	case "BLE_CHARACTERISTIC_UUID":
		c.BLECharacteristicUUID = value
	case "BLE_SCAN_TIMEOUT":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BLE_SCAN_TIMEOUT %q: %w", value, err)
		}
		c.BLEScanTimeout = secs

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_REPLAY":
		c.MQTTClientIDReplay = value

	// Topics
	case "TOPIC_RAW":
		c.TopicRaw = value
	case "TOPIC_CHANNEL_PREFIX":
		c.TopicChannelPrefix = value

	// Pipeline
	case "SINK_QUEUE_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SINK_QUEUE_SIZE %q: %w", value, err)
		}
		if size <= 0 {
			return fmt.Errorf("SINK_QUEUE_SIZE must be positive, got %d", size)
		}
		c.SinkQueueSize = size
	case "RECORDER_QUEUE_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RECORDER_QUEUE_SIZE %q: %w", value, err)
		}
		if size <= 0 {
			return fmt.Errorf("RECORDER_QUEUE_SIZE must be positive, got %d", size)
		}
		c.RecorderQueueSize = size
	case "SINK_FAILURE_THRESHOLD":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SINK_FAILURE_THRESHOLD %q: %w", value, err)
		}
		if n <= 0 {
			return fmt.Errorf("SINK_FAILURE_THRESHOLD must be positive, got %d", n)
		}
		c.SinkFailureThreshold = n

	// CSV recorder
	case "CSV_OUTPUT_PATH":
		c.CSVOutputPath = value
	case "CSV_FLUSH_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CSV_FLUSH_INTERVAL %q: %w", value, err)
		}
		c.CSVFlushInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Console
	case "CONSOLE_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, err)
		}
		c.ConsoleLogInterval = interval

	// Replay
	case "REPLAY_FRAME_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REPLAY_FRAME_INTERVAL %q: %w", value, err)
		}
		c.ReplayFrameInterval = interval

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.NumChannels == 0 {
		return fmt.Errorf("NUM_CHANNELS is required")
	}
	if c.Transport == "" {
		c.Transport = "ble"
	}
	if c.Transport == "serial" && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required when TRANSPORT=serial")
	}
	if c.BLEDeviceName == "" {
		return fmt.Errorf("BLE_DEVICE_NAME is required")
	}
	if c.BLEServiceUUID == "" {
		return fmt.Errorf("BLE_SERVICE_UUID is required")
	}
	if c.BLECharacteristicUUID == "" {
		return fmt.Errorf("BLE_CHARACTERISTIC_UUID is required")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicRaw == "" {
		return fmt.Errorf("TOPIC_RAW is required")
	}
	if c.TopicChannelPrefix == "" {
		return fmt.Errorf("TOPIC_CHANNEL_PREFIX is required")
	}
	if c.SinkQueueSize == 0 {
		return fmt.Errorf("SINK_QUEUE_SIZE is required")
	}
	if c.ConsoleLogInterval == 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
