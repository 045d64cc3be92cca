// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

var ErrDeviceNotFound = errors.New("transport: BLE device not found")

// BLEOptions configures the BLE transport. The UUIDs must match the device
// sketch: one service with one notify characteristic carrying the frames.
type BLEOptions struct {
	DeviceName         string
	ServiceUUID        string
	CharacteristicUUID string
	ScanTimeout        time.Duration // defaults to 6s
}

type bleTransport struct {
	opts    BLEOptions
	adapter *bluetooth.Adapter

	device bluetooth.Device
	char   bluetooth.DeviceCharacteristic

	mu        sync.RWMutex
	handler   FrameHandler
	connected bool
	notifying bool
}

// NewBLE creates a transport that scans for the device by advertised name
// and receives frames via notifications on the configured characteristic.
func NewBLE(opts BLEOptions) Transport {
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 6 * time.Second
	}
	return &bleTransport{
		opts:    opts,
		adapter: bluetooth.DefaultAdapter,
	}
}

func (t *bleTransport) Connect() error {
	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}

	// ---- 1) Scan for the device by advertised name ----
	log.Printf("ble: scanning for device named %q ...", t.opts.DeviceName)

	var result bluetooth.ScanResult
	haveResult := false

	timer := time.AfterFunc(t.opts.ScanTimeout, func() {
		t.adapter.StopScan()
	})
	err := t.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if r.LocalName() == t.opts.DeviceName {
			result = r
			haveResult = true
			a.StopScan()
		}
	})
	timer.Stop()
	if err != nil {
		return fmt.Errorf("ble: scan: %w", err)
	}
	if !haveResult {
		return fmt.Errorf("%w: %q (check advertising and that no other app is connected)",
			ErrDeviceNotFound, t.opts.DeviceName)
	}
	log.Printf("ble: found %s (%s), connecting...", result.Address.String(), result.LocalName())

	// ---- 2) Connect and discover the notify characteristic ----
	device, err := t.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("ble: connect: %w", err)
	}

	svcUUID, err := bluetooth.ParseUUID(t.opts.ServiceUUID)
	if err != nil {
		device.Disconnect()
		return fmt.Errorf("ble: service UUID %q: %w", t.opts.ServiceUUID, err)
	}
	chrUUID, err := bluetooth.ParseUUID(t.opts.CharacteristicUUID)
	if err != nil {
		device.Disconnect()
		return fmt.Errorf("ble: characteristic UUID %q: %w", t.opts.CharacteristicUUID, err)
	}

	svcs, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err == nil && len(svcs) == 0 {
		err = errors.New("no matching service")
	}
	if err != nil {
		device.Disconnect()
		return fmt.Errorf("ble: discover service %s: %w", t.opts.ServiceUUID, err)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{chrUUID})
	if err == nil && len(chars) == 0 {
		err = errors.New("no matching characteristic")
	}
	if err != nil {
		device.Disconnect()
		return fmt.Errorf("ble: discover characteristic %s: %w", t.opts.CharacteristicUUID, err)
	}

	t.mu.Lock()
	t.device = device
	t.char = chars[0]
	t.connected = true
	t.mu.Unlock()

	log.Println("ble: connected")
	return nil
}

func (t *bleTransport) Subscribe(handler FrameHandler) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return errors.New("ble: not connected")
	}
	t.handler = handler
	alreadyNotifying := t.notifying
	t.notifying = true
	t.mu.Unlock()

	if alreadyNotifying {
		return nil
	}

	// Notifications arrive sequentially from the adapter's event loop; the
	// handler gate lets Unsubscribe stop delivery without touching the GATT
	// subscription.
	err := t.char.EnableNotifications(func(buf []byte) {
		t.mu.RLock()
		h := t.handler
		t.mu.RUnlock()
		if h != nil {
			h(buf)
		}
	})
	if err != nil {
		return fmt.Errorf("ble: enable notifications: %w", err)
	}

	log.Println("ble: subscribed to notifications")
	return nil
}

func (t *bleTransport) Unsubscribe() error {
	t.mu.Lock()
	t.handler = nil
	t.mu.Unlock()
	return nil
}

func (t *bleTransport) Disconnect() error {
	t.mu.Lock()
	connected := t.connected
	t.connected = false
	t.notifying = false
	t.handler = nil
	device := t.device
	t.mu.Unlock()

	if !connected {
		return nil
	}
	if err := device.Disconnect(); err != nil {
		return fmt.Errorf("ble: disconnect: %w", err)
	}
	log.Println("ble: disconnected")
	return nil
}
