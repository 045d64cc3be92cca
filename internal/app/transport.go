package app

import (
	"time"

	"github.com/relabs-tech/loadcell_computer/internal/config"
	"github.com/relabs-tech/loadcell_computer/internal/frame"
	"github.com/relabs-tech/loadcell_computer/internal/transport"
)

// newFrameSource builds the configured frame transport. The device streams
// identical frames over BLE and UART, so the receiving apps do not care
// which one is selected.
func newFrameSource(cfg *config.Config) transport.Transport {
	if cfg.Transport == "serial" {
		return transport.NewSerial(transport.SerialOptions{
			PortName:  cfg.SerialPort,
			BaudRate:  uint(cfg.SerialBaudRate),
			FrameSize: cfg.NumChannels * frame.BytesPerChannel,
		})
	}
	return transport.NewBLE(transport.BLEOptions{
		DeviceName:         cfg.BLEDeviceName,
		ServiceUUID:        cfg.BLEServiceUUID,
		CharacteristicUUID: cfg.BLECharacteristicUUID,
		ScanTimeout:        time.Duration(cfg.BLEScanTimeout) * time.Second,
	})
}
