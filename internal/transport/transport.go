package transport

// FrameHandler receives one raw notification buffer per device frame. The
// buffer is only valid for the duration of the call; handlers that retain
// data must copy it. Handlers are invoked sequentially from a single
// goroutine and must return promptly.
type FrameHandler func(raw []byte)

// Transport delivers raw byte frames from the device. Implementations:
// BLE notifications, a serial link, or a replay source for running without
// hardware.
type Transport interface {
	Connect() error
	Subscribe(handler FrameHandler) error
	Unsubscribe() error
	Disconnect() error
}
