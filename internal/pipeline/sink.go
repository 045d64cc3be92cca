package pipeline

import (
	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// Sink is anything that consumes the sample stream: a live view, an MQTT
// publisher, a CSV recorder, etc. Accept is called from the sink's own
// consumer goroutine, one sample at a time, in dispatch order. A sink that
// also implements io.Closer is closed when it is deregistered.
type Sink interface {
	Accept(sample loadcell.Sample) error
}

// ErrorObserver is notified once when a sink is permanently removed after
// repeated Accept failures.
type ErrorObserver func(sink string, err error)

// DropPolicy selects which sample is discarded when a sink's queue is full.
type DropPolicy int

const (
	// DropOldest evicts the oldest queued sample so the sink's view stays
	// as current as possible. Right choice for live views.
	DropOldest DropPolicy = iota
	// DropNewest discards the incoming sample instead, preserving a
	// gap-free history prefix. Right choice for recorders.
	DropNewest
)

func (p DropPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	default:
		return "unknown"
	}
}

// State is the delivery state of a registered sink.
type State int32

const (
	// StateActive: queue has room, samples flow normally.
	StateActive State = iota
	// StateDegraded: queue filled up and samples are being dropped.
	// Recovers to Active once the consumer drains the queue.
	StateDegraded
	// StateFailed: the sink's Accept kept erroring and the sink was
	// removed from delivery. Terminal; re-register to resume.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures delivery for one registered sink.
type Options struct {
	// QueueSize bounds the sink's delivery queue. Defaults to 64.
	QueueSize int
	// Policy selects the behavior when the queue is full.
	Policy DropPolicy
	// FailureThreshold is the number of consecutive Accept errors after
	// which the sink is marked Failed. Defaults to 3.
	FailureThreshold int
}

const (
	defaultQueueSize        = 64
	defaultFailureThreshold = 3
)

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = defaultFailureThreshold
	}
	return o
}

// Stats tracks delivery counters for one sink.
type Stats struct {
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Errors    uint64 `json:"errors"`
}
