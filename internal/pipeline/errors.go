package pipeline

import "errors"

var (
	ErrSinkExists       = errors.New("pipeline: sink already registered")
	ErrSinkNotFound     = errors.New("pipeline: sink not found")
	ErrNilSink          = errors.New("pipeline: nil sink")
	ErrDispatcherClosed = errors.New("pipeline: dispatcher is closed")
)
