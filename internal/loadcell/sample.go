package loadcell

// Sample represents one decoded, timestamped reading across all load-cell
// channels, suitable for JSON and MQTT.
type Sample struct {
	T      float64   `json:"t"`    // seconds since pipeline start (monotonic)
	Values []float64 `json:"data"` // one value per channel, device order
}

// Scalar is the per-channel view published on the scalar topics.
type Scalar struct {
	T     float64 `json:"t"`
	Value float64 `json:"value"`
}

// Channels returns the number of channels in the sample.
func (s Sample) Channels() int {
	return len(s.Values)
}
