package registry

import "time"

// AttemptEvent describes one fetch attempt of a lookup.
type AttemptEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id"`
	Kno       string        `json:"kno"`
	Stage     Stage         `json:"stage"`
	Index     int           `json:"index"`
	Proxy     string        `json:"proxy,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// EventSink receives attempt events. Implementations must not block.
type EventSink interface {
	PublishAttempt(event *AttemptEvent)
}

type discardSink struct{}

func (discardSink) PublishAttempt(*AttemptEvent) {}
