package notify

import "time"

// Config controls the async notification pipeline.
type Config struct {
	Enabled       bool
	TopicARN      string
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
}

// Message is one outbound notification.
type Message struct {
	Subject string
	Body    string
}

// SentEvent is emitted on the event bus for notifier lifecycle events.
type SentEvent struct {
	Subject string    `json:"subject"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}
