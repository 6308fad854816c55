package notifier

import "time"

// Config controls the outbound notification pipeline: worker count,
// queue depth, the per-second send rate shared across feeds, retry
// backoff, and the duplicate-suppression window.
type Config struct {
	Enabled         bool
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
	PersistDedup    bool
}

// HistoryItem is one recently sent notification, kept in memory for the
// status command.
type HistoryItem struct {
	At   time.Time
	Text string
}

// NotificationEvent is published on the bus when a send succeeds, fails,
// or is suppressed as a duplicate.
type NotificationEvent struct {
	Channel string    `json:"channel"`
	ChatID  int64     `json:"chat_id"`
	Key     string    `json:"key"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}
