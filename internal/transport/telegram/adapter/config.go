package adapter

import "time"

// Config carries the adapter's connection settings.
type Config struct {
	Token       string
	PollTimeout time.Duration
}
