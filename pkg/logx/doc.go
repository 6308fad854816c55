// Package logx wraps zerolog behind a small Logger type with swappable
// sinks: a human console writer, a JSON file writer, and an optional
// Telegram sink with its own minimum level and rate limit. Sinks can be
// reconfigured at runtime without invalidating loggers already handed out.
package logx
