package storage

// Package storage provides a minimal persistence layer used by the bot.
//
// It currently supports:
//   - Notification journal appends (what was sent, where, and why)
//   - Optional notifier dedup state (to survive restarts)
