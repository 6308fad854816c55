// Package notifier delivers outbound chat notifications.
//
// It provides two paths:
//
//   - Notify: an async pipeline (queue + worker pool + rate limit +
//     retry + dedup) for operator/event messages where the caller does
//     not need the outcome.
//   - Send: a synchronous, rate-limited single delivery that reports
//     the outcome to the caller. The feed monitors use this so their
//     "last notified" bookkeeping only advances on a confirmed send.
//
// Delivery is delegated to a kit.Adapter implementation (e.g. the
// Telegram adapter). For operator visibility the service keeps a small
// in-memory history of recently emitted notifications.
package notifier
