// Package scheduler provides schedule registration and trigger
// calculation (cron/interval/daily) plus a small execution pool.
//
// Schedules are registered by name (upsert semantics) and fire into a
// bounded queue drained by worker goroutines. Overlapping runs of one
// schedule are skipped by default.
package scheduler
