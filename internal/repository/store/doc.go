// Package store implements persistence for wake events, countdown events and
// wake history on a single SQLite database (modernc.org/sqlite, pure Go).
//
// It exposes three narrow contracts (Alarms, Durations, History) all
// satisfied by Store. Raw identifiers come from SQLite auto-increment
// sequences and are validated against the namespace range on every insert.
// Alarm mutations additionally feed Watch subscribers with fresh snapshots
// of the full event list.
package store
