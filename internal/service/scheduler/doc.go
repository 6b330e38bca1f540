// Package scheduler maps domain events onto the exact-timer facility with
// idempotent replace and cancel semantics.
//
// Scheduling failures are absorbed here: a denied or failed arm leaves the
// event unarmed (while still active in the store) and is surfaced through
// logs only.
package scheduler
