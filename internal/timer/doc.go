// Package timer defines the exact-timer facility contract (Gateway) the
// scheduler arms wake events against, and HeapGateway, an in-process
// implementation: a min-heap of pending timers served by a single goroutine
// with a 60-second max-sleep cap.
//
// Fired timers are handed to a FireFunc together with a completion
// acknowledgment (Fire.Done) that releases the execution grant held for the
// dispatch. Arm replaces, Disarm is a no-op for unknown identifiers: at most
// one pending timer exists per identifier.
package timer
