// Package playback tracks ringing sessions, one per fired event, keyed by
// namespaced identifier.
//
// The actual audio and notification presentation lives outside the engine;
// this manager owns session identity and lifecycle (start, stop, companion
// acknowledgment) and appends a wake-history record for every completed
// dismissal.
package playback
