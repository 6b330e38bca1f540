// Package dispatcher implements the fired-event state machine: when an armed
// timer elapses, the event is classified through the identity codec, either
// retired (countdowns, non-repeating alarms) or re-armed (weekly alarms),
// and handed off to a ringing session exactly once.
//
// Completion is always acknowledged back to the timer facility, even when a
// step fails or the surrounding task group is cancelled.
package dispatcher
