// Package messenger implements the companion-device protocol: fan-out
// "alarm started" notices, a bounded on-body (worn-state) query, and inbound
// stop/acknowledge commands forwarded to the playback session.
//
// The transport is asynchronous and unreliable; every failure mode degrades
// (logged, unknown answer, invalid-ID sentinel) instead of propagating.
package messenger
