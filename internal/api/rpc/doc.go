// Package rpc exposes the engine's control plane as a JSON-RPC 2.0 API over
// HTTP. The CLI and other local tooling use it to manage alarms, start and
// cancel countdown timers, inspect the wake history, and drive ringing
// sessions.
package rpc
