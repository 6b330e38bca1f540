// Package daemon assembles and runs the wake-engine process: the SQLite
// store, the timer gateway and dispatcher, the playback manager, the
// companion hub and the JSON-RPC control plane. Run blocks until the
// context is cancelled and shuts the pieces down in order.
package daemon
