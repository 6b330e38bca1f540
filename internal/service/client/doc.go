// Package client wraps the daemon's JSON-RPC control plane for CLI use.
// It hides the transport details behind typed helpers so commands only deal
// with the request and response structures.
package client
