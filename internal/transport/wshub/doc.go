// Package wshub is the WebSocket companion-device hub. Paired devices keep a
// long-lived connection to the hub and exchange small path-addressed JSON
// frames with the engine. The hub implements the messenger transport: it
// tracks connected devices, delivers outbound frames, and fans inbound
// frames out to registered path listeners.
package wshub
