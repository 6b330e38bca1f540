// Package alarm holds the wake engine's domain model: standard and duration
// events, the identity codec that multiplexes both into one flat timer
// keyspace, and the pure trigger-time calculator.
//
// Nothing here touches storage, timers or transports; services compose these
// types with their collaborators.
package alarm
