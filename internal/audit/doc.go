// Package audit records session lifecycle events (login, refresh, replay rejection,
// teardown, logout, upload, export) and relays them to a pluggable Sink.
//
// The Dispatcher decouples emitters from sink I/O with a bounded queue. Which events to
// emit, and with what fields, is decided by the root package. Sinks shipped here write to
// a channel, a JSON-lines writer or a logrus logger.
package audit
