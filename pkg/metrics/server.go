package metrics

import "time"

// ServerMetrics provides observability for a frame server (name node or
// storage node listener).
//
// This interface is optional: pass nil to disable collection with zero
// overhead.
type ServerMetrics interface {
	// RecordRequest records a completed request with its command name,
	// response status, and duration.
	RecordRequest(command string, status string, duration time.Duration)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections forcibly closed
	// after the shutdown timeout.
	RecordConnectionForceClosed()
}

// ObserveRequest records a completed request on m, tolerating nil.
func ObserveRequest(m ServerMetrics, command, status string, start time.Time) {
	if m != nil {
		m.RecordRequest(command, status, time.Since(start))
	}
}
