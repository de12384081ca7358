package events

import "time"

// ConnectorCallStart is emitted before an outbound NDC connector call,
// adapted from the teacher's gRPC client instrumentation event to the
// engine's HTTP-speaking connector transport. CallID disambiguates
// concurrently in-flight calls against the same connector within one
// request (query root fields dispatch concurrently, so Start/Finish pairs
// cannot be correlated by request id alone).
type ConnectorCallStart struct {
	CallID    int64
	Operation string // "query" or "mutation"
	URL       string
}

// ConnectorCallFinish is emitted after an outbound NDC connector call
// completes, successfully or not.
type ConnectorCallFinish struct {
	CallID    int64
	Operation string
	URL       string
	Err       error
	Duration  time.Duration
}
