package signals

import "context"

// NullEventLog drops every event. Used when the event-logging feature
// flag is off or no database handle is configured; request paths must
// never observe a difference besides the absence of persisted rows.
type NullEventLog struct{}

func (NullEventLog) Publish(context.Context, Published) error       { return nil }
func (NullEventLog) Triggered(context.Context, Triggered) error     { return nil }
func (NullEventLog) Invalidated(context.Context, Invalidated) error { return nil }
func (NullEventLog) Closed(context.Context, Closed) error           { return nil }
