package domain

import "time"

// Metrics receives lifecycle and dispatch observations. Implementations must
// be safe for concurrent use and must never block the caller.
type Metrics interface {
	ObserveToolCall(tool, group string, duration time.Duration, err error)
	ObserveGroupLoad(group, cause string)
	ObserveGroupUnload(group, cause string)
	SetLoadedGroups(count int)
}
