package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldTool       = "tool"
	FieldGroup      = "group"
	FieldCause      = "cause"
	FieldDurationMs = "duration_ms"
)

const (
	EventToolCall       = "tool_call"
	EventToolError      = "tool_error"
	EventGroupLoad      = "group_load"
	EventGroupUnload    = "group_unload"
	EventIdleEvict      = "idle_evict"
	EventIntentLoad     = "intent_load"
	EventProfileApplied = "profile_applied"
)

// Load/unload causes reported to metrics and logs.
const (
	CauseExplicit = "explicit"
	CauseIntent   = "intent"
	CauseProfile  = "profile"
	CauseIdle     = "idle"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func GroupField(group string) zap.Field {
	return zap.String(FieldGroup, group)
}

func CauseField(cause string) zap.Field {
	return zap.String(FieldCause, cause)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}
