package telemetry

import (
	"time"

	"voicemirror/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveToolCall(_, _ string, _ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveGroupLoad(_, _ string) {}

func (n *NoopMetrics) ObserveGroupUnload(_, _ string) {}

func (n *NoopMetrics) SetLoadedGroups(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
