package pipeline

import "github.com/poiesic/lexmap/core"

// Monitor provides hooks to observe a mapping run.
// All methods are called synchronously; implementations must be fast.
type Monitor interface {
	StartItem(item string)
	AfterPreScan(segments []core.Segment, fallback bool)
	AfterFilter(candidates []core.ScopedCandidate)
	AfterExpansion(added int)
	AfterRank(ranked []core.RankedCandidate, fallback bool)
	AfterJudge(judged []core.JudgedCandidate, fallback bool)
	FinishItem(mapping *core.ItemMapping)
}

// noopMonitor is a no-op implementation of Monitor
// used when no monitor is provided.
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) StartItem(_ string)                                  {}
func (n *noopMonitor) AfterPreScan(_ []core.Segment, _ bool)               {}
func (n *noopMonitor) AfterFilter(_ []core.ScopedCandidate)                {}
func (n *noopMonitor) AfterExpansion(_ int)                                {}
func (n *noopMonitor) AfterRank(_ []core.RankedCandidate, _ bool)          {}
func (n *noopMonitor) AfterJudge(_ []core.JudgedCandidate, _ bool)         {}
func (n *noopMonitor) FinishItem(_ *core.ItemMapping)                      {}
