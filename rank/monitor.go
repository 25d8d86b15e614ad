package rank

import "github.com/perigee/recall/core"

// Monitor provides hooks to observe the ranking pipeline.
// Implement this interface to track intermediate stages during retrieval.
type Monitor interface {
	Start(query string)
	AfterVectorStage(candidates int)
	AfterLexicalStage(scored int, zeroTerms bool)
	AfterFusion(candidates int)
	Finish(results []core.RetrievalResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) AfterVectorStage(_ int)          {}
func (n *noopMonitor) AfterLexicalStage(_ int, _ bool) {}
func (n *noopMonitor) AfterFusion(_ int)               {}
func (n *noopMonitor) Finish(_ []core.RetrievalResult) {}
