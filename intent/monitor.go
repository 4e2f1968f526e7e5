package intent

import "github.com/poiesic/butler/core"

// ClassifyMonitor provides hooks to observe classification.
// Implement this interface to trace how an utterance was routed.
type ClassifyMonitor interface {
	Start(utterance string)
	AfterEmbedding(vector []float32)
	BestMatch(exemplar core.Exemplar, score float32)
	Fallback(score float32, threshold float32)
	Finish(result core.Classification)
}

// noopMonitor is a no-op implementation of ClassifyMonitor
type noopMonitor struct{}

var _ ClassifyMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                       {}
func (n *noopMonitor) AfterEmbedding(_ []float32)           {}
func (n *noopMonitor) BestMatch(_ core.Exemplar, _ float32) {}
func (n *noopMonitor) Fallback(_ float32, _ float32)        {}
func (n *noopMonitor) Finish(_ core.Classification)         {}
