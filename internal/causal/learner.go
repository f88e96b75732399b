package causal

import (
	"fmt"

	"github.com/roach88/ashc/internal/bayes"
	"github.com/roach88/ashc/internal/ir"
)

// Learner turns compile observations into graph updates.
type Learner struct {
	graph *Graph
}

// NewLearner returns a learner writing to graph.
func NewLearner(graph *Graph) *Learner {
	return &Learner{graph: graph}
}

// Graph returns the graph the learner writes to.
func (l *Learner) Graph() *Graph {
	return l.graph
}

// Observe records that a run generated under nudge passed or failed, given
// the session posterior just before the run.
//
// The signed delta is outcome (1 pass, 0 fail) minus the prior mean. It is
// weighted by c/(c+h) where c is the prior concentration, so surprises
// against a confident prior count for more than against a vague one.
func (l *Learner) Observe(nudge string, priorBefore bayes.BetaPrior, run ir.Run) (Edge, error) {
	key := canonicalKey(nudge)
	if key == "" {
		return Edge{}, fmt.Errorf("causal: empty nudge descriptor")
	}
	if err := priorBefore.Validate(); err != nil {
		return Edge{}, err
	}

	outcome := 0.0
	if run.Passed {
		outcome = 1
	}
	delta := outcome - priorBefore.Mean()

	c := priorBefore.Concentration()
	weight := c / (c + l.graph.cfg.ConcentrationHalfWeight)

	return l.graph.fold(key, nudge, delta, weight), nil
}

// Predict forwards to the graph.
func (l *Learner) Predict(nudge string) PredictedEffect {
	return l.graph.Predict(nudge)
}

func canonicalKey(nudge string) string {
	return ir.NudgeKey(nudge)
}
