// Package causal learns which nudges to the generation process predict a
// change in verification outcome.
//
// A Learner turns each (nudge, prior, run) observation into a signed outcome
// delta and folds it into the matching Edge of a shared Graph. The Graph
// answers Predict queries by similarity-weighted averaging over edges, using
// an injected SimilarityFunction. Edges are only ever created or updated.
package causal

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Defaults for Config.
const (
	DefaultSimilarityThreshold     = 0.5
	DefaultConcentrationHalfWeight = 2.0
)

// Config tunes matching and observation weighting.
type Config struct {
	// SimilarityThreshold is the minimum similarity for an edge to count as
	// a match in Predict and CheckMonotonicity.
	SimilarityThreshold float64 `json:"similarity_threshold" validate:"gt=0,lte=1"`

	// ConcentrationHalfWeight is the prior concentration at which an
	// observation carries weight 0.5.
	ConcentrationHalfWeight float64 `json:"concentration_half_weight" validate:"gt=0"`
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:     DefaultSimilarityThreshold,
		ConcentrationHalfWeight: DefaultConcentrationHalfWeight,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("causal config: %w", err)
	}
	return nil
}

// Edge is the learned effect of one canonical nudge.
type Edge struct {
	Key              string  `json:"key"`
	Descriptor       string  `json:"descriptor"`
	OutcomeDelta     float64 `json:"outcome_delta"`
	Confidence       float64 `json:"confidence"`
	ObservationCount int     `json:"observation_count"`
	TotalWeight      float64 `json:"total_weight"`
}

// PredictedEffect is a forecast for a nudge. The zero value means no
// information.
type PredictedEffect struct {
	ExpectedDelta float64 `json:"expected_delta"`
	Confidence    float64 `json:"confidence"`
	Matches       int     `json:"matches"`
}

// Violation is a pair of similar edges whose deltas disagree by more than
// the tolerance.
type Violation struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	Similarity float64 `json:"similarity"`
	DeltaA     float64 `json:"delta_a"`
	DeltaB     float64 `json:"delta_b"`
	Gap        float64 `json:"gap"`
}

// Graph is the process-wide collection of causal edges.
//
// Construct it once and share it across compile sessions; it serializes
// writers on one lock.
type Graph struct {
	mu     sync.RWMutex
	edges  map[string]*Edge
	order  []string
	sim    SimilarityFunction
	cfg    Config
	logger *slog.Logger
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) GraphOption {
	return func(g *Graph) {
		g.logger = logger
	}
}

// NewGraph creates an empty graph scoring similarity with sim.
func NewGraph(sim SimilarityFunction, cfg Config, opts ...GraphOption) (*Graph, error) {
	if sim == nil {
		return nil, fmt.Errorf("causal: similarity function is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Graph{
		edges:  make(map[string]*Edge),
		sim:    sim,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Config returns the graph's tuning.
func (g *Graph) Config() Config {
	return g.cfg
}

// Len returns the number of edges.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Edge returns the edge for a canonical key.
func (g *Graph) Edge(key string) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[key]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Edges returns every edge in creation order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, *g.edges[key])
	}
	return out
}

// Restore loads previously persisted edges, replacing any edge with the
// same key. New keys are appended in the given order.
func (g *Graph) Restore(edges []Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range edges {
		if _, ok := g.edges[e.Key]; !ok {
			g.order = append(g.order, e.Key)
		}
		g.edges[e.Key] = &e
	}
	edgesGauge.Set(float64(len(g.order)))
}

// fold merges one weighted observation into the edge for key.
func (g *Graph) fold(key, descriptor string, delta, weight float64) Edge {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.edges[key]
	if !ok {
		e = &Edge{Key: key, Descriptor: descriptor}
		g.edges[key] = e
		g.order = append(g.order, key)
		edgesGauge.Set(float64(len(g.order)))
	}

	total := e.TotalWeight + weight
	if total > 0 {
		e.OutcomeDelta = (e.OutcomeDelta*e.TotalWeight + delta*weight) / total
	}
	e.TotalWeight = total
	e.Confidence = total / (total + 1)
	e.ObservationCount++
	return *e
}

// Predict forecasts the outcome delta of a nudge from similar edges.
//
// Matching edges are weighted by similarity times edge confidence. The
// result's confidence is the similarity-weighted mean edge confidence,
// reduced by the weighted standard deviation of the matched deltas. With no
// match the zero PredictedEffect is returned.
func (g *Graph) Predict(nudge string) PredictedEffect {
	key := canonicalKey(nudge)

	g.mu.RLock()
	defer g.mu.RUnlock()

	var sumS, sumSC, sumW, sumWD float64
	type match struct{ w, d float64 }
	matches := make([]match, 0)

	for _, k := range g.order {
		e := g.edges[k]
		s := g.sim.Similarity(key, e.Key)
		if s < g.cfg.SimilarityThreshold {
			continue
		}
		w := s * e.Confidence
		sumS += s
		sumSC += s * e.Confidence
		sumW += w
		sumWD += w * e.OutcomeDelta
		matches = append(matches, match{w: w, d: e.OutcomeDelta})
	}
	if len(matches) == 0 || sumW == 0 {
		return PredictedEffect{}
	}

	mean := sumWD / sumW
	var variance float64
	for _, m := range matches {
		variance += m.w * (m.d - mean) * (m.d - mean)
	}
	variance /= sumW
	spread := math.Sqrt(variance)

	conf := (sumSC / sumS) * (1 - spread)
	return PredictedEffect{
		ExpectedDelta: mean,
		Confidence:    math.Max(0, math.Min(1, conf)),
		Matches:       len(matches),
	}
}

// CheckMonotonicity reports every pair of similar edges whose deltas differ
// by more than tolerance. Edges are never modified.
func (g *Graph) CheckMonotonicity(tolerance float64) []Violation {
	g.mu.RLock()
	defer g.mu.RUnlock()

	violations := make([]Violation, 0)
	for i := 0; i < len(g.order); i++ {
		a := g.edges[g.order[i]]
		for j := i + 1; j < len(g.order); j++ {
			b := g.edges[g.order[j]]
			s := g.sim.Similarity(a.Key, b.Key)
			if s < g.cfg.SimilarityThreshold {
				continue
			}
			gap := math.Abs(a.OutcomeDelta - b.OutcomeDelta)
			if gap <= tolerance {
				continue
			}
			violations = append(violations, Violation{
				A:          a.Key,
				B:          b.Key,
				Similarity: s,
				DeltaA:     a.OutcomeDelta,
				DeltaB:     b.OutcomeDelta,
				Gap:        gap,
			})
			g.logger.Warn("causal monotonicity violation",
				"a", a.Key,
				"b", b.Key,
				"similarity", s,
				"gap", gap,
			)
		}
	}
	return violations
}
