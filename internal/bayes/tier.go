package bayes

// ConfidenceTier is the coarse verdict drawn from a posterior. It is a closed
// set: Uncertain, TriviallyEasy and LikelyFails.
type ConfidenceTier int

const (
	// TierUncertain means neither tail holds enough mass to decide.
	TierUncertain ConfidenceTier = iota
	// TierTriviallyEasy means the pass rate is very probably above the boundary.
	TierTriviallyEasy
	// TierLikelyFails means the pass rate is very probably below the boundary.
	TierLikelyFails
)

// String returns the tier's wire name.
func (t ConfidenceTier) String() string {
	switch t {
	case TierTriviallyEasy:
		return "TRIVIALLY_EASY"
	case TierLikelyFails:
		return "LIKELY_FAILS"
	default:
		return "UNCERTAIN"
	}
}

// Decisive reports whether the tier is one that can stop sampling.
func (t ConfidenceTier) Decisive() bool {
	return t == TierTriviallyEasy || t == TierLikelyFails
}

// MarshalText implements encoding.TextMarshaler.
func (t ConfidenceTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TierResult is the output of Classify. Probability is the posterior mass
// supporting Tier (for TierUncertain, the larger of the two tails).
type TierResult struct {
	Tier        ConfidenceTier `json:"tier"`
	Probability float64        `json:"probability"`
}

// Classify places the posterior into a tier. A tail exceeding threshold
// wins; the upper tail is checked first. A threshold of 1 is never exceeded.
func Classify(p BetaPrior, boundary, threshold float64) TierResult {
	above := p.ProbAbove(boundary)
	below := 1 - above

	if above > threshold {
		return TierResult{Tier: TierTriviallyEasy, Probability: above}
	}
	if below > threshold {
		return TierResult{Tier: TierLikelyFails, Probability: below}
	}
	return TierResult{Tier: TierUncertain, Probability: max(above, below)}
}
