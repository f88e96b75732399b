package bayes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		prior     BetaPrior
		threshold float64
		want      ConfidenceTier
	}{
		{"uniform is uncertain", Uniform(), 0.9, TierUncertain},
		{"three straight passes", Uniform().UpdateAll(3, 0), 0.9, TierTriviallyEasy},
		{"three straight failures", Uniform().UpdateAll(0, 3), 0.9, TierLikelyFails},
		{"balanced tally", Uniform().UpdateAll(10, 10), 0.9, TierUncertain},
		{"one pass below threshold", Uniform().UpdateAll(1, 0), 0.9, TierUncertain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prior, 0.5, tt.threshold)
			assert.Equal(t, tt.want, got.Tier)
		})
	}
}

func TestClassify_Probability(t *testing.T) {
	// Beta(4,1): P(theta > 0.5) = 1 - 0.5^4.
	got := Classify(Uniform().UpdateAll(3, 0), 0.5, 0.9)
	assert.InDelta(t, 0.9375, got.Probability, 1e-9)

	unc := Classify(Uniform().UpdateAll(1, 0), 0.5, 0.9)
	assert.InDelta(t, 0.75, unc.Probability, 1e-9)
}

func TestClassify_ThresholdMustBeExceeded(t *testing.T) {
	// Beta(4,1) puts 0.9375 above 0.5.
	p := Uniform().UpdateAll(3, 0)
	assert.Equal(t, TierUncertain, Classify(p, 0.5, 0.94).Tier)
	assert.Equal(t, TierTriviallyEasy, Classify(p, 0.5, 0.93).Tier)

	// Rounding drives the tail mass to 1.0; a threshold of 1 still never stops.
	long := Uniform().UpdateAll(200, 0)
	assert.Equal(t, 1.0, long.ProbAbove(0.5))
	assert.Equal(t, TierUncertain, Classify(long, 0.5, 1).Tier)
	assert.Equal(t, TierUncertain, Classify(Uniform().UpdateAll(0, 200), 0.5, 1).Tier)
}

func TestConfidenceTier_String(t *testing.T) {
	assert.Equal(t, "TRIVIALLY_EASY", TierTriviallyEasy.String())
	assert.Equal(t, "LIKELY_FAILS", TierLikelyFails.String())
	assert.Equal(t, "UNCERTAIN", TierUncertain.String())
	assert.True(t, TierLikelyFails.Decisive())
	assert.False(t, TierUncertain.Decisive())
}
