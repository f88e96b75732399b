package stopping

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Valid(t *testing.T) {
	cfg, err := NewConfig(3, 20, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.NDiffMargin)
	assert.Equal(t, 20, cfg.MaxSamples)
	assert.Equal(t, 0.9, cfg.ConfidenceThreshold)
	assert.Equal(t, DefaultTierBoundary, cfg.TierBoundary)
}

func TestNewConfig_BoundaryThresholds(t *testing.T) {
	_, err := NewConfig(1, 1, 0)
	assert.NoError(t, err)
	_, err = NewConfig(1, 1, 1)
	assert.NoError(t, err)
}

func TestNewConfig_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		margin    int
		max       int
		threshold float64
		field     string
	}{
		{"zero margin", 0, 20, 0.9, "n_diff_margin"},
		{"negative margin", -1, 20, 0.9, "n_diff_margin"},
		{"zero max samples", 3, 0, 0.9, "max_samples"},
		{"threshold above one", 3, 20, 1.01, "confidence_threshold"},
		{"negative threshold", 3, 20, -0.1, "confidence_threshold"},
		{"nan threshold", 3, 20, math.NaN(), "confidence_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.margin, tt.max, tt.threshold)
			require.Error(t, err)
			assert.True(t, IsInvalidConfigError(err))

			var ice *InvalidConfigError
			require.ErrorAs(t, err, &ice)
			assert.Equal(t, tt.field, ice.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfig_RejectsBadTierBoundary(t *testing.T) {
	_, err := Config{NDiffMargin: 3, MaxSamples: 5, ConfidenceThreshold: 0.9, TierBoundary: 1}.Validated()
	require.Error(t, err)

	var ice *InvalidConfigError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "tier_boundary", ice.Field)
}

func TestNewController_RejectsInvalid(t *testing.T) {
	_, err := NewController(Config{NDiffMargin: 3, MaxSamples: -4, ConfidenceThreshold: 0.5})
	require.Error(t, err)
	assert.True(t, IsInvalidConfigError(err))
}
