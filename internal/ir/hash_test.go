package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIDDeterminism(t *testing.T) {
	id1, err := RunID("session-1", 3, "cand-abc", true)
	require.NoError(t, err)
	id2, err := RunID("session-1", 3, "cand-abc", true)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "RunID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestRunIDChangesWithInput(t *testing.T) {
	base := MustRunID("session-1", 1, "cand", true)

	assert.NotEqual(t, base, MustRunID("session-2", 1, "cand", true))
	assert.NotEqual(t, base, MustRunID("session-1", 2, "cand", true))
	assert.NotEqual(t, base, MustRunID("session-1", 1, "other", true))
	assert.NotEqual(t, base, MustRunID("session-1", 1, "cand", false))
}

func TestSpecID(t *testing.T) {
	assert.Equal(t, SpecID("parse ints"), SpecID("parse ints"))
	assert.NotEqual(t, SpecID("parse ints"), SpecID("parse floats"))
	assert.Equal(t, SpecID("caf\u00e9"), SpecID("cafe\u0301"), "spec text is NFC normalized")
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{"text":"x"}`)
	assert.NotEqual(t, hashWithDomain(DomainRun, data), hashWithDomain(DomainSpec, data))
}
