package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRun  = "ashc/run/v1"
	DomainSpec = "ashc/spec/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RunID computes the content-addressed ID for a run.
//
// Timestamps and diagnostics are excluded: the ID names "which sample of which
// session produced which verdict", which is stable across re-serialization.
func RunID(sessionID string, seq int64, candidateRef string, passed bool) (string, error) {
	obj := map[string]any{
		"session_id":    sessionID,
		"seq":           seq,
		"candidate_ref": candidateRef,
		"passed":        passed,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RunID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainRun, canonical), nil
}

// SpecID computes the content-addressed ID for a specification text.
// Two sessions over byte-identical (after NFC) specs share a SpecID.
func SpecID(text string) string {
	canonical, err := MarshalCanonical(map[string]any{"text": text})
	if err != nil {
		// Strings always marshal.
		panic(fmt.Sprintf("SpecID: %v", err))
	}
	return hashWithDomain(DomainSpec, canonical)
}

// MustRunID is like RunID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRunID(sessionID string, seq int64, candidateRef string, passed bool) string {
	id, err := RunID(sessionID, seq, candidateRef, passed)
	if err != nil {
		panic(err)
	}
	return id
}
