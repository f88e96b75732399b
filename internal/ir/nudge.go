package ir

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NudgeKey canonicalizes a nudge descriptor so that spelling variants of the
// same perturbation land on the same causal edge: NFC normalization, Unicode
// case folding, and whitespace collapsed to single spaces.
func NudgeKey(descriptor string) string {
	folded := cases.Fold().String(norm.NFC.String(descriptor))
	return strings.Join(strings.Fields(folded), " ")
}
