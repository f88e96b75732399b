package ir

import "github.com/roach88/ashc/internal/bayes"

// Evidence is the ordered record of one compile session: the prior the
// session started from plus every run appended so far, in completion order.
//
// Evidence is a value. Append returns a new Evidence and leaves the receiver
// untouched, so a snapshot handed to a caller cannot change under it.
type Evidence struct {
	SpecID string          `json:"spec_id"`
	Prior  bayes.BetaPrior `json:"prior"`
	Runs   []Run           `json:"runs"`
}

// NewEvidence starts an empty evidence record for specID.
func NewEvidence(specID string, prior bayes.BetaPrior) Evidence {
	return Evidence{SpecID: specID, Prior: prior, Runs: []Run{}}
}

// Append returns a copy of e with run added at the end.
func (e Evidence) Append(run Run) Evidence {
	runs := make([]Run, len(e.Runs), len(e.Runs)+1)
	copy(runs, e.Runs)
	return Evidence{SpecID: e.SpecID, Prior: e.Prior, Runs: append(runs, run)}
}

// Total returns the number of runs.
func (e Evidence) Total() int {
	return len(e.Runs)
}

// Successes returns the number of passing runs.
func (e Evidence) Successes() int {
	n := 0
	for _, r := range e.Runs {
		if r.Passed {
			n++
		}
	}
	return n
}

// Failures returns the number of failing runs.
func (e Evidence) Failures() int {
	return e.Total() - e.Successes()
}

// Posterior returns the prior updated with every run.
func (e Evidence) Posterior() bayes.BetaPrior {
	return e.Prior.UpdateAll(e.Successes(), e.Failures())
}

// EquivalenceScore is the posterior mean:
// (successes + alpha) / (total + alpha + beta).
// It is non-decreasing in successes and non-increasing in failures.
func (e Evidence) EquivalenceScore() float64 {
	return EquivalenceScore(e.Prior, e.Successes(), e.Failures())
}

// EquivalenceScore computes the posterior mean for a tally without building
// an Evidence value.
func EquivalenceScore(prior bayes.BetaPrior, successes, failures int) float64 {
	return prior.UpdateAll(successes, failures).Mean()
}

// LastPassing returns the most recent passing run.
func (e Evidence) LastPassing() (Run, bool) {
	for i := len(e.Runs) - 1; i >= 0; i-- {
		if e.Runs[i].Passed {
			return e.Runs[i], true
		}
	}
	return Run{}, false
}
