package stopping

import (
	"github.com/roach88/ashc/internal/bayes"
)

// Reason names the rule that produced a stop.
type Reason string

const (
	ReasonNone       Reason = "none"
	ReasonNDiff      Reason = "n_diff"
	ReasonMaxSamples Reason = "max_samples"
	ReasonTier       Reason = "tier"
)

// State is the running tally of a session. It is a value; Record returns the
// next state.
type State struct {
	Prior        bayes.BetaPrior `json:"prior"`
	SamplesTaken int             `json:"samples_taken"`
	Successes    int             `json:"successes"`
	Failures     int             `json:"failures"`
}

// NewState starts a tally from prior.
func NewState(prior bayes.BetaPrior) State {
	return State{Prior: prior}
}

// Record returns the state after one more sample.
func (s State) Record(success bool) State {
	next := s
	next.Prior = s.Prior.Update(success)
	next.SamplesTaken++
	if success {
		next.Successes++
	} else {
		next.Failures++
	}
	return next
}

// Diff returns |successes - failures|.
func (s State) Diff() int {
	d := s.Successes - s.Failures
	if d < 0 {
		return -d
	}
	return d
}

// Decision is the controller's verdict on a state.
type Decision struct {
	Stop   bool             `json:"stop"`
	Reason Reason           `json:"reason"`
	Tier   bayes.TierResult `json:"tier"`
}

// Controller applies a validated Config to states.
type Controller struct {
	cfg Config
}

// NewController validates cfg and returns a controller.
func NewController(cfg Config) (*Controller, error) {
	valid, err := cfg.Validated()
	if err != nil {
		return nil, err
	}
	return &Controller{cfg: valid}, nil
}

// Config returns the controller's validated configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// ShouldStop evaluates the stop rules against state in order.
//
// State.Prior is the current posterior (the session prior updated by every
// recorded sample), as maintained by State.Record.
func (c *Controller) ShouldStop(state State) Decision {
	tier := bayes.Classify(state.Prior, c.cfg.TierBoundary, c.cfg.ConfidenceThreshold)

	if state.Diff() >= c.cfg.NDiffMargin {
		return Decision{Stop: true, Reason: ReasonNDiff, Tier: tier}
	}
	if state.SamplesTaken >= c.cfg.MaxSamples {
		return Decision{Stop: true, Reason: ReasonMaxSamples, Tier: tier}
	}
	if state.SamplesTaken == 0 && state.Prior.IsUniform() {
		return Decision{Reason: ReasonNone, Tier: tier}
	}
	if tier.Tier.Decisive() {
		return Decision{Stop: true, Reason: ReasonTier, Tier: tier}
	}
	return Decision{Reason: ReasonNone, Tier: tier}
}
