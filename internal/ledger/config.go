// Package ledger tracks how well an identity's confidence claims are
// calibrated.
//
// Claims are framed as bets. Settling a bet adjusts the identity's
// credibility asymmetrically: an overconfident failure costs Penalty, a
// well-calibrated success earns Reward, anything else leaves credibility
// unchanged. Every confidence the identity reports externally is discounted
// by its current credibility.
package ledger

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Defaults for Config.
const (
	DefaultPenalty                 = 0.15
	DefaultReward                  = 0.02
	DefaultOverconfidenceThreshold = 0.8
	DefaultInitialCredibility      = 1.0
)

// Config holds the credibility rules.
type Config struct {
	Penalty                 float64 `json:"penalty" validate:"gte=0,lte=1"`
	Reward                  float64 `json:"reward" validate:"gte=0,lte=1"`
	OverconfidenceThreshold float64 `json:"overconfidence_threshold" validate:"gte=0,lte=1"`
	InitialCredibility      float64 `json:"initial_credibility" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the standard 0.15 / 0.02 asymmetry.
func DefaultConfig() Config {
	return Config{
		Penalty:                 DefaultPenalty,
		Reward:                  DefaultReward,
		OverconfidenceThreshold: DefaultOverconfidenceThreshold,
		InitialCredibility:      DefaultInitialCredibility,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field is within [0,1].
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("ledger config: %s=%v must be in [0,1]", fe.Field(), fe.Value())
		}
		return fmt.Errorf("ledger config: %w", err)
	}
	return nil
}
