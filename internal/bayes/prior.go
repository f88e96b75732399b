package bayes

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidPrior is returned when alpha or beta is not a finite positive number.
var ErrInvalidPrior = errors.New("invalid beta prior")

// BetaPrior is a Beta(alpha, beta) distribution over a Bernoulli success rate.
//
// Alpha counts pseudo-successes and Beta counts pseudo-failures. Both are
// strictly positive.
type BetaPrior struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
}

// Uniform returns Beta(1,1), the prior used when nothing is known about a spec.
func Uniform() BetaPrior {
	return BetaPrior{Alpha: 1, Beta: 1}
}

// NewBetaPrior validates alpha and beta and returns the prior.
func NewBetaPrior(alpha, beta float64) (BetaPrior, error) {
	p := BetaPrior{Alpha: alpha, Beta: beta}
	if err := p.Validate(); err != nil {
		return BetaPrior{}, err
	}
	return p, nil
}

// Validate reports whether both parameters are finite and positive.
func (p BetaPrior) Validate() error {
	if !validParam(p.Alpha) {
		return fmt.Errorf("%w: alpha=%v must be finite and > 0", ErrInvalidPrior, p.Alpha)
	}
	if !validParam(p.Beta) {
		return fmt.Errorf("%w: beta=%v must be finite and > 0", ErrInvalidPrior, p.Beta)
	}
	return nil
}

func validParam(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Update returns the posterior after a single Bernoulli observation.
func (p BetaPrior) Update(success bool) BetaPrior {
	if success {
		return BetaPrior{Alpha: p.Alpha + 1, Beta: p.Beta}
	}
	return BetaPrior{Alpha: p.Alpha, Beta: p.Beta + 1}
}

// UpdateAll returns the posterior after the given numbers of successes and
// failures. Order does not matter for a conjugate update.
func (p BetaPrior) UpdateAll(successes, failures int) BetaPrior {
	return BetaPrior{
		Alpha: p.Alpha + float64(successes),
		Beta:  p.Beta + float64(failures),
	}
}

// Mean returns alpha/(alpha+beta).
func (p BetaPrior) Mean() float64 {
	return p.Alpha / (p.Alpha + p.Beta)
}

// Variance returns the variance of the distribution.
func (p BetaPrior) Variance() float64 {
	n := p.Alpha + p.Beta
	return p.Alpha * p.Beta / (n * n * (n + 1))
}

// Concentration returns alpha+beta, the total pseudo-count.
func (p BetaPrior) Concentration() float64 {
	return p.Alpha + p.Beta
}

// IsUniform reports whether the prior is exactly Beta(1,1).
func (p BetaPrior) IsUniform() bool {
	return p.Alpha == 1 && p.Beta == 1
}

// CDF returns P(theta <= x).
func (p BetaPrior) CDF(x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	}
	return p.dist().CDF(x)
}

// ProbAbove returns P(theta > x).
func (p BetaPrior) ProbAbove(x float64) float64 {
	return 1 - p.CDF(x)
}

// CredibleInterval returns the equal-tailed interval holding the given
// probability mass. level must lie strictly between 0 and 1.
func (p BetaPrior) CredibleInterval(level float64) (lo, hi float64, err error) {
	if !(level > 0 && level < 1) {
		return 0, 0, fmt.Errorf("credible interval level %v must be in (0,1)", level)
	}
	tail := (1 - level) / 2
	d := p.dist()
	return d.Quantile(tail), d.Quantile(1 - tail), nil
}

// String renders the prior as Beta(a,b).
func (p BetaPrior) String() string {
	return fmt.Sprintf("Beta(%g,%g)", p.Alpha, p.Beta)
}

func (p BetaPrior) dist() distuv.Beta {
	return distuv.Beta{Alpha: p.Alpha, Beta: p.Beta}
}
