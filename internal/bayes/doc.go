// Package bayes implements the Beta-Binomial conjugate model used to turn
// pass/fail samples into a posterior over a candidate's pass rate.
//
// BetaPrior is a value type. Updates return a new prior and never mutate the
// receiver, so a prior captured before an observation stays valid after it.
//
// The posterior CDF and quantiles come from gonum's Beta distribution.
package bayes
