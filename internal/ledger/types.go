package ledger

import "time"

// Bet is a confidence claim placed before its outcome is known.
type Bet struct {
	ID         string    `json:"id"`
	Identity   string    `json:"identity"`
	Confidence float64   `json:"confidence"`
	Stake      float64   `json:"stake"`
	Factors    []string  `json:"factors,omitempty"`
	PlacedAt   time.Time `json:"placed_at"`
}

// BetSettlement is the resolved outcome of a bet. It is created once, by
// Settle, and is the only input that moves credibility.
type BetSettlement struct {
	BetID            string    `json:"bet_id"`
	Identity         string    `json:"identity"`
	Confidence       float64   `json:"confidence"`
	Stake            float64   `json:"stake"`
	Factors          []string  `json:"factors,omitempty"`
	Success          bool      `json:"success"`
	WasOverconfident bool      `json:"was_overconfident"`
	Payout           float64   `json:"payout"`
	CredibilityAfter float64   `json:"credibility_after"`
	SettledAt        time.Time `json:"settled_at"`
}

// Outcome names the settlement's result.
func (s BetSettlement) Outcome() string {
	if s.Success {
		return "success"
	}
	return "failure"
}

// Snapshot is a point-in-time view of a ledger.
type Snapshot struct {
	Identity           string  `json:"identity"`
	Credibility        float64 `json:"credibility"`
	TotalBets          int     `json:"total_bets"`
	SuccessfulBets     int     `json:"successful_bets"`
	OverconfidentCount int     `json:"overconfident_count"`
}

// FactorStats is the sub-ledger for one cited factor.
type FactorStats struct {
	Factor                string `json:"factor"`
	Bets                  int    `json:"bets"`
	Successes             int    `json:"successes"`
	OverconfidentFailures int    `json:"overconfident_failures"`
}

// Failures returns Bets - Successes.
func (f FactorStats) Failures() int {
	return f.Bets - f.Successes
}

// SuccessRate returns the fraction of settled bets citing the factor that
// succeeded, or 0 with no bets.
func (f FactorStats) SuccessRate() float64 {
	if f.Bets == 0 {
		return 0
	}
	return float64(f.Successes) / float64(f.Bets)
}
