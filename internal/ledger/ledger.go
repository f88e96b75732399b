package ledger

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces bet ids.
type IDGenerator interface {
	Generate() string
}

type uuidV7 struct{}

func (uuidV7) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Ledger is the credibility record of one identity.
//
// A Ledger is process-wide state shared across compile sessions. Construct
// it once with New and pass it by reference; all methods are safe for
// concurrent use and serialize on one lock.
type Ledger struct {
	mu sync.Mutex

	identity string
	cfg      Config
	ids      IDGenerator
	now      func() time.Time
	logger   *slog.Logger

	credibility        float64
	totalBets          int
	successfulBets     int
	overconfidentCount int

	open    map[string]Bet
	settled map[string]bool
	factors map[string]*FactorStats
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(l *Ledger) {
		l.cfg = cfg
	}
}

// WithIDGenerator sets the bet id source. Default: UUIDv7.
func WithIDGenerator(ids IDGenerator) Option {
	return func(l *Ledger) {
		l.ids = ids
	}
}

// WithNow sets the wall clock used for bet and settlement timestamps.
func WithNow(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New creates a ledger for identity starting at the configured initial
// credibility.
func New(identity string, opts ...Option) (*Ledger, error) {
	if identity == "" {
		return nil, fmt.Errorf("ledger: identity is required")
	}

	l := &Ledger{
		identity: identity,
		cfg:      DefaultConfig(),
		ids:      uuidV7{},
		now:      time.Now,
		logger:   slog.Default(),
		open:     make(map[string]Bet),
		settled:  make(map[string]bool),
		factors:  make(map[string]*FactorStats),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.cfg.Validate(); err != nil {
		return nil, err
	}

	l.credibility = l.cfg.InitialCredibility
	credibilityGauge.WithLabelValues(identity).Set(l.credibility)
	return l, nil
}

// Identity returns the identity this ledger scores.
func (l *Ledger) Identity() string {
	return l.identity
}

// Config returns the ledger's rules.
func (l *Ledger) Config() Config {
	return l.cfg
}

// PlaceBet records a confidence claim. Confidence must be in [0,1] and stake
// must be positive.
func (l *Ledger) PlaceBet(confidence, stake float64, factors []string) (Bet, error) {
	if err := validateClaim(confidence, stake); err != nil {
		return Bet{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bet := Bet{
		ID:         l.ids.Generate(),
		Identity:   l.identity,
		Confidence: confidence,
		Stake:      stake,
		Factors:    dedupe(factors),
		PlacedAt:   l.now(),
	}
	l.open[bet.ID] = bet
	return bet, nil
}

// Cancel withdraws an open bet without settling it. Credibility and the
// counters are unchanged and the id can no longer be settled.
func (l *Ledger) Cancel(betID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[betID]; !ok {
		if l.settled[betID] {
			return fmt.Errorf("%w: %s", ErrAlreadySettled, betID)
		}
		return fmt.Errorf("%w: %s", ErrUnknownBet, betID)
	}
	delete(l.open, betID)
	l.logger.Debug("bet canceled", "identity", l.identity, "bet_id", betID)
	return nil
}

// Settle resolves an open bet and applies it to credibility.
func (l *Ledger) Settle(betID string, success bool) (BetSettlement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, ok := l.open[betID]
	if !ok {
		if l.settled[betID] {
			return BetSettlement{}, fmt.Errorf("%w: %s", ErrAlreadySettled, betID)
		}
		return BetSettlement{}, fmt.Errorf("%w: %s", ErrUnknownBet, betID)
	}

	payout := bet.Stake * bet.Confidence
	if !success {
		payout = -payout
	}

	s := BetSettlement{
		BetID:      bet.ID,
		Identity:   l.identity,
		Confidence: bet.Confidence,
		Stake:      bet.Stake,
		Factors:    bet.Factors,
		Success:    success,
		Payout:     payout,
		SettledAt:  l.now(),
	}
	return l.record(s)
}

// RecordSettlement applies a settlement produced elsewhere, such as one
// replayed from storage. It is the only path that moves credibility; Settle
// delegates to it. A bet id is accepted at most once, and the settlement
// must carry the same confidence and stake bounds PlaceBet enforces.
func (l *Ledger) RecordSettlement(s BetSettlement) (BetSettlement, error) {
	if s.Identity != "" && s.Identity != l.identity {
		return BetSettlement{}, fmt.Errorf("ledger: settlement for %q recorded on %q", s.Identity, l.identity)
	}
	if s.BetID == "" {
		return BetSettlement{}, &InvalidBetError{Field: "bet_id"}
	}
	if err := validateClaim(s.Confidence, s.Stake); err != nil {
		return BetSettlement{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record(s)
}

// record must be called with l.mu held.
func (l *Ledger) record(s BetSettlement) (BetSettlement, error) {
	if l.settled[s.BetID] {
		return BetSettlement{}, fmt.Errorf("%w: %s", ErrAlreadySettled, s.BetID)
	}

	s.Identity = l.identity
	s.WasOverconfident = s.Confidence >= l.cfg.OverconfidenceThreshold && !s.Success

	switch {
	case s.WasOverconfident:
		l.credibility = clamp01(l.credibility - l.cfg.Penalty)
		l.overconfidentCount++
	case s.Success && s.Confidence >= l.cfg.OverconfidenceThreshold:
		l.credibility = clamp01(l.credibility + l.cfg.Reward)
	}

	l.totalBets++
	if s.Success {
		l.successfulBets++
	}
	for _, name := range s.Factors {
		fs, ok := l.factors[name]
		if !ok {
			fs = &FactorStats{Factor: name}
			l.factors[name] = fs
		}
		fs.Bets++
		if s.Success {
			fs.Successes++
		}
		if s.WasOverconfident {
			fs.OverconfidentFailures++
		}
	}

	s.CredibilityAfter = l.credibility
	l.settled[s.BetID] = true
	delete(l.open, s.BetID)

	credibilityGauge.WithLabelValues(l.identity).Set(l.credibility)
	l.logger.Info("bet settled",
		"identity", l.identity,
		"bet_id", s.BetID,
		"outcome", s.Outcome(),
		"overconfident", s.WasOverconfident,
		"credibility", l.credibility,
	)
	return s, nil
}

func validateClaim(confidence, stake float64) error {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return &InvalidBetError{Field: "confidence", Value: confidence}
	}
	if math.IsNaN(stake) || math.IsInf(stake, 0) || stake <= 0 {
		return &InvalidBetError{Field: "stake", Value: stake}
	}
	return nil
}

// Discount scales a raw confidence by current credibility.
func (l *Ledger) Discount(raw float64) float64 {
	return raw * l.Credibility()
}

// Credibility returns the current credibility in [0,1].
func (l *Ledger) Credibility() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credibility
}

// Snapshot returns the ledger's counters.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Identity:           l.identity,
		Credibility:        l.credibility,
		TotalBets:          l.totalBets,
		SuccessfulBets:     l.successfulBets,
		OverconfidentCount: l.overconfidentCount,
	}
}

// FactorStats returns the sub-ledger for one factor.
func (l *Ledger) FactorStats(name string) (FactorStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fs, ok := l.factors[name]
	if !ok {
		return FactorStats{}, false
	}
	return *fs, true
}

// Factors returns every factor sub-ledger sorted by name.
func (l *Ledger) Factors() []FactorStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]FactorStats, 0, len(l.factors))
	for _, fs := range l.factors {
		out = append(out, *fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Factor < out[j].Factor })
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func dedupe(factors []string) []string {
	if len(factors) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(factors))
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
