package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBet is returned when settling a bet this ledger never placed.
	ErrUnknownBet = errors.New("unknown bet")

	// ErrAlreadySettled is returned when a bet is settled a second time.
	ErrAlreadySettled = errors.New("bet already settled")
)

// InvalidBetError reports a bet or settlement with an out-of-range field.
type InvalidBetError struct {
	Field string
	Value float64
}

// Error implements the error interface.
func (e *InvalidBetError) Error() string {
	switch e.Field {
	case "confidence":
		return fmt.Sprintf("invalid bet: confidence %v outside [0,1]", e.Value)
	case "stake":
		return fmt.Sprintf("invalid bet: stake %v must be > 0", e.Value)
	case "bet_id":
		return "invalid bet: bet id is required"
	}
	return fmt.Sprintf("invalid bet: %s=%v", e.Field, e.Value)
}

// IsInvalidBetError reports whether err wraps an *InvalidBetError.
func IsInvalidBetError(err error) bool {
	var ibe *InvalidBetError
	return errors.As(err, &ibe)
}
