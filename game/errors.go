package game

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reasons an action may be illegal.
const (
	OutOfRange   = "out of range"
	Occupied     = "position is occupied"
	Unsupported  = "no support beneath position"
	NotYourTurn  = "not the player to move"
	GameOver     = "game is over"
	NoSuchPlayer = "no such player"
)

// IllegalMoveError is returned when an action cannot be applied to a state.
type IllegalMoveError struct {
	Action Action
	Player Player
	Reason string
}

func (err *IllegalMoveError) Error() string {
	return fmt.Sprintf("Unable to play %v@%d: %s", err.Player, err.Action, err.Reason)
}

// NoLegalActionError is returned when an operation needs a move and none exist.
type NoLegalActionError struct {
	Op string
}

func (err *NoLegalActionError) Error() string {
	return fmt.Sprintf("%s: no legal action", err.Op)
}

// OracleContractError is returned when a policy/value oracle hands back something malformed.
type OracleContractError struct {
	Reason string
}

func (err *OracleContractError) Error() string {
	return "oracle contract violated: " + err.Reason
}

// ConfigurationError is returned for invalid parameters.
type ConfigurationError struct {
	Field string
	Value interface{}
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s = %v", err.Field, err.Value)
}

func illegal(a Action, p Player, reason string) error {
	return errors.WithStack(&IllegalMoveError{Action: a, Player: p, Reason: reason})
}

// IsIllegalMove returns true if any error in err's chain is an IllegalMoveError.
func IsIllegalMove(err error) bool {
	var e *IllegalMoveError
	return errors.As(err, &e)
}
