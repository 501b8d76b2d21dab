package services

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Every operation returns a success value or exactly
// one of these; ErrStorage is the only kind whose effect is unknown to the
// caller (retry the whole user action, never resume mid-operation).
var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientPoolFunds  = errors.New("insufficient pool funds")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrInvalidBet             = errors.New("bet outside allowed range")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrSelfTransfer           = errors.New("cannot transfer to self")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrAlreadyFinal           = errors.New("request already final")
	ErrCooldownActive         = errors.New("cooldown active")
	ErrStorage                = errors.New("storage error")
)

var knownErrors = []error{
	ErrInsufficientFunds,
	ErrInsufficientPoolFunds,
	ErrInsufficientCollateral,
	ErrInvalidBet,
	ErrInvalidAmount,
	ErrSelfTransfer,
	ErrNotFound,
	ErrForbidden,
	ErrAlreadyFinal,
	ErrCooldownActive,
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

// asEngineError passes taxonomy errors through and wraps everything else as
// ErrStorage.
func asEngineError(err error) error {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return storageError(err)
}
