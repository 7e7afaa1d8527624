package services

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProduceNotFound   = errors.New("produce not found")
	ErrNotRegistered     = errors.New("account is not registered")
	ErrAlreadyRegistered = errors.New("account is already registered")
	ErrForbidden         = errors.New("caller may not act on this record")
	ErrInvalidTransition = errors.New("order is not in a state that allows this action")
	ErrInsufficientStock = errors.New("insufficient quantity available")
	ErrInvalidRequest    = errors.New("invalid request")
)

// RevertError is a contract-level failure of a submitted transaction. It
// settles the transaction as reverted instead of being retried.
type RevertError struct {
	Err error
}

func (e *RevertError) Error() string { return "reverted: " + e.Err.Error() }

func (e *RevertError) Unwrap() error { return e.Err }

func revert(err error) error {
	if err == nil {
		return nil
	}
	return &RevertError{Err: err}
}
