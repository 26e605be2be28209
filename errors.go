package goAccount

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goAccount/account"
)

var (
	// ErrInvalidCredentials is returned by Authenticate and Login for an
	// unknown email or a wrong password. The two cases are indistinguishable.
	ErrInvalidCredentials = errors.New("Unable to Login")
	// ErrTokenInvalid matches every *InvalidTokenError.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrCascadeDelete matches every *CascadeDeleteError.
	ErrCascadeDelete = errors.New("cascade delete failed")
	// ErrAccountNotFound is returned when an account lookup by ID misses.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTaskNotFound is returned when a task is missing or owned by another account.
	ErrTaskNotFound = errors.New("task not found")
	// ErrLoginRateLimited is returned once the failed-login budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by Build when a required collaborator is missing.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrValidation matches every *ValidationError.
	ErrValidation = account.ErrValidation
)

// ValidationError names the first field rejected on create or update.
type ValidationError = account.ValidationError

// AuthenticationError is the uniform login failure. Its message never says
// which of email or password was wrong.
type AuthenticationError struct{}

func (AuthenticationError) Error() string { return ErrInvalidCredentials.Error() }

// Is reports whether target is ErrInvalidCredentials.
func (AuthenticationError) Is(target error) bool { return target == ErrInvalidCredentials }

// InvalidTokenError is returned for a bad signature, a missing subject, or a
// token that is no longer in its account's active list.
type InvalidTokenError struct {
	Cause error
}

func (e *InvalidTokenError) Error() string {
	if e.Cause == nil {
		return ErrTokenInvalid.Error()
	}
	return fmt.Sprintf("%s: %v", ErrTokenInvalid, e.Cause)
}

func (e *InvalidTokenError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrTokenInvalid.
func (e *InvalidTokenError) Is(target error) bool { return target == ErrTokenInvalid }

// CascadeDeleteError reports that the owned tasks of an account could not be
// removed. The account is still active when this error is returned.
type CascadeDeleteError struct {
	AccountID string
	Err       error
}

func (e *CascadeDeleteError) Error() string {
	return fmt.Sprintf("%s for account %s: %v", ErrCascadeDelete, e.AccountID, e.Err)
}

func (e *CascadeDeleteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCascadeDelete.
func (e *CascadeDeleteError) Is(target error) bool { return target == ErrCascadeDelete }

// StoreError wraps a persistence failure with the operation that hit it.
// The original error stays reachable through errors.Is and errors.As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
