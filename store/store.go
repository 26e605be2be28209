package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/account"
)

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned by writes that would reuse a registered email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrOwnerNotFound is returned when a task references a missing account.
	ErrOwnerNotFound = errors.New("task owner not found")
	// ErrUnavailable wraps backend connectivity and driver failures.
	ErrUnavailable = errors.New("store unavailable")
)

// AccountStore persists Account records together with their token lists.
//
// Implementations enforce email uniqueness at write time and must make
// AppendToken and RemoveToken atomic with respect to concurrent callers.
type AccountStore interface {
	Create(ctx context.Context, a *account.Account) error
	GetByID(ctx context.Context, id string) (*account.Account, error)
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	// Update replaces the profile fields and password digest. Tokens are
	// managed by the token methods and are left untouched.
	Update(ctx context.Context, a *account.Account) error
	Delete(ctx context.Context, id string) error

	AppendToken(ctx context.Context, id string, rec account.TokenRecord) error
	// RemoveToken is a no-op when the token is absent.
	RemoveToken(ctx context.Context, id string, token string) error
	ClearTokens(ctx context.Context, id string) error
	HasToken(ctx context.Context, id string, token string) (bool, error)
}

// Task is a resource owned by exactly one account.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TaskStore persists tasks keyed by owner.
type TaskStore interface {
	// CreateTask fails with ErrOwnerNotFound when the owner does not exist.
	CreateTask(ctx context.Context, t *Task) error
	ListTasks(ctx context.Context, ownerID string) ([]Task, error)
	// DeleteTask removes one task owned by ownerID. It returns ErrNotFound
	// when the task is missing or belongs to another owner.
	DeleteTask(ctx context.Context, ownerID, taskID string) error
	// DeleteByOwner removes every task of ownerID and returns how many were removed.
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

// CascadeDeleter is implemented by stores that can remove an account and all
// of its tasks in a single atomic unit.
type CascadeDeleter interface {
	DeleteAccountCascade(ctx context.Context, id string) (int64, error)
}

// Backend is a store that serves both accounts and tasks.
type Backend interface {
	AccountStore
	TaskStore
}
