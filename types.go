package goAccount

import (
	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/store"
)

// Account is the stored identity record.
type Account = account.Account

// PublicAccount is the view of an Account safe to expose to clients.
type PublicAccount = account.PublicAccount

// TokenRecord is one entry of an account's active token list.
type TokenRecord = account.TokenRecord

// Task is a resource owned by one account.
type Task = store.Task

// ToPublicView strips the password digest and token list from a.
func ToPublicView(a *Account) PublicAccount {
	return account.ToPublicView(a)
}

// CreateAccountRequest carries the fields of a new account. Password is the
// plaintext and is hashed before anything is persisted.
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r CreateAccountRequest) fields() account.Fields {
	return account.Fields{
		Name:     r.Name,
		Age:      r.Age,
		Email:    r.Email,
		Password: r.Password,
	}
}

// AccountPatch lists the fields to change. Nil fields are left as they are.
type AccountPatch struct {
	Name     *string `json:"name,omitempty"`
	Age      *int    `json:"age,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (p AccountPatch) patch() account.Patch {
	return account.Patch{
		Name:     p.Name,
		Age:      p.Age,
		Email:    p.Email,
		Password: p.Password,
	}
}

// TaskInput is the caller-supplied content of a new task.
type TaskInput struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// AuthResult is returned by Engine.Validate. Account is populated only on
// the strict path, where the store was consulted.
type AuthResult struct {
	AccountID string
	TokenID   string
	Token     string
	Account   *Account
}
