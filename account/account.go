package account

import (
	"strings"
	"time"
)

// Account is the stored identity record. PasswordHash and Tokens never leave
// the process through JSON; use ToPublicView for external representations.
type Account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Age          int           `json:"age"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Tokens       []TokenRecord `json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// TokenRecord is one issued bearer token kept for revocation bookkeeping.
type TokenRecord struct {
	Token string `json:"token"`
}

// PublicAccount is the sanitized view of an Account.
type PublicAccount struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fields are the caller-supplied values for a new account.
type Fields struct {
	Name     string
	Age      int
	Email    string
	Password string
}

// Patch carries the fields to change on an existing account. Nil fields are
// left untouched.
type Patch struct {
	Name     *string
	Age      *int
	Email    *string
	Password *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.Email == nil && p.Password == nil
}

// New builds an Account from validated fields and a precomputed digest.
func New(id string, f Fields, passwordHash string, now time.Time) *Account {
	now = now.UTC()
	return &Account{
		ID:           id,
		Name:         f.Name,
		Age:          f.Age,
		Email:        f.Email,
		PasswordHash: passwordHash,
		Tokens:       []TokenRecord{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Apply writes the non-password fields of a validated patch. passwordHash
// replaces the digest only when non-empty.
func (a *Account) Apply(p Patch, passwordHash string, now time.Time) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Age != nil {
		a.Age = *p.Age
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if passwordHash != "" {
		a.PasswordHash = passwordHash
	}
	a.UpdatedAt = now.UTC()
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Tokens = append([]TokenRecord(nil), a.Tokens...)
	return &out
}

// HasToken reports whether token is in the active list.
func (a *Account) HasToken(token string) bool {
	for _, rec := range a.Tokens {
		if rec.Token == token {
			return true
		}
	}
	return false
}

// AddToken appends token to the active list.
func (a *Account) AddToken(token string) {
	a.Tokens = append(a.Tokens, TokenRecord{Token: token})
}

// RemoveToken drops every record matching token and reports whether any was
// present.
func (a *Account) RemoveToken(token string) bool {
	kept := a.Tokens[:0]
	removed := false
	for _, rec := range a.Tokens {
		if rec.Token == token {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	a.Tokens = kept
	return removed
}

// ToPublicView strips credential and session material from a.
func ToPublicView(a *Account) PublicAccount {
	return PublicAccount{
		ID:        a.ID,
		Name:      a.Name,
		Age:       a.Age,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
