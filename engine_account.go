package goAccount

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
)

// CreateAccount validates req, hashes the password and persists the account.
//
// Validation is all-or-nothing: the first failing field is reported as a
// *ValidationError and nothing is written. A normalized email that is
// already registered is reported as a *ValidationError on the email field.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	fields, err := e.policy.ValidateFields(req.fields())
	if err != nil {
		e.metricInc(MetricAccountValidationFailed)
		e.emitAudit(ctx, auditEventAccountCreateFailure, false, "", err, validationMetadata(err))
		return nil, err
	}

	digest, err := e.hashPassword(fields.Password)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			e.metricInc(MetricAccountValidationFailed)
			e.emitAudit(ctx, auditEventAccountCreateFailure, false, "", err, validationMetadata(err))
		}
		return nil, err
	}
	fields.Password = ""

	acct := account.New(e.newID(), fields, digest, e.now())
	if err := e.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			e.metricInc(MetricAccountDuplicateEmail)
			e.emitAudit(ctx, auditEventAccountCreateFailure, false, "", err, nil)
			return nil, duplicateEmailError()
		}
		err = storeErr("create account", err)
		e.emitAudit(ctx, auditEventAccountCreateFailure, false, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, acct.ID, nil, nil)
	return acct, nil
}

// GetAccount loads an account by ID. The returned record still carries the
// digest and token list; use ToPublicView before exposing it.
func (e *Engine) GetAccount(ctx context.Context, id string) (*Account, error) {
	return e.loadAccount(ctx, "get account", id)
}

// UpdateAccount applies the set fields of patch to account id.
//
// The password is re-hashed only when the supplied plaintext does not match
// the current digest. An absent or unchanged password leaves PasswordHash
// byte-for-byte identical.
func (e *Engine) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*Account, error) {
	validated, err := e.policy.ValidatePatch(patch.patch())
	if err != nil {
		e.metricInc(MetricAccountValidationFailed)
		e.emitAudit(ctx, auditEventAccountUpdateFailure, false, id, err, validationMetadata(err))
		return nil, err
	}

	current, err := e.loadAccount(ctx, "get account", id)
	if err != nil {
		return nil, err
	}
	if validated.IsEmpty() {
		return current, nil
	}

	var digest string
	if validated.Password != nil && !e.hasher.Verify(*validated.Password, current.PasswordHash) {
		digest, err = e.hashPassword(*validated.Password)
		if err != nil {
			if errors.Is(err, ErrValidation) {
				e.metricInc(MetricAccountValidationFailed)
				e.emitAudit(ctx, auditEventAccountUpdateFailure, false, id, err, validationMetadata(err))
			}
			return nil, err
		}
	}
	passwordChanged := digest != ""
	revoke := passwordChanged && e.config.Account.RevokeTokensOnPasswordChange

	// Tokens are cleared before the new digest is written, so a failure
	// leaves the old password in force.
	if revoke {
		if err := e.accounts.ClearTokens(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			err = storeErr("clear tokens", err)
			e.emitAudit(ctx, auditEventAccountUpdateFailure, false, id, err, nil)
			return nil, err
		}
	}

	updated := current.Clone()
	updated.Apply(validated, digest, e.now())
	if revoke {
		updated.Tokens = []TokenRecord{}
	}
	if err := e.accounts.Update(ctx, updated); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			e.metricInc(MetricAccountDuplicateEmail)
			e.emitAudit(ctx, auditEventAccountUpdateFailure, false, id, err, nil)
			return nil, duplicateEmailError()
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrAccountNotFound
		}
		err = storeErr("update account", err)
		e.emitAudit(ctx, auditEventAccountUpdateFailure, false, id, err, nil)
		return nil, err
	}

	if passwordChanged {
		e.metricInc(MetricPasswordRehashed)
	}

	e.metricInc(MetricAccountUpdated)
	e.emitAudit(ctx, auditEventAccountUpdated, true, id, nil, func() map[string]string {
		return map[string]string{"password_changed": fmt.Sprint(passwordChanged)}
	})
	return updated, nil
}

// DeleteAccount removes acct and every task it owns.
//
// When the account store can cascade in one atomic unit and
// Account.AtomicCascadeDelete is set, that path is used. Otherwise the tasks
// are removed first and the account record only afterwards. Either way a
// failure while removing tasks aborts with *CascadeDeleteError and the
// account stays active.
func (e *Engine) DeleteAccount(ctx context.Context, acct *Account) error {
	if acct == nil || acct.ID == "" {
		return ErrAccountNotFound
	}
	id := acct.ID

	if cascader, ok := e.accounts.(store.CascadeDeleter); ok && e.config.Account.AtomicCascadeDelete {
		removed, err := cascader.DeleteAccountCascade(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAccountNotFound
			}
			return e.cascadeFailed(ctx, id, err)
		}
		e.accountDeleted(ctx, id, removed, "atomic")
		return nil
	}

	removed, err := e.tasks.DeleteByOwner(ctx, id)
	if err != nil {
		return e.cascadeFailed(ctx, id, err)
	}
	if err := e.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		err = storeErr("delete account", err)
		e.emitAudit(ctx, auditEventAccountDeleteFailure, false, id, err, nil)
		return err
	}
	e.accountDeleted(ctx, id, removed, "sequential")
	return nil
}

func (e *Engine) accountDeleted(ctx context.Context, id string, tasksRemoved int64, mode string) {
	e.metricInc(MetricAccountDeleted)
	e.metricAdd(MetricTasksCascaded, tasksRemoved)
	e.emitAudit(ctx, auditEventAccountDeleted, true, id, nil, func() map[string]string {
		return map[string]string{
			"tasks_removed": fmt.Sprint(tasksRemoved),
			"cascade":       mode,
		}
	})
}

func (e *Engine) cascadeFailed(ctx context.Context, id string, cause error) error {
	err := &CascadeDeleteError{AccountID: id, Err: cause}
	e.metricInc(MetricCascadeDeleteFailure)
	e.emitAudit(ctx, auditEventAccountDeleteFailure, false, id, err, nil)
	return err
}

// hashPassword reports hasher input limits as a password ValidationError.
func (e *Engine) hashPassword(plaintext string) (string, error) {
	digest, err := e.hasher.Hash(plaintext)
	switch {
	case errors.Is(err, password.ErrPasswordTooLong):
		return "", &ValidationError{
			Field:  account.FieldPassword,
			Reason: fmt.Sprintf("must be at most %d bytes", e.hasher.MaxPasswordBytes()),
		}
	case errors.Is(err, password.ErrEmptyPassword):
		return "", &ValidationError{Field: account.FieldPassword, Reason: "is required"}
	case err != nil:
		return "", fmt.Errorf("hash password: %w", err)
	}
	return digest, nil
}

func duplicateEmailError() error {
	return &ValidationError{Field: account.FieldEmail, Reason: "is already registered"}
}

func validationMetadata(err error) func() map[string]string {
	return func() map[string]string {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return map[string]string{"field": verr.Field}
		}
		return nil
	}
}
