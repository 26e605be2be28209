package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/store"
)

var errTokenRevoked = errors.New("token is not in the account's active list")

// IssueToken signs a token for acct and appends it to the account's active
// list in the store. The in-memory acct is updated on success.
func (e *Engine) IssueToken(ctx context.Context, acct *Account) (string, error) {
	if acct == nil || acct.ID == "" {
		return "", ErrAccountNotFound
	}

	token, err := e.jwtManager.Issue(acct.ID)
	if err != nil {
		return "", err
	}
	if err := e.accounts.AppendToken(ctx, acct.ID, TokenRecord{Token: token}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrAccountNotFound
		}
		return "", storeErr("append token", err)
	}

	acct.AddToken(token)
	e.metricInc(MetricTokenIssued)
	return token, nil
}

// VerifyToken checks the signature and registered claims of token and
// returns the account ID it was issued to. It never reads the store, so a
// revoked token still verifies; use ValidateToken for revocation checks.
func (e *Engine) VerifyToken(token string) (string, error) {
	claims, err := e.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.AccountID(), nil
}

// ValidateToken verifies token and then confirms that its account exists
// and still lists it as active.
func (e *Engine) ValidateToken(ctx context.Context, token string) (*Account, error) {
	claims, err := e.parseToken(token)
	if err != nil {
		return nil, err
	}
	return e.activeAccount(ctx, claims.AccountID(), token)
}

// Validate checks a bearer token under routeMode. ModeInherit applies the
// configured ValidationMode.
func (e *Engine) Validate(ctx context.Context, token string, routeMode RouteMode) (*AuthResult, error) {
	start := time.Now()
	defer e.observe(MetricValidateLatency, start)

	mode, err := e.resolveRouteMode(routeMode)
	if err != nil {
		return nil, err
	}

	claims, err := e.parseToken(token)
	if err != nil {
		return nil, err
	}
	res := &AuthResult{
		AccountID: claims.AccountID(),
		TokenID:   claims.ID,
		Token:     token,
	}
	if mode == ModeJWTOnly {
		return res, nil
	}

	acct, err := e.activeAccount(ctx, res.AccountID, token)
	if err != nil {
		return nil, err
	}
	res.Account = acct
	return res, nil
}

// RevokeToken removes token from acct's active list. Revoking a token that
// is already gone is not an error.
func (e *Engine) RevokeToken(ctx context.Context, acct *Account, token string) error {
	if acct == nil || acct.ID == "" {
		return ErrAccountNotFound
	}
	if err := e.revoke(ctx, acct.ID, token); err != nil {
		return err
	}
	acct.RemoveToken(token)
	return nil
}

// RevokeAllTokens empties acct's active list.
func (e *Engine) RevokeAllTokens(ctx context.Context, acct *Account) error {
	if acct == nil || acct.ID == "" {
		return ErrAccountNotFound
	}
	if err := e.accounts.ClearTokens(ctx, acct.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr("clear tokens", err)
	}
	acct.Tokens = []TokenRecord{}
	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, acct.ID, nil, nil)
	return nil
}

// Logout verifies token and revokes it from the account it names.
func (e *Engine) Logout(ctx context.Context, token string) error {
	claims, err := e.parseToken(token)
	if err != nil {
		return err
	}
	return e.revoke(ctx, claims.AccountID(), token)
}

func (e *Engine) revoke(ctx context.Context, accountID, token string) error {
	if err := e.accounts.RemoveToken(ctx, accountID, token); err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr("remove token", err)
	}
	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventTokenRevoked, true, accountID, nil, nil)
	return nil
}

func (e *Engine) parseToken(token string) (*jwt.Claims, error) {
	if token == "" {
		e.metricInc(MetricTokenRejected)
		return nil, &InvalidTokenError{Cause: errors.New("empty token")}
	}
	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		return nil, &InvalidTokenError{Cause: err}
	}
	return claims, nil
}

func (e *Engine) activeAccount(ctx context.Context, accountID, token string) (*Account, error) {
	acct, err := e.loadAccount(ctx, "get account", accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricTokenRejected)
			return nil, &InvalidTokenError{Cause: ErrAccountNotFound}
		}
		return nil, err
	}
	if !acct.HasToken(token) {
		e.metricInc(MetricTokenRejected)
		return nil, &InvalidTokenError{Cause: errTokenRevoked}
	}
	return acct, nil
}

func (e *Engine) resolveRouteMode(routeMode RouteMode) (ValidationMode, error) {
	switch routeMode {
	case ModeInherit:
		return e.config.ValidationMode, nil
	case ModeJWTOnly, ModeStrict:
		return routeMode, nil
	default:
		return 0, errors.New("invalid route mode")
	}
}
