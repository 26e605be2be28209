package goAccount

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/account"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/store"
)

// Authenticate checks email and plaintext against the stored digest.
//
// An unknown email and a wrong password both return AuthenticationError with
// the same message, and both run one digest verification. With the login
// throttle enabled, both kinds of failure count against the same budget and
// ErrLoginRateLimited is returned once it is spent.
//
// The returned Account still carries its digest and tokens.
func (e *Engine) Authenticate(ctx context.Context, email, plaintext string) (*Account, error) {
	start := time.Now()
	defer e.observe(MetricLoginLatency, start)

	email = account.NormalizeEmail(email)
	plaintext = strings.TrimSpace(plaintext)
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			return nil, e.loginThrottled(ctx, email, err)
		}
	}

	acct, err := e.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr("get account by email", err)
	}

	digest := e.dummyDigest
	if acct != nil {
		digest = acct.PasswordHash
	}
	ok := plaintext != "" && e.hasher.Verify(plaintext, digest)
	if acct == nil || !ok {
		accountID, reason := "", "unknown_email"
		if acct != nil {
			accountID, reason = acct.ID, "password_mismatch"
		}
		return nil, e.loginFailed(ctx, email, ip, accountID, reason)
	}

	e.upgradeDigest(ctx, acct, plaintext)

	if e.rateLimiter != nil {
		// a failed reset only leaves stale counters behind, which expire on their own
		_ = e.rateLimiter.ResetLogin(ctx, email, ip)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.ID, nil, nil)
	return acct, nil
}

// Login authenticates and then issues a token that is appended to the
// account's active list.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*Account, string, error) {
	acct, err := e.Authenticate(ctx, email, plaintext)
	if err != nil {
		return nil, "", err
	}
	token, err := e.IssueToken(ctx, acct)
	if err != nil {
		return nil, "", err
	}
	return acct, token, nil
}

func (e *Engine) loginFailed(ctx context.Context, email, ip, accountID, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil {
			return e.loginThrottled(ctx, email, err)
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": email,
			"reason":     reason,
		}
	})
	return AuthenticationError{}
}

// loginThrottled fails closed: an unreachable throttle backend rejects the
// attempt the same way a spent budget does.
func (e *Engine) loginThrottled(ctx context.Context, email string, cause error) error {
	if errors.Is(cause, rate.ErrRedisUnavailable) {
		e.emitAudit(ctx, auditEventRateLimiterUnavailable, false, "", store.ErrUnavailable, func() map[string]string {
			return map[string]string{"identifier": email}
		})
	}
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, func() map[string]string {
		return map[string]string{"identifier": email}
	})
	return ErrLoginRateLimited
}

// upgradeDigest re-hashes plaintext when the stored digest was produced with
// weaker parameters. It is best-effort and never fails the login.
func (e *Engine) upgradeDigest(ctx context.Context, acct *Account, plaintext string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.hasher.NeedsUpgrade(acct.PasswordHash)
	if err != nil || !needs {
		return
	}
	digest, err := e.hasher.Hash(plaintext)
	if err != nil {
		return
	}

	updated := acct.Clone()
	updated.PasswordHash = digest
	if err := e.accounts.Update(ctx, updated); err != nil {
		e.emitAudit(ctx, auditEventPasswordUpgraded, false, acct.ID, storeErr("update account", err), nil)
		return
	}
	acct.PasswordHash = digest
	e.metricInc(MetricPasswordUpgraded)
	e.emitAudit(ctx, auditEventPasswordUpgraded, true, acct.ID, nil, nil)
}
