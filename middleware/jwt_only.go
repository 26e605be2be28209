package middleware

import (
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
)

// RequireJWTOnly guards the wrapped handler with [goAccount.ModeJWTOnly].
// Revoked tokens pass until they expire; use it only for routes that tolerate that.
func RequireJWTOnly(engine *goAccount.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goAccount.ModeJWTOnly)
}
