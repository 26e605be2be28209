package middleware

import (
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
)

func RequireStrict(engine *goAccount.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goAccount.ModeStrict)
}
