// Package middleware exposes HTTP adapters that guard routes with
// goAccount.Engine token validation.
//
// # Guards
//
//   - [Guard] applies a route mode, or the Engine's configured mode with
//     [goAccount.ModeInherit].
//   - [RequireJWTOnly] checks the signature only and never reads the store.
//   - [RequireStrict] also requires the token to be in the account's active list.
//
// Each guard reads the Authorization header, calls Engine.Validate, and stores
// the [goAccount.AuthResult] in the request context. [ClientIP] attaches the
// caller address so that the Engine can apply its per-IP login throttle.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Reach a store; the Engine owns all I/O.
//   - Tell the client why a token was rejected.
package middleware
