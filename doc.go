// Package goAccount is an account lifecycle core: field validation, salted
// password digests, bearer token issue and revocation, and deletion of the
// tasks an account owns.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config],
// the typed errors, and aliases of the account and store value types.
// Persistence is reached only through the interfaces in package store; the
// concrete backends live in store/redisstore, store/pgstore and
// store/mongostore.
//
// # Deletion ordering
//
// [Engine.DeleteAccount] never lets a reader observe an account gone while
// its tasks remain. Either the store removes both in one atomic unit, or the
// tasks are removed first and the account record afterwards. A failed task
// removal returns [*CascadeDeleteError] and leaves the account active.
//
// # What this package must NOT do
//
//   - Log. Outcomes are reported through [AuditSink] and [Metrics].
//   - Distinguish an unknown email from a wrong password in any return value.
//   - Return the password digest or token list from ToPublicView or JSON.
package goAccount
