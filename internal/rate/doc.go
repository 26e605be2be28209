// Package rate implements the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key suffixes
// under the configured prefix:
//   - al:  login per-email
//   - ali: login per-IP
//
// # What this package must NOT do
//
//   - Distinguish unknown emails from known ones.
//   - Be imported outside the goAccount module.
package rate
