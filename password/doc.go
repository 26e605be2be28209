// Package password implements one-way salted password hashing and verification.
//
// # Output format
//
// Argon2id digests are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt digests use the standard $2a$ modular crypt format.
//
// Every [Hasher] supports parameter upgrades: if the stored digest was
// produced with weaker parameters, NeedsUpgrade returns true so the caller
// can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// forbidden substrings) is enforced by the account package.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive digests.
//   - Import any other goAccount package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
