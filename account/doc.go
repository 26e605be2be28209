// Package account defines the Account record, its field rules, and its
// sanitized public view.
//
// Validation is a pure pipeline: [Policy.ValidateFields] and
// [Policy.ValidatePatch] normalize input and return the first
// [ValidationError] without touching any store. Password hashing happens in
// the Engine before persistence; this package only carries the digest.
package account
