// Package jwt issues and verifies account bearer tokens using configured
// signing keys. Verification is signature-based and never touches a store;
// revocation is enforced by callers checking the account's token list.
package jwt
