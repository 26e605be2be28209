// Package mongostore implements the store contracts on MongoDB.
//
// Email uniqueness relies on a unique index created by [Store.EnsureIndexes].
// Tokens live inside the account document and are maintained with $push and
// $pull, so single-token updates are atomic without a transaction.
package mongostore
