// Package store defines the persistence contracts used by the Engine.
//
// Concrete backends live in sub-packages:
//
//   - redisstore: Redis, with Lua scripts for uniqueness and cascade delete.
//   - pgstore: PostgreSQL via pgx, with goose migrations.
//   - mongostore: MongoDB, with multi-document transactions for cascade delete.
//
// Every backend wraps connectivity failures with [ErrUnavailable] and
// reports uniqueness violations with [ErrDuplicateEmail].
package store
