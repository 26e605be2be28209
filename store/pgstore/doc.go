// Package pgstore implements the store contracts on PostgreSQL using pgx.
//
// The schema ships as goose migrations embedded in the binary; call
// [Migrate] once at startup.
package pgstore
