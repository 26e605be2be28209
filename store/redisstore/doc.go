// Package redisstore implements the store contracts on Redis.
//
// Every multi-key write runs as a Lua script so that email uniqueness, task
// ownership checks, and account cascade deletion are atomic on a single
// Redis node. Key names are listed on [Store].
package redisstore
