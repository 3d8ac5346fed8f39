// Package auth provides authentication and authorisation for the gateway API.
//
// Accounts come from configuration, each with an Argon2id password hash and
// one of three roles:
//
//	viewer   → read the type catalogue, bindings and live values
//	operator → viewer + write values to the bus
//	admin    → operator + manage bindings
//
// A successful login yields a short-lived HS256 JWT carrying the role.
// Permissions are a static role mapping with no database lookup.
//
// Hashes for the configuration file are produced with
//
//	dptctl hash-password
package auth
