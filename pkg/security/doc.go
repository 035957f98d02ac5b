// Package security implements the authorization and credential-management
// core: the shared user/role subject registry, per-provider credential
// storage and lookup, permission resolution, persisted sessions, and
// datasource access grants.
//
// All state lives in the relational store behind pkg/database; the
// Controller keeps nothing in memory between calls, so any number of
// instances can serve the same store concurrently.
package security
