// Package database provides the PostgreSQL gateway for the authorization
// core: connection pooling, the serving-instance identity, scoped
// transactions, and versioned schema migrations.
package database
