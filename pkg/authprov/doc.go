// Package authprov defines the authentication-provider catalog consumed by
// the security controller: provider descriptors, their credential profiles,
// and the encryption schemes applied to stored credential values.
//
// The catalog is built explicitly at startup and passed to consumers; there
// is no ambient global registry.
package authprov
