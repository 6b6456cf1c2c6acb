// Package common contains shared constants and sentinel errors used across
// gophauth components.
package common

// SessionTokenKey is the key under which the client persists the active
// session identifier in its token store.
const SessionTokenKey = "__session"

// AuthorizationHeaderName carries the bearer credential on backend requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is prepended to session JWTs in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// CodeLength is the number of digits in an emailed verification code.
const CodeLength = 6
