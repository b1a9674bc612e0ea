// Package smtp implements an SMTP submission client that delivers encoded
// MIME messages over a single reusable connection.
package smtp

import (
	"encoding/base64"
)

// Credentials hold the identity presented with AUTH LOGIN.
type Credentials struct {
	username string
	token    string
}

// NewCredentials creates Credentials for the given account.
// An empty token disables authentication.
func NewCredentials(username, token string) *Credentials {
	return &Credentials{
		username: username,
		token:    token,
	}
}

// Enabled returns true if a token is configured.
func (a *Credentials) Enabled() bool {
	return a.token != ""
}

// LoginResponses returns the base64-encoded answers to the AUTH LOGIN
// username and password challenges.
func (a *Credentials) LoginResponses() (user, pass string) {
	return base64.StdEncoding.EncodeToString([]byte(a.username)),
		base64.StdEncoding.EncodeToString([]byte(a.token))
}
