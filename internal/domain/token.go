package domain

import "time"

// Token carries an issued bearer token plus its validity bounds. Tokens are
// never persisted; the service holds no record of them after issuance.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
