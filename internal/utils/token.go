package utils

import "time"

// AccountToken is a one-time token for account activation or password
// reset, delivered out of band (email) and stored hashed.
type AccountToken struct {
	Raw string
	Exp time.Time
}

// NewAccountToken generates a random one-time token valid for ttl.
func NewAccountToken(ttl time.Duration) (AccountToken, error) {
	raw, err := randomHex(32)
	if err != nil {
		return AccountToken{}, err
	}
	return AccountToken{Raw: raw, Exp: time.Now().UTC().Add(ttl)}, nil
}
