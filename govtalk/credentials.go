package govtalk

import (
	"crypto/md5"
	"fmt"
)

// Credentials identifies the presenter to the gateway. The presenter
// identifier and secret are one-way hashed at construction, so the clear
// values never live beyond this constructor and raw envelope logs only ever
// contain the hashes. Immutable; share freely across goroutines.
type Credentials struct {
	email       string
	presenterID string
	secret      string
	test        bool
}

func NewCredentials(email, presenterID, secret string, test bool) *Credentials {
	return &Credentials{
		email:       email,
		presenterID: fmt.Sprintf("%x", md5.Sum([]byte(presenterID))),
		secret:      fmt.Sprintf("%x", md5.Sum([]byte(secret))),
		test:        test,
	}
}

func (c *Credentials) Test() bool { return c.test }

func (c *Credentials) senderDetails() *SenderDetails {
	return &SenderDetails{
		EmailAddress: c.email,
		IDAuthentication: &IDAuthentication{
			SenderID: c.presenterID,
			Authentication: []Authentication{{
				Method: AuthenticationClear,
				Value:  c.secret,
			}},
		},
	}
}
