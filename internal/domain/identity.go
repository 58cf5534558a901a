package domain

import "time"

// Identity holds the display attributes derived from a credential's claims.
// It is used for display only; the server re-authorizes every request.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// DisplayName falls back to the email when the token carries no name.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// Credential is a decoded bearer token. Only valid credentials are ever held.
type Credential struct {
	Raw       string
	Identity  Identity
	ExpiresAt time.Time
}

func (c Credential) ExpiredAt(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
