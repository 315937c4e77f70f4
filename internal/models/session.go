package models

// SessionRecord associates a browser session with an authenticated identity.
// The IDToken is the opaque bearer credential issued by the identity provider.
type SessionRecord struct {
	Email   string `json:"email"`
	IDToken string `json:"id_token"`
}

// Valid reports whether the record carries both required fields. A record
// missing either one is treated as no session at all.
func (r *SessionRecord) Valid() bool {
	return r != nil && r.Email != "" && r.IDToken != ""
}
