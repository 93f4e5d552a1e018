package domain

import "time"

// Token kinds recorded in the ledger. Only access tokens are tracked;
// refresh tokens rely on signature expiry alone.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// IssuedToken is one revocation-ledger row. Expired and Revoked flip
// together and only ever false to true; a revoked token is never
// reinstated. The raw token string is stored as a SHA-256 fingerprint.
type IssuedToken struct {
	ID        string
	TokenHash string
	Subject   string // username of the owning principal
	Kind      string
	Expired   bool
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Live reports whether the token is still acceptable to the gate.
func (t IssuedToken) Live() bool { return !t.Expired && !t.Revoked }

// TokenPair is what every successful auth flow returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
