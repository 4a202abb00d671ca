package auth

// TokenInfo represents an accepted bearer token and the identity it
// authenticates.
type TokenInfo struct {
	Token    string
	Identity string
	Enabled  bool
}

// TokenStore stores and validates tokens.
type TokenStore interface {
	Validate(token string) (*TokenInfo, error)
	List() []*TokenInfo
}
