package auth

import (
	"errors"
	"sync"

	"mercator-hq/chatrelay/pkg/config"
)

var (
	// ErrInvalidToken is returned for a token that is not configured.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenDisabled is returned for a configured but disabled token.
	ErrTokenDisabled = errors.New("token disabled")
)

// TokenValidator validates tokens against a configured set.
type TokenValidator struct {
	mu     sync.RWMutex
	tokens map[string]*TokenInfo
}

// NewTokenValidator creates a validator with the given tokens.
func NewTokenValidator(tokens []*TokenInfo) *TokenValidator {
	v := &TokenValidator{}
	v.Replace(tokens)
	return v
}

// FromConfig builds TokenInfo values from the authentication configuration.
func FromConfig(cfg []config.TokenConfig) []*TokenInfo {
	out := make([]*TokenInfo, 0, len(cfg))
	for i := range cfg {
		out = append(out, &TokenInfo{
			Token:    cfg[i].Token,
			Identity: cfg[i].Identity,
			Enabled:  cfg[i].IsEnabled(),
		})
	}
	return out
}

// Validate checks the token and returns its info.
func (v *TokenValidator) Validate(token string) (*TokenInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	if !info.Enabled {
		return nil, ErrTokenDisabled
	}
	return info, nil
}

// List returns all configured tokens.
func (v *TokenValidator) List() []*TokenInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]*TokenInfo, 0, len(v.tokens))
	for _, info := range v.tokens {
		out = append(out, info)
	}
	return out
}

// Replace swaps the whole token set, as done on a configuration reload.
func (v *TokenValidator) Replace(tokens []*TokenInfo) {
	m := make(map[string]*TokenInfo, len(tokens))
	for _, t := range tokens {
		m[t.Token] = t
	}

	v.mu.Lock()
	v.tokens = m
	v.mu.Unlock()
}
