package auth

import (
	"errors"
	"testing"

	"mercator-hq/chatrelay/pkg/config"
)

func TestTokenValidator_Validate(t *testing.T) {
	validator := NewTokenValidator([]*TokenInfo{
		{Token: "tok-alice", Identity: "alice", Enabled: true},
		{Token: "tok-bob", Identity: "bob", Enabled: false},
	})

	tests := []struct {
		name     string
		token    string
		wantErr  error
		wantUser string
	}{
		{name: "valid enabled token", token: "tok-alice", wantUser: "alice"},
		{name: "disabled token", token: "tok-bob", wantErr: ErrTokenDisabled},
		{name: "unknown token", token: "tok-carol", wantErr: ErrInvalidToken},
		{name: "empty token", token: "", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := validator.Validate(tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.Identity != tt.wantUser {
				t.Errorf("expected identity %q, got %q", tt.wantUser, info.Identity)
			}
		})
	}
}

func TestTokenValidator_Replace(t *testing.T) {
	validator := NewTokenValidator([]*TokenInfo{{Token: "old", Identity: "a", Enabled: true}})

	validator.Replace([]*TokenInfo{{Token: "new", Identity: "b", Enabled: true}})

	if _, err := validator.Validate("old"); err == nil {
		t.Error("expected replaced token to be rejected")
	}
	if _, err := validator.Validate("new"); err != nil {
		t.Errorf("expected new token to validate, got %v", err)
	}
	if n := len(validator.List()); n != 1 {
		t.Errorf("expected 1 token, got %d", n)
	}
}

func TestFromConfig(t *testing.T) {
	off := false
	infos := FromConfig([]config.TokenConfig{
		{Token: "t1", Identity: "alice"},
		{Token: "t2", Identity: "bob", Enabled: &off},
	})

	if len(infos) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(infos))
	}
	if !infos[0].Enabled || infos[0].Identity != "alice" {
		t.Errorf("unexpected first token: %+v", infos[0])
	}
	if infos[1].Enabled {
		t.Error("expected second token disabled")
	}
}
