package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"mercator-hq/chatrelay/pkg/config"
)

// Credential sources
const (
	SourceStatic = "static"
	SourceOAuth2 = "oauth2"
	SourceAWS    = "aws"
)

// Credentials is what a submission authenticates with. AWS keys sign
// streaming requests; the ID token authorizes unary and WebSocket requests.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	IDToken         string
}

// HasAccessKeys reports whether the credentials can sign requests.
func (c Credentials) HasAccessKeys() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// CredentialSupplier hands out the credentials of the current session.
// Failures are reported as *AuthError.
type CredentialSupplier interface {
	SessionCredentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials always returns the same credentials.
type StaticCredentials struct {
	Credentials Credentials
}

// SessionCredentials implements CredentialSupplier.
func (s StaticCredentials) SessionCredentials(context.Context) (Credentials, error) {
	return s.Credentials, nil
}

// TokenSourceCredentials takes the ID token from an OAuth2 token source.
// The "id_token" extra of the token is preferred over the access token.
type TokenSourceCredentials struct {
	source oauth2.TokenSource
}

// NewTokenSourceCredentials wraps source. Tokens are cached until expiry.
func NewTokenSourceCredentials(source oauth2.TokenSource) *TokenSourceCredentials {
	return &TokenSourceCredentials{source: oauth2.ReuseTokenSource(nil, source)}
}

// SessionCredentials implements CredentialSupplier.
func (s *TokenSourceCredentials) SessionCredentials(context.Context) (Credentials, error) {
	tok, err := s.source.Token()
	if err != nil {
		return Credentials{}, &AuthError{Source: SourceOAuth2, Cause: err}
	}
	id := tok.AccessToken
	if v, ok := tok.Extra("id_token").(string); ok && v != "" {
		id = v
	}
	if id == "" {
		return Credentials{}, &AuthError{Source: SourceOAuth2, Cause: errors.New("token response carried no token")}
	}
	return Credentials{IDToken: id}, nil
}

// AWSCredentials resolves access keys through an AWS credentials provider
// and pairs them with a fixed ID token.
type AWSCredentials struct {
	provider aws.CredentialsProvider
	idToken  string
}

// NewAWSCredentials wraps provider.
func NewAWSCredentials(provider aws.CredentialsProvider, idToken string) *AWSCredentials {
	return &AWSCredentials{provider: provider, idToken: idToken}
}

// SessionCredentials implements CredentialSupplier.
func (s *AWSCredentials) SessionCredentials(ctx context.Context) (Credentials, error) {
	creds, err := s.provider.Retrieve(ctx)
	if err != nil {
		return Credentials{}, &AuthError{Source: SourceAWS, Cause: err}
	}
	return Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		IDToken:         s.idToken,
	}, nil
}

// NewCredentialSupplier builds the supplier selected by cfg. The aws source
// uses the default AWS credential chain in region.
func NewCredentialSupplier(ctx context.Context, cfg *config.CredentialsConfig, region string) (CredentialSupplier, error) {
	switch cfg.Source {
	case "", SourceStatic:
		return StaticCredentials{Credentials: Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			SessionToken:    cfg.SessionToken,
			IDToken:         cfg.IDToken,
		}}, nil

	case SourceOAuth2:
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		return NewTokenSourceCredentials(cc.TokenSource(ctx)), nil

	case SourceAWS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, &AuthError{Source: SourceAWS, Cause: err}
		}
		return NewAWSCredentials(awsCfg.Credentials, cfg.IDToken), nil

	default:
		return nil, fmt.Errorf("unsupported credential source %q (supported: static, oauth2, aws)", cfg.Source)
	}
}
