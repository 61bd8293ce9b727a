package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// AuthError is returned when no usable access token could be obtained
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Config for the credential provider
type Config struct {
	ClientID string
	Tenant   string
	Scopes   []string

	// Endpoint overrides the Azure AD endpoint derived from Tenant
	Endpoint *oauth2.Endpoint
}

// Provider hands out access tokens for the mailbox owner. It tries the cached
// token first, then a refresh, then the interactive device-code flow.
type Provider struct {
	oauth  oauth2.Config
	cache  Cache
	logger *slog.Logger

	mu     sync.Mutex
	token  *oauth2.Token
	loaded bool
}

// NewProvider creates a new credential provider
func NewProvider(cfg Config, cache Cache, logger *slog.Logger) *Provider {
	endpoint := microsoft.AzureADEndpoint(cfg.Tenant)
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	// Public client: the client id travels in the form body
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Provider{
		oauth: oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: endpoint,
			Scopes:   cfg.Scopes,
		},
		cache:  cache,
		logger: logger.With("component", "auth"),
	}
}

// AccessToken returns a valid bearer token. Concurrent callers share one
// refresh or device flow.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		tok, err := p.cache.Load()
		if err != nil {
			p.logger.Warn("failed to load token cache", "error", err)
		}
		p.token = tok
		p.loaded = true
	}

	if p.token.Valid() {
		return p.token.AccessToken, nil
	}

	if p.token != nil && p.token.RefreshToken != "" {
		tok, err := p.oauth.TokenSource(ctx, p.token).Token()
		if err == nil {
			p.logger.Debug("access token refreshed", "expiry", tok.Expiry)
			p.store(tok)
			return tok.AccessToken, nil
		}
		p.logger.Warn("token refresh failed, falling back to device flow", "error", err)
	}

	tok, err := p.deviceFlow(ctx)
	if err != nil {
		return "", err
	}
	p.store(tok)
	return tok.AccessToken, nil
}

func (p *Provider) deviceFlow(ctx context.Context) (*oauth2.Token, error) {
	da, err := p.oauth.DeviceAuth(ctx)
	if err != nil {
		return nil, &AuthError{Op: "device authorization", Err: err}
	}

	p.logger.Warn("interactive sign-in required",
		"verification_uri", da.VerificationURI,
		"user_code", da.UserCode,
		"expires", da.Expiry,
	)

	tok, err := p.oauth.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, &AuthError{Op: "device token", Err: err}
	}

	p.logger.Info("device sign-in completed")
	return tok, nil
}

// store keeps tok and writes it to the cache if it differs from the current one
func (p *Provider) store(tok *oauth2.Token) {
	prev := p.token
	p.token = tok

	if prev != nil &&
		prev.AccessToken == tok.AccessToken &&
		prev.RefreshToken == tok.RefreshToken &&
		prev.Expiry.Equal(tok.Expiry) {
		return
	}

	if err := p.cache.Save(tok); err != nil {
		p.logger.Error("failed to save token cache", "error", err)
	}
}
