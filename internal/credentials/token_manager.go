// Package credentials implements the gateway's minimal TokenManager: an
// in-memory credential-rotation stub backed by an oauth2.TokenSource: either
// a static bearer token or a Kiro IDE token cache file read from disk.
// Device-code and browser-launch login flows are out of scope; this package
// exists only so AcquireContext has something real to return.
package credentials

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

// ErrNoCredentials is returned by AcquireContext when no token source has
// been configured.
var ErrNoCredentials = errors.New("credentials: no token source configured")

// CredentialContext is the handle a caller acquires before calling upstream;
// it carries both the rotation-bookkeeping id and the bearer token to send.
type CredentialContext struct {
	ID          uint64
	AccessToken string
}

// TokenManager hands out CredentialContexts from a single, swappable
// oauth2.TokenSource. Safe for concurrent use across request goroutines.
type TokenManager struct {
	mu     sync.RWMutex
	source oauth2.TokenSource
	nextID uint64
}

// NewStaticTokenManager builds a TokenManager around one fixed bearer token,
// suitable for local/dev use when no IDE token file is available.
func NewStaticTokenManager(accessToken string) *TokenManager {
	m := &TokenManager{}
	if accessToken != "" {
		m.source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	}
	return m
}

// SetTokenSource swaps the backing token source, e.g. when an IDE token file
// is discovered at startup.
func (m *TokenManager) SetTokenSource(source oauth2.TokenSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = source
}

// AcquireContext returns a fresh credential context, or ErrNoCredentials if
// no source is configured, or the source's own error on refresh failure.
func (m *TokenManager) AcquireContext(_ context.Context) (*CredentialContext, error) {
	m.mu.RLock()
	source := m.source
	m.mu.RUnlock()

	if source == nil {
		return nil, ErrNoCredentials
	}
	tok, err := source.Token()
	if err != nil {
		return nil, err
	}
	return &CredentialContext{
		ID:          atomic.AddUint64(&m.nextID, 1),
		AccessToken: tok.AccessToken,
	}, nil
}
