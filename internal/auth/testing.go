package auth

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/rs/zerolog"
)

// TestKeyID is the kid under which NewTestJWKS serves its key.
const TestKeyID = "test-key-id"

// ContextWithPrincipal adds a principal to the context for testing purposes
// This is exported to allow other packages to create test contexts
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// NewTestJWKS returns a JWKS preloaded with a single key and no refresh loop.
func NewTestJWKS(publicKey *rsa.PublicKey) *JWKS {
	return &JWKS{
		logger: zerolog.Nop(),
		keys: map[string]*rsa.PublicKey{
			TestKeyID: publicKey,
		},
		lastRefresh: time.Now(),
	}
}
