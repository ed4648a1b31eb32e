package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/auth"
)

// CreateTestVerifier creates a verifier that accepts tokens signed with the
// returned private key.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	verifier := auth.NewVerifier(auth.Config{Issuer: TestIssuer}, auth.NewTestJWKS(publicKey))

	return verifier, privateKey
}

// TestPermissions mirrors permissions.yml for router tests.
func TestPermissions() auth.Permissions {
	return auth.Permissions{
		"CLINICIAN": {
			"icd:normalize",
			"discharge:view",
			"discharge:generate",
			"preauth:create",
			"preauth:submit",
			"preauth:view",
		},
		"BILLING": {"discharge:view", "preauth:view"},
	}
}
