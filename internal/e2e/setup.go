//go:build integration

package e2e

import (
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/auth"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/discharge"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/handoff"
	httpserver "github.com/WailSalutem-Health-Care/preauth-service/internal/http"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/preauth"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/testutil"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// TestServer is the full service wired against PostgreSQL, a fake claims
// backend and an in-memory publisher.
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	Upstream      *testutil.FakeUpstream
	MockPublisher *testutil.MockPublisher
	PrivateKey    *rsa.PrivateKey
}

func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.CleanupTestDB(t, db)
	fake := testutil.NewFakeUpstream(t)
	mockPublisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}
	verifier, privateKey := testutil.CreateTestVerifier(t)

	client, err := upstream.NewClient(fake.URL, 5*time.Second, testutil.NopLogger(), nil)
	if err != nil {
		t.Fatalf("Failed to create upstream client: %v", err)
	}

	store := handoff.NewStore(handoff.NewRepository(db), testutil.NopLogger(), nil)
	router := httpserver.SetupRouter(httpserver.Dependencies{
		Verifier:    verifier,
		Permissions: perms,
		Discharge:   discharge.NewService(upstream.NewPlannerClient(client), store, mockPublisher, nil, testutil.NopLogger()),
		Preauth:     preauth.NewOrchestrator(upstream.NewClaimsClient(client), store, preauth.NewRepository(db), mockPublisher, nil, testutil.NopLogger()),
		Logger:      testutil.NopLogger(),
	})

	return &TestServer{
		Server:        httptest.NewServer(router),
		DB:            db,
		Upstream:      fake,
		MockPublisher: mockPublisher,
		PrivateKey:    privateKey,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()

	testutil.CleanupTestDB(t, ts.DB)
	ts.DB.Close()
}

// NewClient returns a client for this server acting as a clinician in
// the given session.
func (ts *TestServer) NewClient(t *testing.T, sessionID string) *testutil.HTTPTestClient {
	t.Helper()
	client := testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateClinicianToken(t, ts.PrivateKey))
	client.SessionID = sessionID
	return client
}
