package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rs/zerolog"
)

type ctxKey string

const principalKey ctxKey = "auth_principal"

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/preauth-service/auth")

// MetricsRecorder interface for recording auth metrics
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

// Middleware validates token, injects Principal into request context.
// verifier should be created with NewVerifier.
func Middleware(ver *Verifier) func(http.Handler) http.Handler {
	return MiddlewareWithMetrics(ver, nil)
}

// reject ends the span as failed and writes the JSON error envelope used by
// every handler in the service.
func reject(w http.ResponseWriter, span trace.Span, status int, code, message string) {
	span.SetStatus(codes.Error, message)
	span.SetAttributes(attribute.String("error.type", code))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header
// and the failure reason when there is none.
func bearerToken(r *http.Request) (string, string) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", "missing_authorization"
	}
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid_header_format"
	}
	return strings.TrimSpace(token), ""
}

// MiddlewareWithMetrics validates token with metrics recording
func MiddlewareWithMetrics(ver *Verifier, metrics MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.Middleware",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			fail := func(reason, message string) {
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, reason)
				}
				reject(w, span, http.StatusUnauthorized, reason, message)
			}

			tok, reason := bearerToken(r)
			if reason != "" {
				fail(reason, "A bearer token is required")
				return
			}

			pr, err := ver.ParseAndVerifyToken(tok)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("token validation failed")
				span.SetAttributes(attribute.String("error.message", err.Error()))
				fail("invalid_token", "The bearer token is invalid or expired")
				return
			}

			span.SetAttributes(
				attribute.String("user.id", pr.UserID),
				attribute.StringSlice("user.roles", pr.Roles),
			)
			span.SetStatus(codes.Ok, "authenticated")

			ctx = context.WithValue(ctx, principalKey, pr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PermissionMetricsRecorder interface for recording permission check metrics
type PermissionMetricsRecorder interface {
	RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool)
}

// RequirePermission returns middleware that ensures the principal has permission.
func RequirePermission(per string, perms Permissions) func(http.Handler) http.Handler {
	return RequirePermissionWithMetrics(per, perms, nil)
}

// RequirePermissionWithMetrics returns middleware with metrics recording
func RequirePermissionWithMetrics(per string, perms Permissions, metrics PermissionMetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "auth.RequirePermission",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("permission.required", per)),
			)
			defer span.End()

			record := func(allowed bool) {
				if metrics != nil {
					metrics.RecordPermissionCheck(ctx, per, float64(time.Since(start).Microseconds())/1000, allowed)
				}
			}

			pr, ok := FromContext(ctx)
			if !ok {
				record(false)
				reject(w, span, http.StatusUnauthorized, "unauthenticated", "Authentication is required")
				return
			}

			allowed := HasPermission(pr, per, perms)
			span.SetAttributes(
				attribute.Bool("permission.allowed", allowed),
				attribute.String("user.id", pr.UserID),
			)
			record(allowed)

			if !allowed {
				zerolog.Ctx(ctx).Warn().
					Str("user_id", pr.UserID).
					Strs("roles", pr.Roles).
					Str("permission", per).
					Msg("permission denied")
				reject(w, span, http.StatusForbidden, "forbidden", "Missing permission "+per)
				return
			}

			span.SetStatus(codes.Ok, "permission granted")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts Principal from context.
func FromContext(ctx context.Context) (*Principal, bool) {
	pr, ok := ctx.Value(principalKey).(*Principal)
	return pr, ok
}

// HasPermission checks roles -> permissions mapping.
// Realm roles are matched as-is, then upper-cased ("clinician" matches CLINICIAN).
func HasPermission(pr *Principal, permission string, perms Permissions) bool {
	roleSet := map[string]struct{}{}
	for _, r := range pr.Roles {
		roleSet[r] = struct{}{}
	}
	for role := range roleSet {
		// permissions.yml keys are upper-case
		pList, ok := perms[role]
		if !ok {
			pList, ok = perms[strings.ToUpper(role)]
		}
		if ok {
			for _, p := range pList {
				if p == permission {
					return true
				}
			}
		}
	}
	return false
}

// SessionHeader carries the dashboard session a workflow belongs to.
const SessionHeader = "X-Session-ID"

// SessionID scopes the dashboard session to the authenticated caller:
// "<subject>/<X-Session-ID>", or the subject alone when no header is sent.
// Without a principal there is no session.
func SessionID(r *http.Request) string {
	pr, ok := FromContext(r.Context())
	if !ok || pr.UserID == "" {
		return ""
	}
	if tab := strings.TrimSpace(r.Header.Get(SessionHeader)); tab != "" {
		return pr.UserID + "/" + tab
	}
	return pr.UserID
}
