package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/supportdesk/intake-engine/internal/tenant"
)

type contextKey string

const tenantIDKey contextKey = "tenant_id"

// KeyVerifier authorizes a tenant key. Implemented by tenant.Registry.
type KeyVerifier interface {
	Verify(tenantID, key string) error
}

// tenantAuth authenticates requests via X-Tenant-Id and X-Tenant-Key
// headers. Handlers downstream only ever see the authorized tenant id;
// nothing from the request body can widen access.
func tenantAuth(verifier KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := r.Header.Get("X-Tenant-Id")
			if tenantID == "" {
				respondError(w, http.StatusUnauthorized, "missing tenant id")
				return
			}

			key := r.Header.Get("X-Tenant-Key")
			if err := verifier.Verify(tenantID, key); err != nil {
				if errors.Is(err, tenant.ErrUnknownTenant) {
					respondError(w, http.StatusForbidden, "tenant not allowed")
					return
				}
				respondError(w, http.StatusUnauthorized, "invalid tenant key")
				return
			}

			ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tenantFrom returns the authorized tenant id set by tenantAuth.
func tenantFrom(r *http.Request) string {
	id, _ := r.Context().Value(tenantIDKey).(string)
	return id
}
