package httpx

import (
	"context"
	"net/http"
)

const HeaderTenantID = "X-Tenant-Id"

type tenantKey struct{}

// RequireTenant rejects requests without an x-tenant-id header before any
// handler runs and stores the tenant in the request context.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get(HeaderTenantID)
		if tenantID == "" {
			writeStatus(w, http.StatusUnauthorized, "Missing x-tenant-id", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, tenantID)))
	})
}

func TenantFrom(ctx context.Context) string {
	s, _ := ctx.Value(tenantKey{}).(string)
	return s
}
