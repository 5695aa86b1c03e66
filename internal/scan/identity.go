package scan

import (
	"errors"
	"net/http"
	"strings"
)

// Identity is the acting tenant/user for one request, resolved by the
// fronting auth layer before the scan pipeline runs.
type Identity struct {
	TenantID string
	UserID   string
}

// ErrNoTenant means no tenant identity could be resolved from the
// request.
var ErrNoTenant = errors.New("no tenant identity on request")

// IdentityResolver yields the already-authenticated identity for a
// request. Session and cookie mechanics live in the auth layer, not
// here.
type IdentityResolver interface {
	Resolve(r *http.Request) (Identity, error)
}

// HeaderResolver reads the identity headers set by the fronting auth
// proxy, falling back to the request subdomain or a tenant query
// parameter for local development.
type HeaderResolver struct {
	// BaseDomain, when set, enables subdomain fallback: a request to
	// acme.<BaseDomain> resolves tenant "acme".
	BaseDomain string
}

const (
	tenantHeader = "X-Wayve-Tenant"
	userHeader   = "X-Wayve-User"
)

// Resolve extracts the tenant/user identity from the request.
func (h *HeaderResolver) Resolve(r *http.Request) (Identity, error) {
	identity := Identity{
		TenantID: strings.TrimSpace(r.Header.Get(tenantHeader)),
		UserID:   strings.TrimSpace(r.Header.Get(userHeader)),
	}
	if identity.TenantID != "" {
		return identity, nil
	}

	if h.BaseDomain != "" {
		host := r.Host
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		if suffix := "." + h.BaseDomain; strings.HasSuffix(host, suffix) {
			sub := strings.TrimSuffix(host, suffix)
			if sub != "" && !strings.Contains(sub, ".") {
				identity.TenantID = sub
				return identity, nil
			}
		}
	}

	if tenant := strings.TrimSpace(r.URL.Query().Get("tenant")); tenant != "" {
		identity.TenantID = tenant
		return identity, nil
	}

	return Identity{}, ErrNoTenant
}
