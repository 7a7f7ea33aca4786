package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// ResolverFunc extracts the target resource id from a request. An empty
// return means the id could not be resolved.
type ResolverFunc func(r *http.Request) string

// ResolverRegistry maps resource types to their id resolvers, keeping the
// resolution rules centrally auditable instead of scattered across handlers.
type ResolverRegistry struct {
	resolvers map[ResourceType]ResolverFunc
}

// NewResolverRegistry builds the default resolver set. Trip and Expense ids
// come from route parameters, Organization maps to the deployment's tenant
// id, User resolves to the authenticated actor itself.
func NewResolverRegistry(defaultOrgID string) *ResolverRegistry {
	return &ResolverRegistry{
		resolvers: map[ResourceType]ResolverFunc{
			ResourceTrip: func(r *http.Request) string {
				return chi.URLParam(r, "tripID")
			},
			ResourceExpense: func(r *http.Request) string {
				return chi.URLParam(r, "expenseID")
			},
			ResourceOrganization: func(r *http.Request) string {
				return defaultOrgID
			},
			ResourceUser: func(r *http.Request) string {
				return shared.ActorID(r.Context())
			},
		},
	}
}

// Register installs or replaces the resolver for a resource type.
func (rr *ResolverRegistry) Register(resource ResourceType, fn ResolverFunc) {
	rr.resolvers[resource] = fn
}

// Resolve returns the resource id for the request, or empty when the type has
// no resolver or the id is absent.
func (rr *ResolverRegistry) Resolve(resource ResourceType, r *http.Request) string {
	fn, ok := rr.resolvers[resource]
	if !ok {
		return ""
	}
	return fn(r)
}
