package authz

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wayfarer-app/wayfarer/internal/observability"
	"github.com/wayfarer-app/wayfarer/internal/platform/httpx"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// Gateway is the request-facing entry point of the authorization subsystem.
// It resolves actor and resource identity from the request, delegates to the
// configured evaluator and translates the decision into an HTTP outcome.
type Gateway struct {
	evaluator Evaluator
	resolvers *ResolverRegistry
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewGateway constructs a Gateway.
func NewGateway(evaluator Evaluator, resolvers *ResolverRegistry, logger *slog.Logger, metrics *observability.Metrics) *Gateway {
	return &Gateway{
		evaluator: evaluator,
		resolvers: resolvers,
		logger:    logger,
		metrics:   metrics,
	}
}

// Require guards a route with a permission check. An unauthenticated request
// gets 401, an unresolvable resource or illegal action 400, a denied actor
// 403; only an allowed request reaches the next handler.
func (g *Gateway) Require(resource ResourceType, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := shared.ActorID(r.Context())
			if actorID == "" {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}

			if !ValidAction(resource, action) {
				httpx.RespondError(w, fmt.Errorf("action %q not defined for resource %q: %w", action, resource, shared.ErrInvalidRequest))
				return
			}

			resourceID := g.resolvers.Resolve(resource, r)
			if resourceID == "" {
				httpx.RespondError(w, fmt.Errorf("%s id is required: %w", resource, shared.ErrInvalidRequest))
				return
			}

			decision, err := g.evaluator.Evaluate(r.Context(), actorID, action, resource, resourceID)
			if err != nil {
				if errors.Is(err, shared.ErrInvalidRequest) {
					httpx.RespondError(w, err)
					return
				}
				g.logger.Error("authorization evaluation failed",
					slog.String("resource", string(resource)),
					slog.String("action", action),
					slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}

			g.metrics.ObserveDecision(string(resource), action, decision.String())
			if decision != Allow {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
