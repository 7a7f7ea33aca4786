package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wayfarer-app/wayfarer/internal/observability"
	"github.com/wayfarer-app/wayfarer/internal/policy"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// Evaluator is the decision point consulted by every protected operation.
// "Not authorized" is the Deny decision, never an error; errors are reserved
// for invalid requests (unknown resource type, action outside the
// vocabulary). Infrastructure failures are normalized to Deny so that an
// unreachable backend can never grant access.
type Evaluator interface {
	Evaluate(ctx context.Context, actorID, action string, resource ResourceType, resourceID string) (Decision, error)
}

// AssignmentSource resolves the caller's role assignment on a trip.
// Implementations return shared.ErrNotFound when no assignment exists.
type AssignmentSource interface {
	ForUser(ctx context.Context, tripID, userID string) (RoleAssignment, error)
}

// TripLookup resolves the trip an expense belongs to. Implementations return
// shared.ErrNotFound for unknown expenses.
type TripLookup interface {
	TripForExpense(ctx context.Context, expenseID string) (string, error)
}

// DecisionClient is the slice of the policy client the remote strategy needs.
type DecisionClient interface {
	Authorize(ctx context.Context, actor policy.Value, action string, resource policy.Value) (bool, error)
}

// LocalEvaluator decides from the relational role assignments and the static
// allowed-roles tables, without contacting the policy service.
type LocalEvaluator struct {
	assignments AssignmentSource
	expenses    TripLookup
	directory   *Directory
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewLocalEvaluator constructs the local-role strategy.
func NewLocalEvaluator(assignments AssignmentSource, expenses TripLookup, directory *Directory, logger *slog.Logger, metrics *observability.Metrics) *LocalEvaluator {
	return &LocalEvaluator{
		assignments: assignments,
		expenses:    expenses,
		directory:   directory,
		logger:      logger,
		metrics:     metrics,
	}
}

// Evaluate implements Evaluator.
func (e *LocalEvaluator) Evaluate(ctx context.Context, actorID, action string, resource ResourceType, resourceID string) (Decision, error) {
	if err := validate(action, resource); err != nil {
		return Deny, err
	}
	if actorID == "" || resourceID == "" {
		return Deny, nil
	}

	switch resource {
	case ResourceOrganization:
		// Single-tenant deployments grant organization-level actions to every
		// authenticated user; each user is made a member at signup.
		return Allow, nil
	case ResourceTrip:
		return e.evaluateTrip(ctx, actorID, resourceID, tripRolesFor[action])
	case ResourceExpense:
		tripID, err := e.expenses.TripForExpense(ctx, resourceID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Deny, nil
			}
			return e.failClosed(action, resource, err), nil
		}
		return e.evaluateTrip(ctx, actorID, tripID, expenseTripRolesFor[action])
	default:
		return Deny, nil
	}
}

func (e *LocalEvaluator) evaluateTrip(ctx context.Context, actorID, tripID string, allowed []string) (Decision, error) {
	assignment, err := e.assignments.ForUser(ctx, tripID, actorID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Deny, nil
		}
		return e.failClosed("", ResourceTrip, err), nil
	}

	roleName := assignment.RoleName
	if roleName == "" {
		role, err := e.directory.RoleByID(ctx, assignment.RoleID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Deny, nil
			}
			return e.failClosed("", ResourceTrip, err), nil
		}
		roleName = role.Name
	}

	for _, name := range allowed {
		if name == roleName {
			return Allow, nil
		}
	}
	return Deny, nil
}

func (e *LocalEvaluator) failClosed(action string, resource ResourceType, err error) Decision {
	e.logger.Error("authorization backend unavailable, denying",
		slog.String("strategy", "local"),
		slog.String("resource", string(resource)),
		slog.String("action", action),
		slog.Any("error", err))
	e.metrics.ObserveFailClosed()
	return Deny
}

// PolicyEvaluator delegates decisions to the remote policy service.
type PolicyEvaluator struct {
	client  DecisionClient
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPolicyEvaluator constructs the remote-policy strategy.
func NewPolicyEvaluator(client DecisionClient, logger *slog.Logger, metrics *observability.Metrics) *PolicyEvaluator {
	return &PolicyEvaluator{client: client, logger: logger, metrics: metrics}
}

// Evaluate implements Evaluator.
func (e *PolicyEvaluator) Evaluate(ctx context.Context, actorID, action string, resource ResourceType, resourceID string) (Decision, error) {
	if err := validate(action, resource); err != nil {
		return Deny, err
	}
	if actorID == "" || resourceID == "" {
		return Deny, nil
	}

	allowed, err := e.client.Authorize(ctx, Actor(actorID), action, Resource(resource, resourceID))
	if err != nil {
		if errors.Is(err, shared.ErrInvalidRequest) {
			return Deny, err
		}
		e.logger.Error("authorization backend unavailable, denying",
			slog.String("strategy", "policy"),
			slog.String("resource", string(resource)),
			slog.String("action", action),
			slog.Any("error", err))
		e.metrics.ObserveFailClosed()
		return Deny, nil
	}
	if allowed {
		return Allow, nil
	}
	return Deny, nil
}

func validate(action string, resource ResourceType) error {
	if !KnownResource(resource) {
		return fmt.Errorf("authz: unknown resource type %q: %w", resource, shared.ErrInvalidRequest)
	}
	if !ValidAction(resource, action) {
		return fmt.Errorf("authz: action %q not defined for resource %q: %w", action, resource, shared.ErrInvalidRequest)
	}
	return nil
}
