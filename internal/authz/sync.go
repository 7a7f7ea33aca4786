package authz

import (
	"context"
	"log/slog"

	"github.com/wayfarer-app/wayfarer/internal/observability"
	"github.com/wayfarer-app/wayfarer/internal/policy"
)

// FactStore is the slice of the policy client the synchronizer mutates
// facts through.
type FactStore interface {
	Insert(ctx context.Context, fact policy.Fact) error
	Delete(ctx context.Context, pattern policy.FactPattern) error
	ApplyBatch(ctx context.Context, fn func(*policy.Batch)) error
}

// ResyncEnqueuer schedules a targeted reconciliation for one assignment pair.
type ResyncEnqueuer interface {
	EnqueueResync(ctx context.Context, tripID, userID string) error
}

// Synchronizer translates committed role-assignment mutations into fact
// mutations against the policy service. It must be invoked only after the
// local commit succeeded; a remote failure leaves the stores divergent and is
// reported as drift for out-of-band reconciliation, never rolled back.
type Synchronizer struct {
	facts    FactStore
	enqueuer ResyncEnqueuer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewSynchronizer constructs a Synchronizer. The enqueuer may be nil, in
// which case failed syncs are repaired only by the periodic sweep.
func NewSynchronizer(facts FactStore, enqueuer ResyncEnqueuer, logger *slog.Logger, metrics *observability.Metrics) *Synchronizer {
	return &Synchronizer{facts: facts, enqueuer: enqueuer, logger: logger, metrics: metrics}
}

// AssignmentChanged propagates one committed assignment mutation. Role names
// are the policy-side role identifiers; an empty name means the assignment
// did not exist on that side of the change. On a role change the stale fact
// is deleted before the new one is inserted, within one batch, so the remote
// never derives from two conflicting role facts.
func (s *Synchronizer) AssignmentChanged(ctx context.Context, tripID, userID, oldRole, newRole string) error {
	actor := Actor(userID)
	trip := Resource(ResourceTrip, tripID)

	var err error
	switch {
	case oldRole == "" && newRole == "":
		return nil
	case oldRole == "":
		err = s.facts.Insert(ctx, policy.HasRole(actor, newRole, trip))
	case newRole == "":
		err = s.facts.Delete(ctx, policy.RolePattern(actor, trip))
	default:
		err = s.facts.ApplyBatch(ctx, func(b *policy.Batch) {
			b.Delete(policy.RolePattern(actor, trip))
			b.Insert(policy.HasRole(actor, newRole, trip))
		})
	}

	if err != nil {
		s.reportDrift(ctx, tripID, userID, err)
		return err
	}
	return nil
}

// TripCreated records the facts for a freshly created trip: its organization
// relation and the creator's organizer role, in one batch.
func (s *Synchronizer) TripCreated(ctx context.Context, tripID, creatorID, orgID string) error {
	trip := Resource(ResourceTrip, tripID)
	err := s.facts.ApplyBatch(ctx, func(b *policy.Batch) {
		b.Insert(policy.HasRelation(trip, "organization", Resource(ResourceOrganization, orgID)))
		b.Insert(policy.HasRole(Actor(creatorID), "organizer", trip))
	})
	if err != nil {
		s.reportDrift(ctx, tripID, creatorID, err)
		return err
	}
	return nil
}

// TripDeleted retracts every fact referencing the trip.
func (s *Synchronizer) TripDeleted(ctx context.Context, tripID string) error {
	trip := Resource(ResourceTrip, tripID)
	err := s.facts.ApplyBatch(ctx, func(b *policy.Batch) {
		b.Delete(policy.FactPattern{Predicate: "has_role", Object: &trip})
		b.Delete(policy.FactPattern{Predicate: "has_relation", Subject: &trip})
	})
	if err != nil {
		s.reportDrift(ctx, tripID, "", err)
		return err
	}
	return nil
}

// ExpenseCreated records the expense's trip relation.
func (s *Synchronizer) ExpenseCreated(ctx context.Context, expenseID, tripID string) error {
	err := s.facts.Insert(ctx, policy.HasRelation(
		Resource(ResourceExpense, expenseID), "trip", Resource(ResourceTrip, tripID)))
	if err != nil {
		s.reportDrift(ctx, tripID, "", err)
		return err
	}
	return nil
}

// UserRegistered records organization membership for a new user.
func (s *Synchronizer) UserRegistered(ctx context.Context, userID, orgID string) error {
	err := s.facts.Insert(ctx, policy.HasRole(
		Actor(userID), "member", Resource(ResourceOrganization, orgID)))
	if err != nil {
		s.reportDrift(ctx, "", userID, err)
		return err
	}
	return nil
}

// reportDrift surfaces a sync failure after a successful local commit. The
// local mutation stands; the divergence is logged distinctly, counted, and
// queued for reconciliation where a pair is known.
func (s *Synchronizer) reportDrift(ctx context.Context, tripID, userID string, cause error) {
	s.logger.Error("policy fact sync failed after local commit",
		slog.String("trip_id", tripID),
		slog.String("user_id", userID),
		slog.Any("error", cause))
	s.metrics.ObserveSyncDrift()

	if s.enqueuer == nil || tripID == "" || userID == "" {
		return
	}
	if err := s.enqueuer.EnqueueResync(ctx, tripID, userID); err != nil {
		s.logger.Error("enqueue resync failed",
			slog.String("trip_id", tripID),
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
}
