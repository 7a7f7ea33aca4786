package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/wayfarer-app/wayfarer/internal/authz"
	jobmetrics "github.com/wayfarer-app/wayfarer/internal/jobs"
	"github.com/wayfarer-app/wayfarer/internal/participants"
	"github.com/wayfarer-app/wayfarer/internal/policy"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AssignmentLister reads role assignments for reconciliation.
type AssignmentLister interface {
	ListAll(ctx context.Context) ([]participants.Assignment, error)
	ForUser(ctx context.Context, tripID, userID string) (authz.RoleAssignment, error)
}

// FactStore mutates facts on the policy service.
type FactStore interface {
	Delete(ctx context.Context, pattern policy.FactPattern) error
	ApplyBatch(ctx context.Context, fn func(*policy.Batch)) error
}

// ReconcileJob rebuilds remote has_role facts from the local role assignment
// rows. The local store is the source of truth: for every assignment the job
// deletes whatever role facts the remote holds for the pair and inserts the
// current one, converging the two stores after sync failures.
type ReconcileJob struct {
	Assignments AssignmentLister
	Facts       FactStore
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewReconcileJob wires dependencies for the reconciliation handlers.
func NewReconcileJob(assignments AssignmentLister, facts FactStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{
		Assignments: assignments,
		Facts:       facts,
		Logger:      logger,
		Metrics:     metrics,
	}
}

// HandleSweep processes TaskAuthzReconcile tasks.
func (j *ReconcileJob) HandleSweep(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("authz reconcile: handler not configured")
	}

	tracker := j.metrics().Track(TaskAuthzReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting authz fact reconciliation sweep")

	assignments, err := j.Assignments.ListAll(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load assignments", slog.Any("error", err))
		return resultErr
	}

	repaired := 0
	for _, a := range assignments {
		if err := j.rewritePair(ctx, a.TripID, a.UserID, a.RoleName); err != nil {
			resultErr = err
			logger.Error("rewrite role facts",
				slog.String("trip_id", a.TripID),
				slog.String("user_id", a.UserID),
				slog.Any("error", err))
			return resultErr
		}
		repaired++
	}

	j.metrics().AddRepaired(repaired)
	logger.Info("authz fact reconciliation complete", slog.Int("assignments", repaired))
	return nil
}

// HandleResync processes TaskAuthzResync tasks for a single pair.
func (j *ReconcileJob) HandleResync(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("authz resync: handler not configured")
	}
	var payload ResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.TripID == "" || payload.UserID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAuthzResync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	assignment, err := j.Assignments.ForUser(ctx, payload.TripID, payload.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Pair no longer assigned locally; retract any leftover facts.
			resultErr = j.Facts.Delete(ctx, policy.RolePattern(
				authz.Actor(payload.UserID),
				authz.Resource(authz.ResourceTrip, payload.TripID)))
			return resultErr
		}
		resultErr = err
		return resultErr
	}

	resultErr = j.rewritePair(ctx, assignment.TripID, assignment.UserID, assignment.RoleName)
	if resultErr == nil {
		j.metrics().AddRepaired(1)
	}
	return resultErr
}

// rewritePair replaces the remote role facts for one (trip, user) pair with
// the locally committed role: delete pattern first, insert second, one batch.
func (j *ReconcileJob) rewritePair(ctx context.Context, tripID, userID, roleName string) error {
	actor := authz.Actor(userID)
	trip := authz.Resource(authz.ResourceTrip, tripID)
	return j.Facts.ApplyBatch(ctx, func(b *policy.Batch) {
		b.Delete(policy.RolePattern(actor, trip))
		b.Insert(policy.HasRole(actor, roleName, trip))
	})
}

func (j *ReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
