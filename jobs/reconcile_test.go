package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-app/wayfarer/internal/authz"
	"github.com/wayfarer-app/wayfarer/internal/participants"
	"github.com/wayfarer-app/wayfarer/internal/policy"
	"github.com/wayfarer-app/wayfarer/internal/shared"
	_ "github.com/wayfarer-app/wayfarer/testing"
)

type stubLister struct {
	assignments []participants.Assignment
	listErr     error
}

func (s *stubLister) ListAll(ctx context.Context) ([]participants.Assignment, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.assignments, nil
}

func (s *stubLister) ForUser(ctx context.Context, tripID, userID string) (authz.RoleAssignment, error) {
	for _, a := range s.assignments {
		if a.TripID == tripID && a.UserID == userID {
			return authz.RoleAssignment{TripID: a.TripID, UserID: a.UserID, RoleID: a.RoleID, RoleName: a.RoleName}, nil
		}
	}
	return authz.RoleAssignment{}, shared.ErrNotFound
}

type factOp struct {
	kind string
	fact policy.Fact
	pat  policy.FactPattern
}

type recordingFacts struct {
	ops []factOp
	err error
}

func (r *recordingFacts) Delete(ctx context.Context, pattern policy.FactPattern) error {
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, factOp{kind: "delete", pat: pattern})
	return nil
}

func (r *recordingFacts) ApplyBatch(ctx context.Context, fn func(*policy.Batch)) error {
	if r.err != nil {
		return r.err
	}
	var batch policy.Batch
	fn(&batch)
	batch.Walk(
		func(fact policy.Fact) { r.ops = append(r.ops, factOp{kind: "insert", fact: fact}) },
		func(pat policy.FactPattern) { r.ops = append(r.ops, factOp{kind: "delete", pat: pat}) },
	)
	return nil
}

func TestSweepRewritesEveryAssignment(t *testing.T) {
	lister := &stubLister{assignments: []participants.Assignment{
		{TripID: "t1", UserID: "alice", RoleName: "organizer"},
		{TripID: "t1", UserID: "bob", RoleName: "participant"},
	}}
	facts := &recordingFacts{}
	job := NewReconcileJob(lister, facts, nil, nil)

	err := job.HandleSweep(context.Background(), NewReconcileTask())
	require.NoError(t, err)

	// Two pairs, each rewritten as delete-pattern then insert.
	require.Len(t, facts.ops, 4)
	require.Equal(t, "delete", facts.ops[0].kind)
	require.Equal(t, "insert", facts.ops[1].kind)
	require.Equal(t, policy.String("organizer"), facts.ops[1].fact.Relation)
	require.Equal(t, "delete", facts.ops[2].kind)
	require.Equal(t, "insert", facts.ops[3].kind)
	require.Equal(t, policy.String("participant"), facts.ops[3].fact.Relation)
}

func TestSweepPropagatesListFailure(t *testing.T) {
	lister := &stubLister{listErr: errors.New("pool exhausted")}
	job := NewReconcileJob(lister, &recordingFacts{}, nil, nil)

	err := job.HandleSweep(context.Background(), NewReconcileTask())
	require.Error(t, err)
}

func TestResyncRewritesAssignedPair(t *testing.T) {
	lister := &stubLister{assignments: []participants.Assignment{
		{TripID: "t1", UserID: "bob", RoleName: "viewer"},
	}}
	facts := &recordingFacts{}
	job := NewReconcileJob(lister, facts, nil, nil)

	task, err := NewResyncTask(ResyncPayload{TripID: "t1", UserID: "bob"})
	require.NoError(t, err)
	require.NoError(t, job.HandleResync(context.Background(), task))

	require.Len(t, facts.ops, 2)
	require.Equal(t, "delete", facts.ops[0].kind)
	require.Nil(t, facts.ops[0].pat.Relation, "stale roles of any name must be retracted")
	require.Equal(t, "insert", facts.ops[1].kind)
	require.Equal(t, policy.String("viewer"), facts.ops[1].fact.Relation)
}

func TestResyncRetractsUnassignedPair(t *testing.T) {
	facts := &recordingFacts{}
	job := NewReconcileJob(&stubLister{}, facts, nil, nil)

	task, err := NewResyncTask(ResyncPayload{TripID: "t1", UserID: "ghost"})
	require.NoError(t, err)
	require.NoError(t, job.HandleResync(context.Background(), task))

	// The pair has no local assignment, so only leftover facts are deleted.
	require.Len(t, facts.ops, 1)
	require.Equal(t, "delete", facts.ops[0].kind)
	require.Equal(t, "has_role", facts.ops[0].pat.Predicate)
}

func TestResyncSkipsMalformedPayload(t *testing.T) {
	job := NewReconcileJob(&stubLister{}, &recordingFacts{}, nil, nil)

	err := job.HandleResync(context.Background(), asynq.NewTask(TaskAuthzResync, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	empty, err := json.Marshal(ResyncPayload{})
	require.NoError(t, err)
	err = job.HandleResync(context.Background(), asynq.NewTask(TaskAuthzResync, empty))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
