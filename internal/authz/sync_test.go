package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wayfarer-app/wayfarer/internal/policy"
)

type factOp struct {
	kind    string // "insert" or "delete"
	fact    policy.Fact
	pattern policy.FactPattern
}

type recordingFactStore struct {
	ops []factOp
	err error
}

func (s *recordingFactStore) Insert(ctx context.Context, fact policy.Fact) error {
	if s.err != nil {
		return s.err
	}
	s.ops = append(s.ops, factOp{kind: "insert", fact: fact})
	return nil
}

func (s *recordingFactStore) Delete(ctx context.Context, pattern policy.FactPattern) error {
	if s.err != nil {
		return s.err
	}
	s.ops = append(s.ops, factOp{kind: "delete", pattern: pattern})
	return nil
}

func (s *recordingFactStore) ApplyBatch(ctx context.Context, fn func(*policy.Batch)) error {
	if s.err != nil {
		return s.err
	}
	var batch policy.Batch
	fn(&batch)
	batch.Walk(
		func(fact policy.Fact) {
			s.ops = append(s.ops, factOp{kind: "insert", fact: fact})
		},
		func(pattern policy.FactPattern) {
			s.ops = append(s.ops, factOp{kind: "delete", pattern: pattern})
		},
	)
	return nil
}

type recordingEnqueuer struct {
	pairs [][2]string
}

func (e *recordingEnqueuer) EnqueueResync(ctx context.Context, tripID, userID string) error {
	e.pairs = append(e.pairs, [2]string{tripID, userID})
	return nil
}

func newSyncFixture() (*Synchronizer, *recordingFactStore, *recordingEnqueuer) {
	store := &recordingFactStore{}
	enqueuer := &recordingEnqueuer{}
	return NewSynchronizer(store, enqueuer, discardLogger(), nil), store, enqueuer
}

func TestAssignmentChangedInsertsNewRole(t *testing.T) {
	syncer, store, _ := newSyncFixture()

	err := syncer.AssignmentChanged(context.Background(), "t1", "bob", "", "participant")
	require.NoError(t, err)

	require.Len(t, store.ops, 1)
	require.Equal(t, "insert", store.ops[0].kind)
	fact := store.ops[0].fact
	require.Equal(t, "has_role", fact.Predicate)
	require.Equal(t, policy.NewValue("User", "bob"), fact.Subject)
	require.Equal(t, policy.String("participant"), fact.Relation)
	require.Equal(t, policy.NewValue("Trip", "t1"), fact.Object)
}

func TestAssignmentChangedDeletesRemovedRole(t *testing.T) {
	syncer, store, _ := newSyncFixture()

	err := syncer.AssignmentChanged(context.Background(), "t1", "bob", "participant", "")
	require.NoError(t, err)

	require.Len(t, store.ops, 1)
	require.Equal(t, "delete", store.ops[0].kind)
	pattern := store.ops[0].pattern
	require.Equal(t, "has_role", pattern.Predicate)
	require.Nil(t, pattern.Relation, "the delete must match any role for the pair")
}

func TestAssignmentChangedDeletesBeforeInserting(t *testing.T) {
	syncer, store, _ := newSyncFixture()

	err := syncer.AssignmentChanged(context.Background(), "t1", "bob", "participant", "organizer")
	require.NoError(t, err)

	require.Len(t, store.ops, 2)
	require.Equal(t, "delete", store.ops[0].kind, "stale role fact must be retracted first")
	require.Equal(t, "insert", store.ops[1].kind)
	require.Equal(t, policy.String("organizer"), store.ops[1].fact.Relation)
}

func TestAssignmentChangedNoopWithoutRoles(t *testing.T) {
	syncer, store, _ := newSyncFixture()

	err := syncer.AssignmentChanged(context.Background(), "t1", "bob", "", "")
	require.NoError(t, err)
	require.Empty(t, store.ops)
}

func TestAssignmentChangedReportsDriftAndEnqueuesResync(t *testing.T) {
	store := &recordingFactStore{err: errors.New("remote down")}
	enqueuer := &recordingEnqueuer{}
	syncer := NewSynchronizer(store, enqueuer, discardLogger(), nil)

	err := syncer.AssignmentChanged(context.Background(), "t1", "bob", "", "participant")
	require.Error(t, err)
	require.Equal(t, [][2]string{{"t1", "bob"}}, enqueuer.pairs)
}

func TestTripCreatedRecordsRelationAndOrganizer(t *testing.T) {
	syncer, store, _ := newSyncFixture()

	err := syncer.TripCreated(context.Background(), "t1", "alice", "default")
	require.NoError(t, err)

	require.Len(t, store.ops, 2)
	require.Equal(t, "insert", store.ops[0].kind)
	require.Equal(t, "has_relation", store.ops[0].fact.Predicate)
	require.Equal(t, policy.String("organization"), store.ops[0].fact.Relation)

	require.Equal(t, "insert", store.ops[1].kind)
	require.Equal(t, "has_role", store.ops[1].fact.Predicate)
	require.Equal(t, policy.String("organizer"), store.ops[1].fact.Relation)
	require.Equal(t, policy.NewValue("User", "alice"), store.ops[1].fact.Subject)
}

func TestTripDeletedRetractsAllTripFacts(t *testing.T) {
	syncer, store, _ := newSyncFixture()

	err := syncer.TripDeleted(context.Background(), "t1")
	require.NoError(t, err)

	require.Len(t, store.ops, 2)
	for _, op := range store.ops {
		require.Equal(t, "delete", op.kind)
	}
	require.Equal(t, "has_role", store.ops[0].pattern.Predicate)
	require.NotNil(t, store.ops[0].pattern.Object)
	require.Equal(t, "has_relation", store.ops[1].pattern.Predicate)
	require.NotNil(t, store.ops[1].pattern.Subject)
}

func TestExpenseCreatedRecordsTripRelation(t *testing.T) {
	syncer, store, _ := newSyncFixture()

	err := syncer.ExpenseCreated(context.Background(), "e1", "t1")
	require.NoError(t, err)

	require.Len(t, store.ops, 1)
	fact := store.ops[0].fact
	require.Equal(t, "has_relation", fact.Predicate)
	require.Equal(t, policy.NewValue("Expense", "e1"), fact.Subject)
	require.Equal(t, policy.String("trip"), fact.Relation)
	require.Equal(t, policy.NewValue("Trip", "t1"), fact.Object)
}

func TestUserRegisteredRecordsMembership(t *testing.T) {
	syncer, store, _ := newSyncFixture()

	err := syncer.UserRegistered(context.Background(), "dave", "default")
	require.NoError(t, err)

	require.Len(t, store.ops, 1)
	fact := store.ops[0].fact
	require.Equal(t, "has_role", fact.Predicate)
	require.Equal(t, policy.String("member"), fact.Relation)
	require.Equal(t, policy.NewValue("Organization", "default"), fact.Object)
}
