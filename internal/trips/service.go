package trips

import (
	"context"

	"github.com/wayfarer-app/wayfarer/internal/authz"
	"github.com/wayfarer-app/wayfarer/internal/roles"
)

// RepositoryPort defines data access methods for trips.
type RepositoryPort interface {
	ListForUser(ctx context.Context, userID string) ([]UserTrip, error)
	Create(ctx context.Context, input CreateTripInput, ownerID, organizerRoleID string) (Trip, error)
	Get(ctx context.Context, tripID string) (Trip, error)
	Update(ctx context.Context, tripID string, input UpdateTripInput) (Trip, error)
	Delete(ctx context.Context, tripID string) error
}

// TripSyncer propagates trip lifecycle changes to the policy service.
type TripSyncer interface {
	TripCreated(ctx context.Context, tripID, creatorID, orgID string) error
	TripDeleted(ctx context.Context, tripID string) error
}

// Service handles trip business logic.
type Service struct {
	repo      RepositoryPort
	directory *authz.Directory
	syncer    TripSyncer
	orgID     string
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, directory *authz.Directory, syncer TripSyncer, orgID string) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		syncer:    syncer,
		orgID:     orgID,
	}
}

// ListForUser returns the caller's trips with their roles.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]UserTrip, error) {
	result, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].RoleLabel = roles.Role{Name: result[i].RoleName}.DisplayName()
	}
	return result, nil
}

// Create inserts the trip with the creator as its organizer, then records the
// trip's policy facts. The role assignment commits locally before any remote
// call.
func (s *Service) Create(ctx context.Context, input CreateTripInput, ownerID string) (Trip, error) {
	organizer, err := s.directory.RoleByName(ctx, roles.Organizer)
	if err != nil {
		return Trip{}, err
	}

	trip, err := s.repo.Create(ctx, input, ownerID, organizer.ID)
	if err != nil {
		return Trip{}, err
	}

	// Local commits stand regardless of the sync outcome; drift is handled
	// by the synchronizer.
	_ = s.syncer.TripCreated(ctx, trip.ID, ownerID, s.orgID)

	return trip, nil
}

// Get fetches a trip by id.
func (s *Service) Get(ctx context.Context, tripID string) (Trip, error) {
	return s.repo.Get(ctx, tripID)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, tripID string, input UpdateTripInput) (Trip, error) {
	return s.repo.Update(ctx, tripID, input)
}

// Delete removes the trip and retracts its policy facts.
func (s *Service) Delete(ctx context.Context, tripID string) error {
	if err := s.repo.Delete(ctx, tripID); err != nil {
		return err
	}

	_ = s.syncer.TripDeleted(ctx, tripID)

	return nil
}
