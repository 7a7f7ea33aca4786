package participants

import (
	"context"
	"errors"
	"fmt"

	"github.com/wayfarer-app/wayfarer/internal/authz"
	"github.com/wayfarer-app/wayfarer/internal/roles"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// RepositoryPort defines data access methods for trip membership.
type RepositoryPort interface {
	List(ctx context.Context, tripID string) ([]Participant, error)
	Get(ctx context.Context, tripID, userID string) (Participant, error)
	ForUser(ctx context.Context, tripID, userID string) (authz.RoleAssignment, error)
	Upsert(ctx context.Context, tripID, userID, roleID string) error
	Remove(ctx context.Context, tripID, userID string) error
	UserExists(ctx context.Context, userID string) (bool, error)
}

// AssignmentSyncer propagates committed assignment changes to the policy
// service.
type AssignmentSyncer interface {
	AssignmentChanged(ctx context.Context, tripID, userID, oldRole, newRole string) error
}

// Service handles participant business logic. Every mutation commits the
// local assignment first and synchronizes facts afterwards; a failed sync
// never undoes the commit.
type Service struct {
	repo      RepositoryPort
	directory *authz.Directory
	syncer    AssignmentSyncer
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, directory *authz.Directory, syncer AssignmentSyncer) *Service {
	return &Service{repo: repo, directory: directory, syncer: syncer}
}

// List returns the participants of a trip.
func (s *Service) List(ctx context.Context, tripID string) ([]Participant, error) {
	result, err := s.repo.List(ctx, tripID)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].RoleLabel = roles.Role{Name: result[i].Role}.DisplayName()
	}
	return result, nil
}

func withRoleLabel(p Participant, err error) (Participant, error) {
	if err != nil {
		return p, err
	}
	p.RoleLabel = roles.Role{Name: p.Role}.DisplayName()
	return p, nil
}

// Add invites a user to a trip with a role, or changes their role when they
// already participate.
func (s *Service) Add(ctx context.Context, tripID string, input AddParticipantInput) (Participant, error) {
	exists, err := s.repo.UserExists(ctx, input.UserID)
	if err != nil {
		return Participant{}, err
	}
	if !exists {
		return Participant{}, fmt.Errorf("participants: user %s: %w", input.UserID, shared.ErrNotFound)
	}

	role, err := s.directory.RoleByID(ctx, input.RoleID)
	if err != nil {
		return Participant{}, err
	}

	oldRole := ""
	if existing, err := s.repo.ForUser(ctx, tripID, input.UserID); err == nil {
		oldRole = existing.RoleName
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Participant{}, err
	}

	if err := s.repo.Upsert(ctx, tripID, input.UserID, input.RoleID); err != nil {
		return Participant{}, err
	}

	// The local commit stands regardless of the sync outcome; the
	// synchronizer reports drift for reconciliation.
	_ = s.syncer.AssignmentChanged(ctx, tripID, input.UserID, oldRole, role.Name)

	return withRoleLabel(s.repo.Get(ctx, tripID, input.UserID))
}

// UpdateRole changes an existing participant's role.
func (s *Service) UpdateRole(ctx context.Context, tripID, userID, roleID string) (Participant, error) {
	existing, err := s.repo.ForUser(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Participant{}, fmt.Errorf("participants: participant %s: %w", userID, shared.ErrNotFound)
		}
		return Participant{}, err
	}

	role, err := s.directory.RoleByID(ctx, roleID)
	if err != nil {
		return Participant{}, err
	}

	if err := s.repo.Upsert(ctx, tripID, userID, roleID); err != nil {
		return Participant{}, err
	}

	_ = s.syncer.AssignmentChanged(ctx, tripID, userID, existing.RoleName, role.Name)

	return withRoleLabel(s.repo.Get(ctx, tripID, userID))
}

// Remove deletes a participant from a trip.
func (s *Service) Remove(ctx context.Context, tripID, userID string) error {
	existing, err := s.repo.ForUser(ctx, tripID, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("participants: participant %s: %w", userID, shared.ErrNotFound)
		}
		return err
	}

	if err := s.repo.Remove(ctx, tripID, userID); err != nil {
		return err
	}

	_ = s.syncer.AssignmentChanged(ctx, tripID, userID, existing.RoleName, "")

	return nil
}
