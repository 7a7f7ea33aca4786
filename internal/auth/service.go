package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// MembershipSyncer records organization membership for new users with the
// policy service.
type MembershipSyncer interface {
	UserRegistered(ctx context.Context, userID, orgID string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	syncer MembershipSyncer
	orgID  string
}

// NewService constructs a new Service.
func NewService(repo Repository, syncer MembershipSyncer, orgID string) *Service {
	return &Service{repo: repo, syncer: syncer, orgID: orgID}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates an account and records the new user's organization
// membership fact. The account commit stands even if the fact sync fails.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, input.Name, input.Email, string(hashed))
	if err != nil {
		return nil, err
	}

	_ = s.syncer.UserRegistered(ctx, user.ID, s.orgID)

	return user, nil
}

// Profile returns the account for an authenticated user id.
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
