package expenses

import "context"

// RepositoryPort defines data access methods for expenses.
type RepositoryPort interface {
	List(ctx context.Context, tripID string) ([]Expense, error)
	Create(ctx context.Context, tripID, userID string, input CreateExpenseInput) (Expense, error)
	Update(ctx context.Context, tripID, expenseID string, input UpdateExpenseInput) (Expense, error)
	Delete(ctx context.Context, tripID, expenseID string) error
}

// ExpenseSyncer records the expense's trip relation with the policy service.
type ExpenseSyncer interface {
	ExpenseCreated(ctx context.Context, expenseID, tripID string) error
}

// Service handles expense business logic.
type Service struct {
	repo   RepositoryPort
	syncer ExpenseSyncer
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, syncer ExpenseSyncer) *Service {
	return &Service{repo: repo, syncer: syncer}
}

// List returns all expenses of a trip.
func (s *Service) List(ctx context.Context, tripID string) ([]Expense, error) {
	return s.repo.List(ctx, tripID)
}

// Create records a new expense and its trip relation fact.
func (s *Service) Create(ctx context.Context, tripID, userID string, input CreateExpenseInput) (Expense, error) {
	expense, err := s.repo.Create(ctx, tripID, userID, input)
	if err != nil {
		return Expense{}, err
	}

	// Local commit stands regardless of the sync outcome.
	_ = s.syncer.ExpenseCreated(ctx, expense.ID, tripID)

	return expense, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, tripID, expenseID string, input UpdateExpenseInput) (Expense, error) {
	return s.repo.Update(ctx, tripID, expenseID, input)
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, tripID, expenseID string) error {
	return s.repo.Delete(ctx, tripID, expenseID)
}
