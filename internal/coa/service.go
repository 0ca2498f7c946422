package coa

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort defines data access methods for the chart of accounts.
type RepositoryPort interface {
	CreateAccount(ctx context.Context, account Account) (Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error)
	SetAccountActive(ctx context.Context, id int64, active bool) error
	GetMapping(ctx context.Context, documentType, key string) (AccountMapping, error)
	UpsertMapping(ctx context.Context, mapping AccountMapping) error
}

// Service manages the account registry and posting-rule account mappings.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the chart of accounts service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateAccount registers a new ledger account.
func (s *Service) CreateAccount(ctx context.Context, input Account) (Account, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return Account{}, fmt.Errorf("%w: account code required", shared.ErrValidation)
	}
	if input.Name == "" {
		return Account{}, fmt.Errorf("%w: account name required", shared.ErrValidation)
	}
	if !input.Type.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, input.Type)
	}
	input.CurrentBalance = input.OpeningBalance
	input.IsActive = true
	return s.repo.CreateAccount(ctx, input)
}

// DeactivateAccount marks the account inactive. Accounts carrying history are
// never deleted.
func (s *Service) DeactivateAccount(ctx context.Context, id int64) error {
	if id == 0 {
		return fmt.Errorf("%w: account id required", shared.ErrValidation)
	}
	return s.repo.SetAccountActive(ctx, id, false)
}

// GetAccount returns one account by id.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// GetAccountByCode returns one account by its unique code.
func (s *Service) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.GetAccountByCode(ctx, code)
}

// ListAccounts returns the chart of accounts ordered by code.
func (s *Service) ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error) {
	return s.repo.ListAccounts(ctx, activeOnly)
}

// ResolveMapping returns the account id configured for a posting rule key.
// A missing mapping fails closed; posting never guesses a default account.
func (s *Service) ResolveMapping(ctx context.Context, documentType, key string) (int64, error) {
	mapping, err := s.repo.GetMapping(ctx, strings.ToUpper(documentType), key)
	if err != nil {
		return 0, err
	}
	account, err := s.repo.GetAccount(ctx, mapping.AccountID)
	if err != nil {
		return 0, err
	}
	if !account.IsActive {
		return 0, ErrAccountInactive
	}
	return mapping.AccountID, nil
}

// ConfigureMapping binds a posting rule key to an account.
func (s *Service) ConfigureMapping(ctx context.Context, mapping AccountMapping) error {
	if mapping.DocumentType == "" || mapping.Key == "" {
		return fmt.Errorf("%w: mapping document type and key required", shared.ErrValidation)
	}
	if _, err := s.repo.GetAccount(ctx, mapping.AccountID); err != nil {
		return err
	}
	mapping.DocumentType = strings.ToUpper(mapping.DocumentType)
	return s.repo.UpsertMapping(ctx, mapping)
}
