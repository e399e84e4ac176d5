package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papervenue/internal/domain"
	"github.com/efreitasn/papervenue/internal/store"
)

// CreateAccountRequest represents the input for account creation.
type CreateAccountRequest struct {
	AccountID      string
	OpeningBalance float64
}

// AccountView is the response shape for account queries: cash state
// plus all open positions revalued at the current live prices.
type AccountView struct {
	Account   domain.AccountSnapshot
	Positions []domain.Position
	Equity    decimal.Decimal // balance + sum of position market values
}

// AccountService handles account creation and balance/position queries.
type AccountService struct {
	accounts    *store.AccountStore
	positions   *store.PositionStore
	instruments *store.InstrumentStore
	fills       *store.FillStore
}

// NewAccountService creates a new AccountService with the given dependencies.
func NewAccountService(
	accounts *store.AccountStore,
	positions *store.PositionStore,
	instruments *store.InstrumentStore,
	fills *store.FillStore,
) *AccountService {
	return &AccountService{
		accounts:    accounts,
		positions:   positions,
		instruments: instruments,
		fills:       fills,
	}
}

// Create validates the request and registers a new account. Buying
// power starts equal to the opening cash balance.
func (s *AccountService) Create(req CreateAccountRequest) (*domain.Account, error) {
	if !accountIDRegex.MatchString(req.AccountID) {
		return nil, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if req.OpeningBalance < 0 {
		return nil, &domain.ValidationError{
			Message: "opening_balance must be >= 0",
		}
	}

	opening := decimal.NewFromFloat(req.OpeningBalance)
	account := &domain.Account{
		AccountID:   req.AccountID,
		Balance:     opening,
		BuyingPower: opening,
		CreatedAt:   time.Now(),
	}
	if err := s.accounts.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Get returns the account's cash snapshot and its positions revalued
// against each instrument's current live price.
func (s *AccountService) Get(accountID string) (*AccountView, error) {
	account, err := s.accounts.Get(accountID)
	if err != nil {
		return nil, err
	}

	account.Mu.Lock()
	snapshot := account.Snapshot()
	account.Mu.Unlock()

	now := time.Now()
	positions := s.positions.ListByAccount(accountID)
	equity := snapshot.Balance
	for i := range positions {
		if in, err := s.instruments.Get(positions[i].Symbol); err == nil {
			positions[i].Revalue(in.Price, now)
		}
		equity = equity.Add(positions[i].MarketValue)
	}

	return &AccountView{
		Account:   snapshot,
		Positions: positions,
		Equity:    equity,
	}, nil
}

// ListFills returns the account's fills in execution order.
func (s *AccountService) ListFills(accountID string) ([]domain.Fill, error) {
	if !s.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	return s.fills.GetByAccount(accountID), nil
}
