package services

import (
	"context"

	"tendies/internal/ledger"
)

// Statistics counts what a user has on file.
type Statistics struct {
	Expenses   int `json:"totalExpenses"`
	Budgets    int `json:"totalBudgets"`
	Categories int `json:"totalCategories"`
	Payers     int `json:"totalPayers"`
}

type AccountService struct {
	store ledger.Store
}

func NewAccountService(store ledger.Store) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) Statistics(ctx context.Context, userID int64) (Statistics, error) {
	var (
		st  Statistics
		err error
	)
	if st.Expenses, err = s.store.CountExpenses(ctx, userID); err != nil {
		return Statistics{}, err
	}
	if st.Budgets, err = s.store.CountBudgets(ctx, userID); err != nil {
		return Statistics{}, err
	}
	cats, err := s.store.ListUserCategories(ctx, userID)
	if err != nil {
		return Statistics{}, err
	}
	st.Categories = len(cats)
	payers, err := s.store.ListPayers(ctx, userID)
	if err != nil {
		return Statistics{}, err
	}
	st.Payers = len(payers)
	return st, nil
}
