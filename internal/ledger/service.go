package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("transaction not found")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, category uuid.UUID) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	ListStatements(ctx context.Context, account *uuid.UUID) ([]*Statement, error)
	ListCategories(ctx context.Context) ([]*Category, error)

	BeginCommit(ctx context.Context, minDate, maxDate time.Time) (CommitTx, error)
}

// CommitTx is the unit of work for committing one statement. Either the
// statement record and all its transactions land together, or nothing does.
type CommitTx interface {
	CreateStatement(ctx context.Context, st *Statement) error
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	AccountID  uuid.UUID
	CategoryID uuid.UUID
	Value      int64
	CurrencyID uuid.UUID
	Date       time.Time
	Reference  string
	Balance    *int64
}

type ListFilter struct {
	AccountID   *uuid.UUID
	CategoryID  *uuid.UUID
	StatementID *uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
}

type CommitParams struct {
	AccountID    uuid.UUID
	FileName     string
	Transactions []CreateParams
}

type CommitResult struct {
	Statement *Statement
	Created   []*Transaction
}

// CommitStatement atomically appends one statement and its transactions.
// The statement's date range is derived from the committed rows.
func (s *Service) CommitStatement(ctx context.Context, params CommitParams) (*CommitResult, error) {
	results, err := s.CommitStatements(ctx, []CommitParams{params})
	if err != nil {
		return nil, err
	}

	return results[0], nil
}

// CommitStatements appends a batch of statements with their transactions in
// one store transaction. Either every statement in the batch lands or none
// do, so a multi-file import never applies partially.
func (s *Service) CommitStatements(ctx context.Context, batches []CommitParams) ([]*CommitResult, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("no statements to commit")
	}

	for _, b := range batches {
		if len(b.Transactions) == 0 {
			return nil, fmt.Errorf("statement %q has no transactions to commit", b.FileName)
		}
	}

	minDate, maxDate := dateRange(batches[0].Transactions)

	for _, b := range batches[1:] {
		lo, hi := dateRange(b.Transactions)
		if lo.Before(minDate) {
			minDate = lo
		}

		if hi.After(maxDate) {
			maxDate = hi
		}
	}

	stx, err := s.repo.BeginCommit(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	defer stx.Rollback()

	results := make([]*CommitResult, 0, len(batches))

	for _, b := range batches {
		lo, hi := dateRange(b.Transactions)

		st := &Statement{
			AccountID: b.AccountID,
			FileName:  b.FileName,
			StartDate: lo,
			EndDate:   hi,
		}
		if err := stx.CreateStatement(ctx, st); err != nil {
			return nil, fmt.Errorf("create statement %q: %w", b.FileName, err)
		}

		txs := paramsToTransactions(b.Transactions, st.ID)
		if err := stx.CreateTransactions(ctx, txs); err != nil {
			return nil, fmt.Errorf("create transactions for %q: %w", b.FileName, err)
		}

		results = append(results, &CommitResult{Statement: st, Created: txs})
	}

	if err := stx.Commit(); err != nil {
		return nil, fmt.Errorf("commit statements: %w", err)
	}

	return results, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) Recategorize(ctx context.Context, id uuid.UUID, category uuid.UUID) error {
	return s.repo.UpdateCategory(ctx, id, category)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, id)
}

func (s *Service) ListStatements(ctx context.Context, account *uuid.UUID) ([]*Statement, error) {
	return s.repo.ListStatements(ctx, account)
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

func dateRange(params []CreateParams) (time.Time, time.Time) {
	minDate := params[0].Date
	maxDate := params[0].Date

	for _, p := range params[1:] {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	return minDate, maxDate
}

func paramsToTransactions(params []CreateParams, statementID uuid.UUID) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = &Transaction{
			AccountID:   p.AccountID,
			CategoryID:  p.CategoryID,
			Value:       p.Value,
			CurrencyID:  p.CurrencyID,
			Date:        p.Date,
			Reference:   p.Reference,
			Balance:     p.Balance,
			StatementID: &statementID,
		}
	}

	return txs
}
