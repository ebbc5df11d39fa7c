package currency

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("currency not found")

type Repository interface {
	ListCurrencies(ctx context.Context) ([]Currency, error)
	CreateCurrency(ctx context.Context, c *Currency) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Ticker string
	Symbol string
	Name   string
}

func (s *Service) List(ctx context.Context) ([]Currency, error) {
	return s.repo.ListCurrencies(ctx)
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Currency, error) {
	if params.Ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	c := &Currency{
		Ticker: params.Ticker,
		Symbol: params.Symbol,
		Name:   params.Name,
	}
	if err := s.repo.CreateCurrency(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}
