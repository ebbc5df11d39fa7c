package rules

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Repository interface {
	FindCategory(ctx context.Context, reference string) (uuid.UUID, bool, error)
	ListRules(ctx context.Context) ([]Rule, error)
	CreateRule(ctx context.Context, rule *Rule) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Categorize returns the category for the best rule matching the reference.
// The bool reports whether any rule matched.
func (s *Service) Categorize(ctx context.Context, reference string) (uuid.UUID, bool, error) {
	if reference == "" {
		return uuid.Nil, false, nil
	}

	return s.repo.FindCategory(ctx, reference)
}

func (s *Service) List(ctx context.Context) ([]Rule, error) {
	return s.repo.ListRules(ctx)
}

func (s *Service) Create(ctx context.Context, pattern string, category uuid.UUID) (*Rule, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}

	rule := &Rule{
		Pattern:    pattern,
		CategoryID: category,
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}
