package statement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/ledger"
)

// Ledger is the slice of the ledger service the committer needs. A batch
// call commits as one unit of work.
type Ledger interface {
	CommitStatements(ctx context.Context, batches []ledger.CommitParams) ([]*ledger.CommitResult, error)
}

// RuleEngine resolves a category for a transaction reference. The bool
// reports whether any rule matched.
type RuleEngine interface {
	Categorize(ctx context.Context, reference string) (uuid.UUID, bool, error)
}

// Committer converts reviewed candidates into committed ledger records.
type Committer struct {
	ledger Ledger
	rules  RuleEngine
}

func NewCommitter(l Ledger, r RuleEngine) *Committer {
	return &Committer{ledger: l, rules: r}
}

// CommitFile commits one staged file as one statement. Excluded rows are
// dropped; transfer-linked rows take the reserved transfer category; the
// rest default to uncategorized, overridden by the rule engine when runRules
// is set. The underlying ledger commit is atomic, so a store rejection
// leaves nothing behind.
func (c *Committer) CommitFile(ctx context.Context, f *File, runRules bool, transfers map[Key]Match) (*ledger.CommitResult, error) {
	batch, err := c.fileParams(ctx, f, runRules, transfers)
	if err != nil {
		return nil, err
	}

	results, err := c.ledger.CommitStatements(ctx, []ledger.CommitParams{batch})
	if err != nil {
		return nil, fmt.Errorf("committing %s: %w", f.Name, err)
	}

	return results[0], nil
}

// CommitFiles commits every file as one ledger unit of work: either every
// statement lands, or a rejection anywhere leaves nothing applied.
func (c *Committer) CommitFiles(ctx context.Context, files []*File, runRules bool, transfers map[Key]Match) ([]*ledger.CommitResult, error) {
	batches := make([]ledger.CommitParams, 0, len(files))

	for _, f := range files {
		batch, err := c.fileParams(ctx, f, runRules, transfers)
		if err != nil {
			return nil, err
		}

		batches = append(batches, batch)
	}

	results, err := c.ledger.CommitStatements(ctx, batches)
	if err != nil {
		return nil, fmt.Errorf("committing statements: %w", err)
	}

	return results, nil
}

// CommitSession commits every staged file in a single unit of work and marks
// the session terminal. On failure the session stays at review with nothing
// written, so retrying cannot duplicate any file.
func (c *Committer) CommitSession(ctx context.Context, s *Session, runRules bool) ([]*ledger.CommitResult, error) {
	if s.Stage != StageReview {
		return nil, fmt.Errorf("cannot commit from the %s stage", s.Stage)
	}

	results, err := c.CommitFiles(ctx, s.Files, runRules, s.Transfers)
	if err != nil {
		return nil, err
	}

	s.Committed()

	return results, nil
}

// fileParams folds one file's included candidates into the commit parameters
// for its statement, resolving each row's category.
func (c *Committer) fileParams(ctx context.Context, f *File, runRules bool, transfers map[Key]Match) (ledger.CommitParams, error) {
	var params []ledger.CreateParams

	for i := range f.Candidates {
		cand := &f.Candidates[i]
		if cand.Excluded {
			continue
		}

		category, err := c.categorize(ctx, f.ID, cand, runRules, transfers)
		if err != nil {
			return ledger.CommitParams{}, err
		}

		params = append(params, ledger.CreateParams{
			AccountID:  cand.AccountID,
			CategoryID: category,
			Value:      cand.Value,
			CurrencyID: cand.CurrencyID,
			Date:       cand.Date,
			Reference:  cand.Reference,
			Balance:    cand.Balance,
		})
	}

	if len(params) == 0 {
		return ledger.CommitParams{}, fmt.Errorf("%s: every row is excluded", f.Name)
	}

	return ledger.CommitParams{
		AccountID:    f.AccountID,
		FileName:     f.Name,
		Transactions: params,
	}, nil
}

func (c *Committer) categorize(ctx context.Context, fileID string, cand *Candidate, runRules bool, transfers map[Key]Match) (uuid.UUID, error) {
	if _, ok := transfers[Key{FileID: fileID, Row: cand.Row}]; ok {
		return ledger.CategoryTransfer, nil
	}

	if runRules && c.rules != nil && cand.Reference != "" {
		category, matched, err := c.rules.Categorize(ctx, cand.Reference)
		if err != nil {
			return uuid.Nil, fmt.Errorf("applying rules to row %d: %w", cand.Row, err)
		}

		if matched {
			return category, nil
		}
	}

	return ledger.CategoryUncategorized, nil
}
