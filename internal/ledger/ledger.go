package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is a committed ledger entry. Values are stored in cents and
// dates carry day granularity only (midnight UTC).
type Transaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	CategoryID  uuid.UUID
	Value       int64 // cents, signed: negative for outgoing
	CurrencyID  uuid.UUID
	Date        time.Time
	Reference   string
	Balance     *int64 // statement-reported running balance in cents, when known
	StatementID *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
}

// Statement groups the transactions committed from one uploaded file.
type Statement struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	FileName  string
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

// Category labels transactions for reporting.
type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Reserved category ids. Uncategorized is the placeholder bucket for rows with
// no rule match; Transfer marks legs of movements between the user's own
// accounts so they are excluded from income/expense reporting.
var (
	CategoryUncategorized = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	CategoryTransfer      = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)
