package view

import (
	"context"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
)

const dbTimeout = 5 * time.Second

// FormatAmount renders an amount stored as cents with the currency's own
// symbol and decimal conventions. Unknown tickers fall back to a plain
// two-decimal rendering.
func FormatAmount(cents int64, ticker string) string {
	if money.GetCurrency(ticker) != nil {
		return money.New(cents, ticker).Display()
	}

	return fmt.Sprintf("%.2f %s", float64(cents)/100.0, ticker)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
