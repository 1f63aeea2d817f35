package processors

import (
	"context"

	"github.com/username/folioimport/src/models"
)

// SymbolResolver maps an ISIN to a trading symbol. Implemented by the
// ghostfolio client; faked in tests.
type SymbolResolver interface {
	LookupSymbol(ctx context.Context, isin string) (string, error)
}

// Result holds the outcome of one processing pass.
type Result struct {
	Activities []models.Activity
	// Unmatched collects rows that carried an ISIN but matched no known
	// booking pattern. They are surfaced to the user instead of being
	// silently dropped.
	Unmatched []models.RawTransaction
}

// ActivityProcessor turns the ordered raw statement rows into normalized
// Ghostfolio activities.
type ActivityProcessor interface {
	Process(ctx context.Context, rawTransactions []models.RawTransaction) (*Result, error)
}
