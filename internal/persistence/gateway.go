// Package persistence is the pipeline's only route to both databases: the
// primary store (supplier and format metadata) and the external store
// (quotes). Everything else in the pipeline depends on this package's
// interface, never on database/sql directly.
package persistence

import (
	"context"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
)

// BatchSize is the largest number of quotes InsertQuotes accepts in one
// call; the external store's driver limits the number of bind parameters
// per statement, and this keeps every batch well under that ceiling.
const BatchSize = 1000

// Gateway is the persistence surface the email processor drives.
type Gateway interface {
	// FindSupplier looks up the Supplier whose email recipient address
	// matches recipientAddress, and its external-store alias if one
	// exists. alias is nil when the supplier has no external record yet.
	FindSupplier(ctx context.Context, recipientAddress string) (domain.Supplier, *domain.SupplierAlias, error)

	// FindFormat resolves the MatrixFormat that should parse a file named
	// fileName from supplier, given whether the file is the email body.
	FindFormat(ctx context.Context, supplier domain.Supplier, fileName string, isBody bool) (domain.MatrixFormat, error)

	// Begin opens a per-file transactional scope against the external
	// store. The primary store is read-only from this package's
	// perspective, so only quote writes need transactional isolation.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a per-file transaction. InsertQuotes may be called more than once
// per Tx (once per BatchSize-sized chunk); Commit or Rollback ends it.
type Tx interface {
	// InsertQuotes bulk-inserts quotes, which must number BatchSize or
	// fewer. ExternalSupplierID must already be stamped on every quote.
	InsertQuotes(ctx context.Context, quotes []domain.Quote) error
	Commit() error
	Rollback() error
}
