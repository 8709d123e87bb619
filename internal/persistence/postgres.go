package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"golang.org/x/sync/semaphore"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
	"github.com/altitude-energy/matrix-ingest/internal/formatresolver"
)

// Same per-process connection ceiling the donor Postgres pool imposes;
// bounds concurrent operations regardless of how high SetMaxOpenConns is
// configured, in case a future caller raises it without revisiting this.
const maxConcurrentOps = 10

// ErrNoMatch and ErrMultipleMatches report a lookup that should have
// returned exactly one row.
var (
	ErrNoMatch         = errors.New("persistence: no matching row")
	ErrMultipleMatches = errors.New("persistence: multiple matching rows")
)

// Postgres is the Gateway implementation backed by two *sql.DB handles:
// primary for supplier/format metadata, external for quotes.
type Postgres struct {
	primary  *sql.DB
	external *sql.DB
	sem      *semaphore.Weighted
}

// Open connects to both stores with the "postgres" driver. Callers that
// need a different driver open the handles themselves and use NewPostgres.
func Open(primaryDSN, externalDSN string) (*Postgres, error) {
	primary, err := sql.Open("postgres", primaryDSN)
	if err != nil {
		return nil, fmt.Errorf("persistence: opening primary store: %w", err)
	}
	external, err := sql.Open("postgres", externalDSN)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("persistence: opening external store: %w", err)
	}
	return NewPostgres(primary, external), nil
}

// NewPostgres wraps already-opened handles, for callers (and tests) that
// manage connection lifecycle themselves.
func NewPostgres(primary, external *sql.DB) *Postgres {
	return &Postgres{
		primary:  primary,
		external: external,
		sem:      semaphore.NewWeighted(maxConcurrentOps),
	}
}

// Close releases both underlying connection pools.
func (p *Postgres) Close() error {
	err1 := p.primary.Close()
	err2 := p.external.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (p *Postgres) FindSupplier(ctx context.Context, recipientAddress string) (domain.Supplier, *domain.SupplierAlias, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return domain.Supplier{}, nil, fmt.Errorf("persistence: acquiring semaphore: %w", err)
	}
	defer p.sem.Release(1)

	rows, err := p.primary.QueryContext(ctx,
		`SELECT id, name, matrix_email_recipient FROM supplier WHERE matrix_email_recipient = $1`,
		recipientAddress)
	if err != nil {
		return domain.Supplier{}, nil, fmt.Errorf("persistence: querying supplier: %w", err)
	}
	defer rows.Close()

	var matches []domain.Supplier
	for rows.Next() {
		var s domain.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.EmailRecipient); err != nil {
			return domain.Supplier{}, nil, fmt.Errorf("persistence: scanning supplier: %w", err)
		}
		matches = append(matches, s)
	}
	if err := rows.Err(); err != nil {
		return domain.Supplier{}, nil, fmt.Errorf("persistence: reading supplier rows: %w", err)
	}
	if len(matches) == 0 {
		return domain.Supplier{}, nil, ErrNoMatch
	}
	if len(matches) > 1 {
		return domain.Supplier{}, nil, ErrMultipleMatches
	}
	supplier := matches[0]

	alias, err := p.findSupplierAlias(ctx, supplier.Name)
	if err != nil {
		return domain.Supplier{}, nil, err
	}
	return supplier, alias, nil
}

// findSupplierAlias looks up the external store's own record of the
// supplier by name; matching by name (rather than ID) is how the two
// stores agree on identity, since they have no foreign key between them.
func (p *Postgres) findSupplierAlias(ctx context.Context, name string) (*domain.SupplierAlias, error) {
	row := p.external.QueryRowContext(ctx,
		`SELECT "Supplier_ID", "Supplier_Name" FROM company WHERE "Supplier_Name" = $1`, name)
	var alias domain.SupplierAlias
	if err := row.Scan(&alias.ExternalSupplierID, &alias.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("persistence: querying supplier alias: %w", err)
	}
	return &alias, nil
}

func (p *Postgres) FindFormat(ctx context.Context, supplier domain.Supplier, fileName string, isBody bool) (domain.MatrixFormat, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return domain.MatrixFormat{}, fmt.Errorf("persistence: acquiring semaphore: %w", err)
	}
	defer p.sem.Release(1)

	rows, err := p.primary.QueryContext(ctx,
		`SELECT matrix_format_id, supplier_id, name, matrix_attachment_name, match_email_body
		 FROM matrix_format WHERE supplier_id = $1`, supplier.ID)
	if err != nil {
		return domain.MatrixFormat{}, fmt.Errorf("persistence: querying matrix formats: %w", err)
	}
	defer rows.Close()

	var formats []domain.MatrixFormat
	for rows.Next() {
		var f domain.MatrixFormat
		if err := rows.Scan(&f.ID, &f.SupplierID, &f.Name, &f.AttachmentPattern, &f.MatchBody); err != nil {
			return domain.MatrixFormat{}, fmt.Errorf("persistence: scanning matrix format: %w", err)
		}
		formats = append(formats, f)
	}
	if err := rows.Err(); err != nil {
		return domain.MatrixFormat{}, fmt.Errorf("persistence: reading matrix format rows: %w", err)
	}
	return formatresolver.Resolve(formats, fileName, isBody)
}

func (p *Postgres) Begin(ctx context.Context) (Tx, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("persistence: acquiring semaphore: %w", err)
	}
	tx, err := p.external.BeginTx(ctx, nil)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("persistence: beginning transaction: %w", err)
	}
	return &postgresTx{tx: tx, sem: p.sem}, nil
}

// postgresTx maps the per-file transactional scope the email processor
// needs onto one real external-store transaction. The external store does
// not support nested transactions (savepoints) reliably, so this does not
// attempt them; per-file isolation is "begin once, commit or roll back
// once."
type postgresTx struct {
	tx   *sql.Tx
	sem  *semaphore.Weighted
	done bool
}

var quoteColumns = []string{
	"external_supplier_id", "service_type", "rate_class_alias", "rate_class_id",
	"start_from", "start_until", "term_months", "valid_from", "valid_until",
	"min_volume", "limit_volume", "price", "purchase_of_receivables",
	"dual_billing", "date_received", "file_reference",
}

func (t *postgresTx) InsertQuotes(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	if len(quotes) > BatchSize {
		return fmt.Errorf("persistence: batch of %d quotes exceeds BatchSize %d", len(quotes), BatchSize)
	}

	stmt, err := t.tx.PrepareContext(ctx, pq.CopyIn("matrix_quote", quoteColumns...))
	if err != nil {
		return fmt.Errorf("persistence: preparing bulk insert: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		_, err := stmt.ExecContext(ctx,
			q.ExternalSupplierID, string(q.ServiceType), q.RateClassAlias, q.RateClassID,
			q.StartFrom, q.StartUntil, q.TermMonths, q.ValidFrom, q.ValidUntil,
			q.MinVolume, q.LimitVolume, q.Price, q.PurchaseOfReceivables,
			q.DualBilling, q.DateReceived, q.FileReference,
		)
		if err != nil {
			return fmt.Errorf("persistence: queuing quote for copy: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("persistence: flushing bulk insert: %w", err)
	}
	return nil
}

func (t *postgresTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.sem.Release(1)
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("persistence: committing transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.sem.Release(1)
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("persistence: rolling back transaction: %w", err)
	}
	return nil
}

var _ Gateway = (*Postgres)(nil)
