// Package emailproc drives the whole pipeline for one received email: it
// parses the MIME message, matches it to a supplier, and for each
// attachment resolves a format, archives the raw bytes, parses and
// validates quotes, and commits them in batches.
package emailproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
	"github.com/altitude-energy/matrix-ingest/internal/formatresolver"
	"github.com/altitude-energy/matrix-ingest/internal/matrixparser"
	"github.com/altitude-energy/matrix-ingest/internal/metrics"
	"github.com/altitude-energy/matrix-ingest/internal/objectstore"
	"github.com/altitude-energy/matrix-ingest/internal/persistence"
	"github.com/altitude-energy/matrix-ingest/internal/validate"
	"github.com/altitude-energy/matrix-ingest/pkg/logger"
)

// ParserFactory builds a fresh Parser for a format name; matrixparser's
// static registry satisfies this directly.
type ParserFactory func(formatName string) (matrixparser.Parser, error)

// Processor wires together every component the pipeline needs to turn one
// MIME message into committed quote rows.
type Processor struct {
	Gateway   persistence.Gateway
	Store     objectstore.ObjectStorage
	Metrics   *metrics.Client
	NewParser ParserFactory
}

// NewProcessor builds a Processor using the static parser registry.
func NewProcessor(gw persistence.Gateway, store objectstore.ObjectStorage, m *metrics.Client) *Processor {
	return &Processor{Gateway: gw, Store: store, Metrics: m, NewParser: matrixparser.NewParser}
}

// Process reads one MIME message and runs it through the full pipeline.
// It always increments the per-email metric once it starts, matching the
// donor's practice of counting every delivery attempt rather than only
// successful ones.
func (p *Processor) Process(ctx context.Context, r io.Reader) error {
	p.Metrics.EmailProcessed()

	parsed, err := Parse(r)
	if err != nil {
		return err
	}

	supplier, alias, err := p.Gateway.FindSupplier(ctx, parsed.To)
	if err != nil {
		if errors.Is(err, persistence.ErrNoMatch) || errors.Is(err, persistence.ErrMultipleMatches) {
			return &UnknownSupplierError{RecipientAddress: parsed.To, Matches: matchCount(err)}
		}
		return fmt.Errorf("emailproc: looking up supplier: %w", err)
	}
	logger.Log.Info().Str("supplier", supplier.Name).Msg("matched email to supplier")

	if len(parsed.Files) == 0 {
		logger.Log.Warn().Str("supplier", supplier.Name).Msg("email has no files")
	}

	var fileErrors []*FileError
	filesProcessed := 0
	totalQuotes := 0

	for _, file := range parsed.Files {
		parserName, quoteCount, err := p.processFile(ctx, supplier, alias, file)
		if err != nil {
			var ufe *formatresolver.UnknownFormatError
			if errors.As(err, &ufe) {
				logger.Log.Warn().Str("supplier", supplier.Name).Str("file", file.Name).
					Msg("skipped file with unrecognized format")
				continue
			}
			logger.Log.Error().Err(err).Str("supplier", supplier.Name).Str("file", file.Name).
				Msg("failed to process file")
			fileErrors = append(fileErrors, &FileError{FileName: file.Name, Err: err})
			continue
		}
		filesProcessed++
		totalQuotes += quoteCount
		p.Metrics.QuotesExtracted(parserName, quoteCount)
	}

	if len(fileErrors) > 0 {
		return &MultipleErrors{FileCount: len(parsed.Files), Errors: fileErrors}
	}
	if filesProcessed == 0 {
		return &NoFilesError{Subject: parsed.Subject}
	}
	if totalQuotes == 0 {
		return &NoQuotesError{Subject: parsed.Subject}
	}

	logger.Log.Info().Str("supplier", supplier.Name).Int("files", filesProcessed).
		Int("quotes", totalQuotes).Msg("finished email")
	return nil
}

// processFile resolves the format, archives the raw bytes, parses,
// validates, and inserts quotes for one file inside its own transaction.
// It returns the resolved format's name (for metrics) and the number of
// quotes committed. An *formatresolver.UnknownFormatError is returned
// unwrapped so the caller can treat it as non-fatal. Every error up to the
// commit, that one included, has already caused a rollback.
func (p *Processor) processFile(ctx context.Context, supplier domain.Supplier, alias *domain.SupplierAlias, file InputFile) (string, int, error) {
	tx, err := p.Gateway.Begin(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("beginning transaction: %w", err)
	}

	format, err := p.Gateway.FindFormat(ctx, supplier, file.Name, file.MatchBody)
	if err != nil {
		rollback(tx)
		return "", 0, err
	}

	if err := p.Store.UploadObject(ctx, file.Name, file.Data); err != nil {
		rollback(tx)
		return "", 0, fmt.Errorf("archiving file: %w", err)
	}

	parser, err := p.NewParser(format.Name)
	if err != nil {
		rollback(tx)
		return "", 0, fmt.Errorf("building parser: %w", err)
	}
	if err := parser.Load(bytes.NewReader(file.Data), file.Name, format); err != nil {
		rollback(tx)
		return "", 0, fmt.Errorf("loading file: %w", err)
	}
	if err := parser.Validate(); err != nil {
		rollback(tx)
		return "", 0, fmt.Errorf("validating file: %w", err)
	}

	batcher := newQuoteBatcher(ctx, tx, alias)
	if err := parser.ExtractQuotes(batcher.add); err != nil {
		rollback(tx)
		return "", 0, fmt.Errorf("extracting quotes: %w", err)
	}
	committed, err := batcher.flush()
	if err != nil {
		rollback(tx)
		return "", 0, fmt.Errorf("inserting quotes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", 0, fmt.Errorf("committing transaction: %w", err)
	}
	return parser.Name(), committed, nil
}

// quoteBatcher consumes quotes one at a time from a parser's streaming
// extractor, validating and buffering them, and inserts a chunk as soon as
// it reaches persistence.BatchSize. Memory use stays proportional to one
// batch, never to the file's total quote count.
type quoteBatcher struct {
	ctx      context.Context
	tx       persistence.Tx
	alias    *domain.SupplierAlias
	batch    []domain.Quote
	inserted int
	invalid  int
}

func newQuoteBatcher(ctx context.Context, tx persistence.Tx, alias *domain.SupplierAlias) *quoteBatcher {
	return &quoteBatcher{ctx: ctx, tx: tx, alias: alias, batch: make([]domain.Quote, 0, persistence.BatchSize)}
}

// add is a matrixparser.QuoteSink: it drops (logs, does not fail on) a
// quote that fails bounds validation, and flushes once the buffer reaches
// persistence.BatchSize.
func (b *quoteBatcher) add(q domain.Quote) error {
	if b.alias != nil {
		q.ExternalSupplierID = b.alias.ExternalSupplierID
	}
	if err := validate.Validate(q); err != nil {
		b.invalid++
		logger.Log.Error().Err(err).Float64("price", q.Price).
			Time("valid_from", q.ValidFrom).Time("valid_until", q.ValidUntil).
			Msg("quote failed validation")
		return nil
	}
	b.batch = append(b.batch, q)
	if len(b.batch) == persistence.BatchSize {
		return b.flushBatch()
	}
	return nil
}

func (b *quoteBatcher) flushBatch() error {
	if len(b.batch) == 0 {
		return nil
	}
	if err := b.tx.InsertQuotes(b.ctx, b.batch); err != nil {
		return err
	}
	b.inserted += len(b.batch)
	b.batch = b.batch[:0]
	return nil
}

// flush inserts whatever remains in the buffer after extraction finishes
// and returns the total number of quotes committed.
func (b *quoteBatcher) flush() (int, error) {
	if err := b.flushBatch(); err != nil {
		return b.inserted, err
	}
	if b.invalid > 0 {
		logger.Log.Info().Int("invalid", b.invalid).Int("committed", b.inserted).
			Msg("completed file with validation errors")
	}
	return b.inserted, nil
}

// rollback rolls back tx, logging (never propagating) a failure: the
// caller is already on an error path and a rollback failure must not mask
// the original cause.
func rollback(tx persistence.Tx) {
	if err := tx.Rollback(); err != nil {
		logger.Log.Error().Err(err).Msg("rollback failed")
	}
}

// matchCount turns a sentinel lookup error into the match count an
// UnknownSupplierError reports: 0 for no rows, 2 for "more than one" since
// the gateway does not report the exact excess count.
func matchCount(err error) int {
	if errors.Is(err, persistence.ErrNoMatch) {
		return 0
	}
	return 2
}
