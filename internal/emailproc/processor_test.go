package emailproc

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
	"github.com/altitude-energy/matrix-ingest/internal/formatresolver"
	"github.com/altitude-energy/matrix-ingest/internal/matrixparser"
	"github.com/altitude-energy/matrix-ingest/internal/metrics"
	"github.com/altitude-energy/matrix-ingest/internal/persistence"
)

type fakeTx struct {
	inserted   []domain.Quote
	committed  bool
	rolledBack bool
	insertErr  error
}

func (t *fakeTx) InsertQuotes(ctx context.Context, quotes []domain.Quote) error {
	if t.insertErr != nil {
		return t.insertErr
	}
	t.inserted = append(t.inserted, quotes...)
	return nil
}
func (t *fakeTx) Commit() error   { t.committed = true; return nil }
func (t *fakeTx) Rollback() error { t.rolledBack = true; return nil }

type fakeGateway struct {
	supplier    domain.Supplier
	alias       *domain.SupplierAlias
	supplierErr error
	formats     []domain.MatrixFormat
	txs         []*fakeTx
}

func (g *fakeGateway) FindSupplier(ctx context.Context, recipient string) (domain.Supplier, *domain.SupplierAlias, error) {
	if g.supplierErr != nil {
		return domain.Supplier{}, nil, g.supplierErr
	}
	return g.supplier, g.alias, nil
}

func (g *fakeGateway) FindFormat(ctx context.Context, supplier domain.Supplier, fileName string, isBody bool) (domain.MatrixFormat, error) {
	return formatresolver.Resolve(g.formats, fileName, isBody)
}

func (g *fakeGateway) Begin(ctx context.Context) (persistence.Tx, error) {
	tx := &fakeTx{}
	g.txs = append(g.txs, tx)
	return tx, nil
}

type fakeStore struct {
	uploaded map[string][]byte
}

func (s *fakeStore) UploadObject(ctx context.Context, key string, data []byte) error {
	if s.uploaded == nil {
		s.uploaded = map[string][]byte{}
	}
	s.uploaded[key] = append([]byte(nil), data...)
	return nil
}

type stubParser struct {
	name        string
	quotes      []domain.Quote
	validateErr error
	extractErr  error
}

func (s *stubParser) Name() string                                      { return s.name }
func (s *stubParser) Load(io.Reader, string, domain.MatrixFormat) error { return nil }
func (s *stubParser) Validate() error                                  { return s.validateErr }
func (s *stubParser) Count() int                                       { return len(s.quotes) }

func (s *stubParser) ExtractQuotes(emit matrixparser.QuoteSink) error {
	if s.extractErr != nil {
		return s.extractErr
	}
	for _, q := range s.quotes {
		if err := emit(q); err != nil {
			return err
		}
	}
	return nil
}

var _ matrixparser.Parser = (*stubParser)(nil)

func cleanQuote() domain.Quote {
	now := time.Date(2018, time.March, 1, 0, 0, 0, 0, time.UTC)
	return domain.Quote{
		ServiceType: domain.Electric,
		StartFrom:   now,
		StartUntil:  now.AddDate(0, 1, 0),
		TermMonths:  12,
		ValidFrom:   now,
		ValidUntil:  now.AddDate(0, 0, 1),
		Price:       0.08,
	}
}

func rawEmail(to, subject, fileName, fileContent string) string {
	return "From: sender@example.com\r\n" +
		"Delivered-To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: attachment; filename=\"" + fileName + "\"\r\n" +
		"Content-Type: text/csv\r\n" +
		"\r\n" +
		fileContent + "\r\n" +
		"--XYZ--\r\n"
}

func TestProcessHappyPath(t *testing.T) {
	gw := &fakeGateway{
		supplier: domain.Supplier{ID: 1, Name: "A", EmailRecipient: "supplierA@ingest.example"},
		alias:    &domain.SupplierAlias{ExternalSupplierID: 42, Name: "A"},
		formats:  []domain.MatrixFormat{{Name: "amerigreen"}},
	}
	store := &fakeStore{}
	p := NewProcessor(gw, store, mustMetrics(t))
	p.NewParser = func(name string) (matrixparser.Parser, error) {
		return &stubParser{name: name, quotes: []domain.Quote{cleanQuote(), cleanQuote()}}, nil
	}

	raw := rawEmail("supplierA@ingest.example", "Daily", "priceA.csv", "Utility,Rate\r\nConEd,0.08")
	if err := p.Process(context.Background(), strings.NewReader(raw)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(gw.txs) != 1 || !gw.txs[0].committed {
		t.Fatal("expected one committed transaction")
	}
	if len(gw.txs[0].inserted) != 2 {
		t.Fatalf("got %d inserted quotes, want 2", len(gw.txs[0].inserted))
	}
	if gw.txs[0].inserted[0].ExternalSupplierID != 42 {
		t.Errorf("ExternalSupplierID = %d, want 42", gw.txs[0].inserted[0].ExternalSupplierID)
	}
	if _, ok := store.uploaded["priceA.csv"]; !ok {
		t.Error("expected file to be archived")
	}
}

func TestProcessNoSupplierMatch(t *testing.T) {
	gw := &fakeGateway{supplierErr: persistence.ErrNoMatch}
	store := &fakeStore{}
	p := NewProcessor(gw, store, mustMetrics(t))

	raw := rawEmail("unknown@ingest.example", "Daily", "priceA.csv", "data")
	err := p.Process(context.Background(), strings.NewReader(raw))
	if _, ok := err.(*UnknownSupplierError); !ok {
		t.Fatalf("expected *UnknownSupplierError, got %v (%T)", err, err)
	}
	if len(store.uploaded) != 0 {
		t.Error("expected no uploads when supplier lookup fails")
	}
}

func TestProcessUnmatchedAttachmentIsSkippedNotFatal(t *testing.T) {
	gw := &fakeGateway{
		supplier: domain.Supplier{ID: 1, Name: "A", EmailRecipient: "supplierA@ingest.example"},
		formats:  []domain.MatrixFormat{{Name: "amerigreen", AttachmentPattern: `priceA\.csv`}},
	}
	store := &fakeStore{}
	p := NewProcessor(gw, store, mustMetrics(t))
	p.NewParser = func(name string) (matrixparser.Parser, error) {
		return &stubParser{name: name, quotes: []domain.Quote{cleanQuote()}}, nil
	}

	raw := "From: sender@example.com\r\n" +
		"Delivered-To: supplierA@ingest.example\r\n" +
		"Subject: Daily\r\n" +
		"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: attachment; filename=\"priceA.csv\"\r\n" +
		"Content-Type: text/csv\r\n\r\n" +
		"data\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: attachment; filename=\"noise.pdf\"\r\n" +
		"Content-Type: application/pdf\r\n\r\n" +
		"data\r\n" +
		"--XYZ--\r\n"

	if err := p.Process(context.Background(), strings.NewReader(raw)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, ok := store.uploaded["noise.pdf"]; ok {
		t.Error("unmatched file should not be archived")
	}
	if _, ok := store.uploaded["priceA.csv"]; !ok {
		t.Error("matched file should be archived")
	}
}

func TestProcessFileFailureIsolation(t *testing.T) {
	gw := &fakeGateway{
		supplier: domain.Supplier{ID: 1, Name: "A", EmailRecipient: "supplierA@ingest.example"},
		formats:  []domain.MatrixFormat{{Name: "amerigreen"}},
	}
	store := &fakeStore{}
	p := NewProcessor(gw, store, mustMetrics(t))
	calls := 0
	p.NewParser = func(name string) (matrixparser.Parser, error) {
		calls++
		if calls == 1 {
			return &stubParser{name: name, validateErr: errors.New("bad date cell")}, nil
		}
		return &stubParser{name: name, quotes: []domain.Quote{cleanQuote(), cleanQuote(), cleanQuote(), cleanQuote(), cleanQuote()}}, nil
	}

	raw := "From: sender@example.com\r\n" +
		"Delivered-To: supplierA@ingest.example\r\n" +
		"Subject: Daily\r\n" +
		"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: attachment; filename=\"bad.csv\"\r\n" +
		"Content-Type: text/csv\r\n\r\n" +
		"data\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: attachment; filename=\"good.csv\"\r\n" +
		"Content-Type: text/csv\r\n\r\n" +
		"data\r\n" +
		"--XYZ--\r\n"

	err := p.Process(context.Background(), strings.NewReader(raw))
	merr, ok := err.(*MultipleErrors)
	if !ok {
		t.Fatalf("expected *MultipleErrors, got %v (%T)", err, err)
	}
	if len(merr.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(merr.Errors))
	}
	if merr.Errors[0].FileName != "bad.csv" {
		t.Errorf("FileName = %q, want bad.csv", merr.Errors[0].FileName)
	}
	if len(gw.txs) != 2 || !gw.txs[0].rolledBack || !gw.txs[1].committed {
		t.Fatalf("expected first tx rolled back and second committed, got %+v %+v", gw.txs[0], gw.txs[1])
	}
	if len(gw.txs[1].inserted) != 5 {
		t.Errorf("got %d quotes committed, want 5", len(gw.txs[1].inserted))
	}
}

func TestProcessNoQuotesProduced(t *testing.T) {
	gw := &fakeGateway{
		supplier: domain.Supplier{ID: 1, Name: "A", EmailRecipient: "supplierA@ingest.example"},
		formats:  []domain.MatrixFormat{{Name: "amerigreen"}},
	}
	store := &fakeStore{}
	p := NewProcessor(gw, store, mustMetrics(t))
	p.NewParser = func(name string) (matrixparser.Parser, error) {
		return &stubParser{name: name}, nil
	}

	raw := rawEmail("supplierA@ingest.example", "Daily", "priceA.csv", "data")
	err := p.Process(context.Background(), strings.NewReader(raw))
	if _, ok := err.(*NoQuotesError); !ok {
		t.Fatalf("expected *NoQuotesError, got %v (%T)", err, err)
	}
}

func mustMetrics(t *testing.T) *metrics.Client {
	t.Helper()
	c, err := metrics.Dial("127.0.0.1:1")
	if err != nil {
		t.Fatalf("metrics.Dial: %v", err)
	}
	return c
}
