package persistence

import (
	"context"
	"testing"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
)

func TestInsertQuotesEmptyBatchIsNoOp(t *testing.T) {
	tx := &postgresTx{}
	if err := tx.InsertQuotes(context.Background(), nil); err != nil {
		t.Fatalf("InsertQuotes(nil): %v", err)
	}
}

func TestInsertQuotesRejectsOversizedBatch(t *testing.T) {
	tx := &postgresTx{}
	quotes := make([]domain.Quote, BatchSize+1)
	if err := tx.InsertQuotes(context.Background(), quotes); err == nil {
		t.Fatal("expected error for batch exceeding BatchSize")
	}
}

func TestCommitAndRollbackAreIdempotentOnDoneTx(t *testing.T) {
	tx := &postgresTx{done: true}
	if err := tx.Commit(); err != nil {
		t.Errorf("Commit on done tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback on done tx: %v", err)
	}
}
