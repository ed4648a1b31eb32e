package preauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
)

func TestMemoryRepository_FindByIdempotencyKey(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	rows := []Submission{
		{ID: "a", SessionID: "s", Kind: KindSubmit, IdempotencyKey: "k", Known: KnownIDs{PatientID: "1"}, CreatedAt: base},
		{ID: "b", SessionID: "s", Kind: KindSubmit, IdempotencyKey: "k", Known: KnownIDs{PatientID: "2"}, CreatedAt: base.Add(time.Minute)},
		{ID: "c", SessionID: "s", Kind: KindDraft, IdempotencyKey: "k", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range rows {
		if err := repo.Record(ctx, &rows[i]); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := repo.FindByIdempotencyKey(ctx, "s", "k")
	if err != nil {
		t.Fatalf("Expected a match, got %v", err)
	}
	if got.ID != "b" {
		t.Errorf("Expected the latest submit, got %s", got.ID)
	}

	if _, err := repo.FindByIdempotencyKey(ctx, "s", "other"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("Expected ErrSubmissionNotFound, got %v", err)
	}
	if _, err := repo.FindByIdempotencyKey(ctx, "another-session", "k"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("Expected a key from another session to miss, got %v", err)
	}
}

func TestMemoryRepository_ListAndPurge(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s := &Submission{ID: string(rune('a' + i)), SessionID: "s", Kind: KindDraft, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Record(ctx, s); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	page, total, err := repo.List(ctx, "s", pagination.Params{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 || len(page) != 2 || page[0].ID != "e" || page[1].ID != "d" {
		t.Errorf("Unexpected first page %+v (total %d)", page, total)
	}

	page, _, _ = repo.List(ctx, "s", pagination.Params{Page: 4, Limit: 2})
	if len(page) != 0 {
		t.Errorf("Expected an empty page past the end, got %+v", page)
	}

	n, err := repo.PurgeBefore(ctx, base.Add(2*time.Hour))
	if err != nil || n != 2 {
		t.Fatalf("Expected 2 purged rows, got %d (%v)", n, err)
	}
	if _, total, _ := repo.List(ctx, "s", pagination.Params{Page: 1, Limit: 10}); total != 3 {
		t.Errorf("Expected 3 rows left, got %d", total)
	}
}
