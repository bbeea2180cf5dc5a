package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestCartSnapshotMerged(t *testing.T) {
	snapshot := domain.CartSnapshot{
		{ProductID: "p1", Qty: 2},
		{ProductID: "p2", Qty: 1},
		{ProductID: "p1", Qty: 3},
	}

	merged := snapshot.Merged()
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged items, got %d", len(merged))
	}
	// Порядок первого появления сохраняется, количества суммируются.
	if merged[0].ProductID != "p1" || merged[0].Qty != 5 {
		t.Fatalf("unexpected first item: %+v", merged[0])
	}
	if merged[1].ProductID != "p2" || merged[1].Qty != 1 {
		t.Fatalf("unexpected second item: %+v", merged[1])
	}

	// Исходный снимок не мутирует.
	if snapshot[0].Qty != 2 {
		t.Fatalf("source snapshot mutated: %+v", snapshot)
	}
}

func TestCartSnapshotMerged_NoDuplicates(t *testing.T) {
	snapshot := domain.CartSnapshot{
		{ProductID: "p1", Qty: 1},
		{ProductID: "p2", Qty: 2},
	}

	merged := snapshot.Merged()
	if len(merged) != 2 {
		t.Fatalf("expected snapshot unchanged, got %+v", merged)
	}
}

func TestCartSnapshotIsEmpty(t *testing.T) {
	if !(domain.CartSnapshot{}).IsEmpty() {
		t.Fatal("empty snapshot must report IsEmpty")
	}
	if (domain.CartSnapshot{{ProductID: "p1", Qty: 1}}).IsEmpty() {
		t.Fatal("non-empty snapshot must not report IsEmpty")
	}
}

func TestCartSnapshotValidate(t *testing.T) {
	snapshot := domain.CartSnapshot{
		{ProductID: "", Qty: 1},
		{ProductID: "p2", Qty: 0},
	}

	errs := snapshot.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", errs)
	}
}
