package checkout

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/collaborator/catalog"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func newTestResolver(mock *catalog.MockService) *priceResolver {
	resolver := newPriceResolver(mock, log.New().WithField("test", "pricing"))
	resolver.retryDelay = 0
	return resolver
}

func TestPriceResolver_LinesInSnapshotOrder(t *testing.T) {
	mock := &catalog.MockService{Prices: map[string]int64{
		"prod-a": 100,
		"prod-b": 250,
		"prod-c": 99,
	}}
	resolver := newTestResolver(mock)

	snapshot := domain.CartSnapshot{
		{ProductID: "prod-c", Qty: 1},
		{ProductID: "prod-a", Qty: 2},
		{ProductID: "prod-b", Qty: 3},
	}

	lines, err := resolver.Resolve(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"prod-c", "prod-a", "prod-b"} {
		if lines[i].ProductID != want {
			t.Fatalf("expected line %d to be %s, got %s", i, want, lines[i].ProductID)
		}
	}
	if lines[0].PriceMinor != 99 || lines[1].PriceMinor != 100 || lines[2].PriceMinor != 250 {
		t.Fatalf("unexpected prices: %d %d %d", lines[0].PriceMinor, lines[1].PriceMinor, lines[2].PriceMinor)
	}
	if lines[0].ID == "" || lines[0].ID == lines[1].ID {
		t.Fatal("expected distinct non-empty line ids")
	}
}

func TestPriceResolver_OneLookupPerDistinctProduct(t *testing.T) {
	mock := &catalog.MockService{Prices: map[string]int64{"prod-a": 100}}
	resolver := newTestResolver(mock)

	snapshot := domain.CartSnapshot{
		{ProductID: "prod-a", Qty: 1},
		{ProductID: "prod-a", Qty: 2},
		{ProductID: "prod-a", Qty: 3},
	}

	lines, err := resolver.Resolve(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected a line per snapshot item, got %d", len(lines))
	}
	if mock.LookupCalls != 1 {
		t.Fatalf("expected 1 lookup for a single distinct product, got %d", mock.LookupCalls)
	}
}

func TestPriceResolver_FailFastOnUnknownProduct(t *testing.T) {
	mock := &catalog.MockService{Prices: map[string]int64{"prod-a": 100}}
	resolver := newTestResolver(mock)

	snapshot := domain.CartSnapshot{
		{ProductID: "prod-a", Qty: 1},
		{ProductID: "prod-missing", Qty: 1},
	}

	lines, err := resolver.Resolve(context.Background(), snapshot)
	if err == nil {
		t.Fatal("expected pricing failure")
	}
	if lines != nil {
		t.Fatalf("expected no partial lines, got %d", len(lines))
	}

	var pricingErr *domain.PricingError
	if !errors.As(err, &pricingErr) {
		t.Fatalf("expected PricingError, got %v", err)
	}
	if pricingErr.ProductID != "prod-missing" {
		t.Fatalf("expected failing product prod-missing, got %s", pricingErr.ProductID)
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected wrapped ErrProductNotFound, got %v", err)
	}
}

func TestPriceResolver_RetriesUnavailableCatalogOnce(t *testing.T) {
	mock := &catalog.MockService{
		Prices: map[string]int64{"prod-a": 100},
		Errs:   map[string]error{"prod-a": domain.ErrCatalogUnavailable},
	}
	resolver := newTestResolver(mock)

	snapshot := domain.CartSnapshot{{ProductID: "prod-a", Qty: 1}}

	_, err := resolver.Resolve(context.Background(), snapshot)
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
	if mock.LookupCalls != 2 {
		t.Fatalf("expected one retry (2 lookups), got %d", mock.LookupCalls)
	}
}

func TestPriceResolver_EmptySnapshot(t *testing.T) {
	mock := &catalog.MockService{}
	resolver := newTestResolver(mock)

	lines, err := resolver.Resolve(context.Background(), domain.CartSnapshot{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
	if mock.LookupCalls != 0 {
		t.Fatalf("expected no lookups, got %d", mock.LookupCalls)
	}
}
