package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/service/auth"
)

func newFactoryFixture(t *testing.T) (*auth.Verifier, *runtimeDependencies, *collaborators) {
	t.Helper()

	logger := log.WithField("test", "orchestrator-factory")

	verifier, err := auth.NewVerifier([]byte("test-secret"))
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}

	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, logger)
	if err != nil {
		t.Fatalf("initRuntimeDependencies failed: %v", err)
	}

	collab, err := initCollaborators(Config{AllowMockIntegrations: true}, logger)
	if err != nil {
		t.Fatalf("initCollaborators failed: %v", err)
	}

	return verifier, deps, collab
}

func TestCreateOrchestrator_WithoutKafka(t *testing.T) {
	verifier, deps, collab := newFactoryFixture(t)

	orch := createOrchestrator(verifier, deps, collab, nil, "USD", log.WithField("test", "orchestrator"))

	if orch == nil {
		t.Fatal("orchestrator should not be nil")
	}
}

func TestCreateOrchestrator_EmptyCurrencyKeepsDefault(t *testing.T) {
	verifier, deps, collab := newFactoryFixture(t)

	orch := createOrchestrator(verifier, deps, collab, nil, "", log.WithField("test", "orchestrator"))

	if orch == nil {
		t.Fatal("orchestrator should not be nil")
	}
}
