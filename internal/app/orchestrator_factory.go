package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/service/auth"
	"github.com/vladislavdragonenkov/checkout/internal/service/checkout"
)

// createOrchestrator создаёт checkout orchestrator с или без Kafka в
// зависимости от наличия kafka producer.
func createOrchestrator(
	verifier *auth.Verifier,
	deps *runtimeDependencies,
	collab *collaborators,
	kafkaProducer *kafka.Producer,
	currency string,
	logger *log.Entry,
) checkout.Orchestrator {
	var orch checkout.Orchestrator
	if kafkaProducer != nil {
		orch = checkout.NewOrchestratorWithKafka(
			verifier,
			collab.cart,
			collab.catalog,
			deps.orders,
			deps.reconcileRepo,
			deps.timelineRepo,
			kafkaProducer,
			logger,
		)
	} else {
		orch = checkout.NewOrchestrator(
			verifier,
			collab.cart,
			collab.catalog,
			deps.orders,
			deps.reconcileRepo,
			deps.timelineRepo,
			logger,
		)
	}

	return checkout.WithCurrency(orch, currency)
}
