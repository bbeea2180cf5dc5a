package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/service/auth"
	"github.com/vladislavdragonenkov/checkout/internal/service/idempotency"
	"github.com/vladislavdragonenkov/checkout/internal/service/reconcile"
	"github.com/vladislavdragonenkov/checkout/internal/service/rest"
	"github.com/vladislavdragonenkov/checkout/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run собирает и запускает checkout-сервис: HTTP API, метрики и фоновые
// воркеры. Блокируется до отмены ctx или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	collab, err := initCollaborators(cfg, logger)
	if err != nil {
		return err
	}
	defer collab.close(logger)

	verifier, err := auth.NewVerifier([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}

	// Kafka опционален: без брокеров сервис работает, события не публикуются.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	orchestrator := createOrchestrator(
		verifier, deps, collab, kafkaProducer, cfg.Currency,
		logger.WithField("layer", "checkout"),
	)

	restLogger := logger.WithField("layer", "rest")
	checkoutHandler := rest.NewCheckoutHandler(orchestrator, verifier, deps.idempotencyRepo, restLogger)
	ordersHandler := rest.NewOrdersHandler(deps.orders, deps.timelineRepo, verifier, restLogger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewPingChecker("postgres", deps.store, 2*time.Second))
	}
	if collab.redisCart != nil {
		healthHandler.RegisterChecker("redis", healthcheck.NewPingChecker("redis", collab.redisCart, 2*time.Second))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	startWorkers(workersCtx, cfg, deps, collab, kafkaProducer, logger)

	apiSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: rest.NewRouter(checkoutHandler, ordersHandler, healthHandler),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startWorkers запускает фоновые воркеры: реконсиляцию отложенных очисток
// корзин и удаление просроченных idempotency записей.
func startWorkers(
	ctx context.Context,
	cfg Config,
	deps *runtimeDependencies,
	collab *collaborators,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) {
	reconcileOpts := []reconcile.Option{
		reconcile.WithLogger(logger.WithField("component", "reconcile-worker")),
		reconcile.WithPollInterval(cfg.ReconcilePollInterval),
		reconcile.WithBatchSize(cfg.ReconcileBatchSize),
		reconcile.WithMaxAttempts(cfg.ReconcileMaxAttempts),
	}
	if kafkaProducer != nil {
		reconcileOpts = append(reconcileOpts, reconcile.WithPublisher(kafkaProducer))
	}
	reconcileWorker := reconcile.NewWorker(deps.reconcileRepo, collab.cart, reconcileOpts...)
	go reconcileWorker.Run(ctx)

	cleanupWorker := idempotency.NewCleanupWorker(
		deps.idempotencyRepo,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup-worker")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	go cleanupWorker.Run(ctx)
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
