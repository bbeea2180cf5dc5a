package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/app"
)

// Переменные окружения, переопределяющие app.DefaultConfig.
const (
	envHTTPAddr                    = "CHECKOUT_HTTP_ADDR"
	envMetricsAddr                 = "CHECKOUT_METRICS_ADDR"
	envStorageDriver               = "CHECKOUT_STORAGE_DRIVER"
	envPostgresDSN                 = "CHECKOUT_POSTGRES_DSN"
	envPostgresAutoMigrate         = "CHECKOUT_POSTGRES_AUTO_MIGRATE"
	envRedisAddr                   = "CHECKOUT_REDIS_ADDR"
	envCatalogBaseURL              = "CHECKOUT_CATALOG_BASE_URL"
	envAllowMockIntegrations       = "CHECKOUT_ALLOW_MOCK_INTEGRATIONS"
	envJWTSecret                   = "CHECKOUT_JWT_SECRET"
	envKafkaBrokers                = "KAFKA_BROKERS"
	envCurrency                    = "CHECKOUT_CURRENCY"
	envReconcilePollInterval       = "CHECKOUT_RECONCILE_POLL_INTERVAL"
	envReconcileBatchSize          = "CHECKOUT_RECONCILE_BATCH_SIZE"
	envReconcileMaxAttempts        = "CHECKOUT_RECONCILE_MAX_ATTEMPTS"
	envIdempotencyCleanupInterval  = "CHECKOUT_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "CHECKOUT_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
)

type lookupFunc func(string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию из окружения. Непарсящиеся
// значения не прерывают запуск: возвращаются как warnings, поле остаётся
// со значением по умолчанию.
func readConfigFromEnv(lookup lookupFunc) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	readString(lookup, envHTTPAddr, &cfg.HTTPAddr)
	readString(lookup, envMetricsAddr, &cfg.MetricsAddr)
	readString(lookup, envPostgresDSN, &cfg.PostgresDSN)
	readString(lookup, envRedisAddr, &cfg.RedisAddr)
	readString(lookup, envCatalogBaseURL, &cfg.CatalogBaseURL)
	readString(lookup, envJWTSecret, &cfg.JWTSecret)
	readString(lookup, envKafkaBrokers, &cfg.KafkaBrokers)

	if v, ok := lookup(envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(envCurrency); ok {
		cfg.Currency = strings.ToUpper(strings.TrimSpace(v))
	}

	readBool(lookup, envPostgresAutoMigrate, &cfg.PostgresAutoMigrate, &warnings)
	readBool(lookup, envAllowMockIntegrations, &cfg.AllowMockIntegrations, &warnings)

	readDuration(lookup, envReconcilePollInterval, &cfg.ReconcilePollInterval, &warnings)
	readDuration(lookup, envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, &warnings)

	readInt(lookup, envReconcileBatchSize, &cfg.ReconcileBatchSize, &warnings)
	readInt(lookup, envReconcileMaxAttempts, &cfg.ReconcileMaxAttempts, &warnings)
	readInt(lookup, envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize, &warnings)

	return cfg, warnings
}

func readString(lookup lookupFunc, name string, target *string) {
	if v, ok := lookup(name); ok {
		*target = strings.TrimSpace(v)
	}
}

func readBool(lookup lookupFunc, name string, target *bool, warnings *[]string) {
	v, ok := lookup(name)
	if !ok {
		return
	}

	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "yes", "on":
		*target = true
	case "0", "f", "false", "no", "off":
		*target = false
	default:
		*warnings = append(*warnings, fmt.Sprintf("%s: invalid boolean %q, keeping default", name, v))
	}
}

func readDuration(lookup lookupFunc, name string, target *time.Duration, warnings *[]string) {
	v, ok := lookup(name)
	if !ok {
		return
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || parsed <= 0 {
		*warnings = append(*warnings, fmt.Sprintf("%s: invalid duration %q, keeping default", name, v))
		return
	}
	*target = parsed
}

func readInt(lookup lookupFunc, name string, target *int, warnings *[]string) {
	v, ok := lookup(name)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || parsed <= 0 {
		*warnings = append(*warnings, fmt.Sprintf("%s: invalid positive integer %q, keeping default", name, v))
		return
	}
	*target = parsed
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем checkout service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("checkout service остановлен")
}
