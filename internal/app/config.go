package app

import "time"

// Поддерживаемые драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска checkout-сервиса.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// RedisAddr — адрес cart store. CatalogBaseURL — базовый URL каталога.
	// Если интеграция не настроена и AllowMockIntegrations=true, сервис
	// поднимается на in-memory заглушке (локальная разработка и demo).
	RedisAddr             string
	CatalogBaseURL        string
	AllowMockIntegrations bool

	JWTSecret    string
	KafkaBrokers string
	Currency     string

	ReconcilePollInterval time.Duration
	ReconcileBatchSize    int
	ReconcileMaxAttempts  int

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает конфигурацию для локального запуска:
// in-memory хранилище и mock-интеграции вместо Redis и каталога.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		AllowMockIntegrations: true,

		JWTSecret: "dev-secret",
		Currency:  "USD",

		ReconcilePollInterval: 5 * time.Second,
		ReconcileBatchSize:    50,
		ReconcileMaxAttempts:  3,

		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}
