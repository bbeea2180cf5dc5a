package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

// poolLimits — настройки пула соединений. Значения подобраны под один
// инстанс сервиса: заметно меньше дефолтного max_connections postgres.
var poolLimits = struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}{
	maxOpen:     25,
	maxIdle:     25,
	maxLifetime: 30 * time.Minute,
	maxIdleTime: 5 * time.Minute,
}

var errStoreNotInitialized = errors.New("postgres store is not initialized")

// Store владеет пулом соединений с PostgreSQL. Репозитории получают
// *sql.DB через DB() и не управляют жизненным циклом подключения.
type Store struct {
	db *sql.DB
}

// Open открывает пул к PostgreSQL через pgx stdlib-драйвер и убеждается,
// что база отвечает. DSN с недоступной базой — ошибка сразу, не при
// первом запросе.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(poolLimits.maxOpen)
	db.SetMaxIdleConns(poolLimits.maxIdle)
	db.SetConnMaxLifetime(poolLimits.maxLifetime)
	db.SetConnMaxIdleTime(poolLimits.maxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает пул для репозиториев и миграций.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность базы; используется health-пробами.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает пул. Безопасен на nil-получателе.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
