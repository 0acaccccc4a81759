package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const opTimeout = 5 * time.Second

// shopTables перечисляет таблицы, без которых сервис заказов не стартует.
var shopTables = []string{
	"customers",
	"products",
	"orders",
	"order_items",
	"stock_movements",
	"outbox_messages",
	"idempotency_keys",
}

// PoolConfig задаёт размер и время жизни пула соединений database/sql.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPoolConfig рассчитан на один инстанс сервиса и конкурентные CreateOrder,
// каждый из которых держит соединение на время транзакции с FOR UPDATE.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    25,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// Option настраивает Open.
type Option func(*PoolConfig)

// WithPool заменяет настройки пула целиком; нулевые поля берутся из DefaultPoolConfig.
func WithPool(cfg PoolConfig) Option {
	return func(dst *PoolConfig) {
		def := DefaultPoolConfig()
		if cfg.MaxOpenConns <= 0 {
			cfg.MaxOpenConns = def.MaxOpenConns
		}
		if cfg.MaxIdleConns <= 0 {
			cfg.MaxIdleConns = cfg.MaxOpenConns
		}
		if cfg.ConnMaxLifetime <= 0 {
			cfg.ConnMaxLifetime = def.ConnMaxLifetime
		}
		if cfg.ConnMaxIdleTime <= 0 {
			cfg.ConnMaxIdleTime = def.ConnMaxIdleTime
		}
		if cfg.ConnectTimeout <= 0 {
			cfg.ConnectTimeout = def.ConnectTimeout
		}
		*dst = cfg
	}
}

// Store держит пул соединений к базе магазина и выдаёт репозитории и единицы работы поверх него.
type Store struct {
	db   *sql.DB
	pool PoolConfig
}

// Open подключается через драйвер pgx и проверяет доступность базы.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool := DefaultPoolConfig()
	for _, opt := range opts {
		opt(&pool)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	store := &Store{db: db, pool: pool}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return store, nil
}

// DB отдаёт пул для миграций и тестов.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Pool возвращает применённые настройки пула.
func (s *Store) Pool() PoolConfig {
	return s.pool
}

// Ping используется readiness-проверкой.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("postgres store is not initialized")
	}

	timeout := s.pool.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultPoolConfig().ConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции и проверяет, что таблицы магазина на месте.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.MigrateUp(ctx, 0); err != nil {
		return err
	}
	return s.checkTables(ctx)
}

func (s *Store) checkTables(ctx context.Context) error {
	var missing []string
	for _, table := range shopTables {
		var regclass sql.NullString
		if err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, table).Scan(&regclass); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !regclass.Valid {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema is missing tables: %v", missing)
	}
	return nil
}

// Close закрывает пул; nil-хранилище закрывается без ошибки.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
