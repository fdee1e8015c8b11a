// Package prefs stores per-operator preferences, currently the selected
// warehouse.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/mattn/go-sqlite3"
)

// Store remembers the warehouse an operator last selected. Zero means none.
type Store interface {
	Warehouse(ctx context.Context, subject string) (int, error)
	SetWarehouse(ctx context.Context, subject string, warehouseID int) error
}

// DB defines the database operations used by PostgresStore.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps preferences in the operator_prefs table.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Warehouse(ctx context.Context, subject string) (int, error) {
	var id int
	err := s.db.QueryRow(ctx,
		`SELECT warehouse_id FROM operator_prefs WHERE subject = $1`, subject,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get warehouse pref for %s: %w", subject, err)
	}
	return id, nil
}

func (s *PostgresStore) SetWarehouse(ctx context.Context, subject string, warehouseID int) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO operator_prefs (subject, warehouse_id, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (subject) DO UPDATE SET warehouse_id = EXCLUDED.warehouse_id, updated_at = NOW()`,
		subject, warehouseID,
	)
	if err != nil {
		return fmt.Errorf("set warehouse pref for %s: %w", subject, err)
	}
	return nil
}

// MemoryStore is used when no database is configured.
type MemoryStore struct {
	mu         sync.Mutex
	warehouses map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{warehouses: make(map[string]int)}
}

func (s *MemoryStore) Warehouse(_ context.Context, subject string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warehouses[subject], nil
}

func (s *MemoryStore) SetWarehouse(_ context.Context, subject string, warehouseID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[subject] = warehouseID
	return nil
}

// SQLiteStore keeps the CLI's preferences in a local file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the prefs database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open prefs db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open prefs db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	_, err := s.db.Exec(`create table if not exists operator_prefs(
		subject text primary key,
		warehouse_id integer not null default 0,
		updated_at datetime not null default current_timestamp
	);`)
	if err != nil {
		return fmt.Errorf("create prefs table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Warehouse(ctx context.Context, subject string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`select warehouse_id from operator_prefs where subject = ?`, subject,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get warehouse pref for %s: %w", subject, err)
	}
	return id, nil
}

func (s *SQLiteStore) SetWarehouse(ctx context.Context, subject string, warehouseID int) error {
	_, err := s.db.ExecContext(ctx,
		`insert into operator_prefs (subject, warehouse_id, updated_at) values (?, ?, current_timestamp)
		 on conflict(subject) do update set warehouse_id = excluded.warehouse_id, updated_at = current_timestamp`,
		subject, warehouseID,
	)
	if err != nil {
		return fmt.Errorf("set warehouse pref for %s: %w", subject, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
