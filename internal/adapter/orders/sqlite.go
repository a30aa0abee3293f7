package orders

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	job_id      TEXT PRIMARY KEY,
	service     TEXT NOT NULL DEFAULT '',
	street_addr TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	county      TEXT NOT NULL DEFAULT '',
	due         TEXT NOT NULL DEFAULT '',
	rep_due     TEXT NOT NULL DEFAULT '',
	client      TEXT NOT NULL DEFAULT ''
)`

// SQLiteSource reads orders from the orders table of a SQLite database.
type SQLiteSource struct {
	db *sqlx.DB
}

// NewSQLiteSource opens (or creates) the database at path and ensures the
// orders table exists.
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating orders table: %w", err)
	}

	return &SQLiteSource{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Orders returns every row in insertion order.
func (s *SQLiteSource) Orders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT job_id, service, street_addr, city, state,
		       county, due, rep_due, client
		FROM orders
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	return orders, nil
}

// ReplaceOrders swaps the table contents for orders in one transaction.
func (s *SQLiteSource) ReplaceOrders(ctx context.Context, orders []domain.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM orders"); err != nil {
		return fmt.Errorf("clearing orders: %w", err)
	}

	const query = `
		INSERT INTO orders (
			job_id, service, street_addr, city, state,
			county, due, rep_due, client
		) VALUES (
			:job_id, :service, :street_addr, :city, :state,
			:county, :due, :rep_due, :client
		)`

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range orders {
		if _, err := stmt.ExecContext(ctx, o); err != nil {
			return fmt.Errorf("inserting order %s: %w", o.JobID, err)
		}
	}

	return tx.Commit()
}
