package datapoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists group address bindings and the last value seen on each.
type Repository interface {
	// Get returns the binding for a group address.
	// Returns ErrNotFound if the address is not bound.
	Get(ctx context.Context, groupAddress string) (*Binding, error)

	// List returns all bindings ordered by group address.
	List(ctx context.Context) ([]Binding, error)

	// Upsert creates a binding or replaces the DPT, name and measurement
	// of an existing one. The last value is kept.
	Upsert(ctx context.Context, b *Binding) error

	// Delete removes a binding.
	// Returns ErrNotFound if the address is not bound.
	Delete(ctx context.Context, groupAddress string) error

	// RecordValue stores the most recent decoded value for a bound address.
	// Returns ErrNotFound if the address is not bound.
	RecordValue(ctx context.Context, groupAddress string, value any, at time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `
	SELECT group_address, dpt, name, measurement, last_value, last_seen,
		created_at, updated_at
	FROM datapoints`

// Get returns the binding for a group address.
func (r *SQLiteRepository) Get(ctx context.Context, groupAddress string) (*Binding, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" WHERE group_address = ?", groupAddress)
	b, err := scanBinding(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying datapoint: %w", err)
	}
	return b, nil
}

// List returns all bindings ordered by group address.
func (r *SQLiteRepository) List(ctx context.Context) ([]Binding, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" ORDER BY group_address")
	if err != nil {
		return nil, fmt.Errorf("querying datapoints: %w", err)
	}
	defer rows.Close()

	var bindings []Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning datapoint: %w", err)
		}
		bindings = append(bindings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating datapoints: %w", err)
	}
	return bindings, nil
}

// Upsert creates or updates a binding.
func (r *SQLiteRepository) Upsert(ctx context.Context, b *Binding) error {
	if b.GroupAddress == "" {
		return fmt.Errorf("%w: group address is required", ErrInvalidBinding)
	}

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	query := `
		INSERT INTO datapoints (group_address, dpt, name, measurement, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_address) DO UPDATE SET
			dpt = excluded.dpt,
			name = excluded.name,
			measurement = excluded.measurement,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		b.GroupAddress,
		b.DPT,
		b.Name,
		b.Measurement,
		b.CreatedAt.Format(time.RFC3339),
		b.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting datapoint: %w", err)
	}
	return nil
}

// Delete removes a binding.
func (r *SQLiteRepository) Delete(ctx context.Context, groupAddress string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM datapoints WHERE group_address = ?", groupAddress)
	if err != nil {
		return fmt.Errorf("deleting datapoint: %w", err)
	}
	return checkAffected(result)
}

// RecordValue stores the latest value as JSON along with its timestamp.
func (r *SQLiteRepository) RecordValue(ctx context.Context, groupAddress string, value any, at time.Time) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshalling value: %w", err)
	}

	query := `
		UPDATE datapoints
		SET last_value = ?, last_seen = ?, updated_at = ?
		WHERE group_address = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(valueJSON),
		at.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		groupAddress,
	)
	if err != nil {
		return fmt.Errorf("recording datapoint value: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBinding(s rowScanner) (*Binding, error) {
	var b Binding
	var lastValue, lastSeen sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(
		&b.GroupAddress,
		&b.DPT,
		&b.Name,
		&b.Measurement,
		&lastValue,
		&lastSeen,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if lastValue.Valid {
		b.LastValue = json.RawMessage(lastValue.String)
	}
	if lastSeen.Valid {
		t, err := time.Parse(time.RFC3339, lastSeen.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_seen: %w", err)
		}
		b.LastSeen = &t
	}

	var err error
	if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &b, nil
}
