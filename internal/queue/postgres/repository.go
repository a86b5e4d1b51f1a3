// Package postgres provides PostgreSQL implementation of queue.Repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/queue"
)

// admissionLock is the advisory lock key serializing admissions, so the
// next queue number and the waiting count are read consistently.
const admissionLock int64 = 0x5051_0001

const entryColumns = `
	id, queue_number, nik, nama, tempat_lahir, tgl_lahir, jenis_kelamin,
	alamat, agama, status, priority, keterangan, estimated_wait_time, created_at
`

// Repository implements queue.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Append stores the entry built by admit in a transaction holding the
// admission lock.
func (r *Repository) Append(ctx context.Context, admit queue.AdmitFunc) (*domain.QueueEntry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, admissionLock); err != nil {
		return nil, fmt.Errorf("acquire admission lock: %w", err)
	}

	var next int64
	var waiting int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(queue_number), 0) + 1,
		       COUNT(*) FILTER (WHERE status = 'WAITING')
		FROM queue_entries
	`).Scan(&next, &waiting)
	if err != nil {
		return nil, fmt.Errorf("read queue position: %w", err)
	}

	entry := admit(next, waiting)

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		entry.ID,
		entry.QueueNumber,
		entry.PatientID,
		entry.PatientName,
		entry.BirthPlace,
		entry.BirthDate,
		entry.Gender,
		entry.Address,
		entry.Religion,
		entry.Status,
		entry.Priority,
		entry.Note,
		entry.EstimatedWaitTime,
		entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return entry, nil
}

// FindByID retrieves an entry by ID.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &entry, nil
}

// Update locks the row, applies mutate and persists status and note.
func (r *Repository) Update(ctx context.Context, id string, mutate func(*domain.QueueEntry)) (*domain.QueueEntry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE id = $1 FOR UPDATE`
	entry, err := scanEntry(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrEntryNotFound
		}
		return nil, fmt.Errorf("lock entry: %w", err)
	}

	draft := entry
	mutate(&draft)
	if draft.Status == entry.Status && draft.Note == entry.Note {
		return &entry, nil
	}
	entry.Status = draft.Status
	entry.Note = draft.Note

	_, err = tx.Exec(ctx, `
		UPDATE queue_entries
		SET status = $2, keterangan = $3, updated_at = NOW()
		WHERE id = $1
	`, id, entry.Status, entry.Note)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &entry, nil
}

// All loads every entry ordered by queue number.
func (r *Repository) All(ctx context.Context) (iter.Seq[domain.QueueEntry], error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries ORDER BY queue_number`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.QueueEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return slices.Values(entries), nil
}

func scanEntry(row pgx.Row) (domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := row.Scan(
		&e.ID,
		&e.QueueNumber,
		&e.PatientID,
		&e.PatientName,
		&e.BirthPlace,
		&e.BirthDate,
		&e.Gender,
		&e.Address,
		&e.Religion,
		&e.Status,
		&e.Priority,
		&e.Note,
		&e.EstimatedWaitTime,
		&e.CreatedAt,
	)
	return e, err
}
