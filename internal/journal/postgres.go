package journal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const selectColumns = `id, tx_id, kind, sender, asset_id, recipients, total_units::text,
        group_id, status, error, confirmed_round, created_at, updated_at`

// PostgresJournal persists submissions in PostgreSQL.
type PostgresJournal struct {
	db *pgxpool.Pool
}

// NewPostgresJournal constructs a Postgres-backed journal.
func NewPostgresJournal(db *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// Record inserts a new submission.
func (j *PostgresJournal) Record(ctx context.Context, entry Entry) (Entry, error) {
	entry = prepare(entry, time.Now().UTC())

	_, err := j.db.Exec(ctx, `INSERT INTO submissions
        (id, tx_id, kind, sender, asset_id, recipients, total_units, group_id, status, error, confirmed_round, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13)`,
		entry.ID, entry.TxID, string(entry.Kind), entry.Sender, int64(entry.AssetID), entry.Recipients,
		strconv.FormatUint(entry.TotalUnits, 10), entry.GroupID, string(entry.Status), entry.Error,
		int64(entry.ConfirmedRound), entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			existing, getErr := j.Get(ctx, entry.TxID)
			if getErr != nil {
				return Entry{}, getErr
			}
			return existing, ErrDuplicate
		}
		return Entry{}, fmt.Errorf("insert submission: %w", err)
	}
	return entry, nil
}

// Resolve stores the confirmation outcome of txID.
func (j *PostgresJournal) Resolve(ctx context.Context, txID string, outcome Outcome) (Entry, error) {
	row := j.db.QueryRow(ctx, `UPDATE submissions
        SET status = $2, confirmed_round = $3, error = $4, updated_at = $5
        WHERE tx_id = $1
        RETURNING `+selectColumns,
		txID, string(outcome.Status), int64(outcome.ConfirmedRound), outcome.Error, time.Now().UTC())
	return scanEntry(row)
}

// Get fetches the submission recorded for txID.
func (j *PostgresJournal) Get(ctx context.Context, txID string) (Entry, error) {
	row := j.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM submissions WHERE tx_id = $1`, txID)
	return scanEntry(row)
}

// ListBySender returns the newest submissions of sender.
func (j *PostgresJournal) ListBySender(ctx context.Context, sender string, limit int) ([]Entry, error) {
	rows, err := j.db.Query(ctx, `SELECT `+selectColumns+` FROM submissions
        WHERE sender = $1 ORDER BY created_at DESC LIMIT $2`, sender, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e              Entry
		kind, status   string
		assetID, round int64
		units          string
	)
	err := row.Scan(&e.ID, &e.TxID, &kind, &e.Sender, &assetID, &e.Recipients, &units,
		&e.GroupID, &status, &e.Error, &round, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.TotalUnits, err = strconv.ParseUint(units, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parse total units %q: %w", units, err)
	}
	e.Kind = Kind(kind)
	e.Status = Status(status)
	e.AssetID = uint64(assetID)
	e.ConfirmedRound = uint64(round)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
