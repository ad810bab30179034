package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const recordCols = `r.id, r.seq, r.event_id, r.student_id, r.time_in, r.time_out,
	r.status, r.mode, r.notes, r.deleted_at, r.scanned_at, r.created_at, r.updated_at`

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanRecord(row interface{ Scan(...any) error }, name bool) (Record, error) {
	var r Record
	dest := []any{&r.ID, &r.Seq, &r.EventID, &r.StudentID, &r.TimeIn, &r.TimeOut,
		&r.Status, &r.Mode, &r.Notes, &r.DeletedAt, &r.ScannedAt, &r.CreatedAt, &r.UpdatedAt}
	if name {
		var sn sql.NullString
		dest = append(dest, &sn)
		if err := row.Scan(dest...); err != nil {
			return Record{}, err
		}
		r.StudentName = sn.String
		return r, nil
	}
	return r, row.Scan(dest...)
}

// Latest returns the most recently created non-deleted record for the pair,
// or nil when none exists. Ordering is (created_at, seq) so same-timestamp
// rows under rapid scanning still have a single latest.
func (r *Repository) Latest(ctx context.Context, eventID, studentID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+`
		FROM attendance_records r
		WHERE r.event_id = $1 AND r.student_id = $2 AND r.deleted_at IS NULL
		ORDER BY r.created_at DESC, r.seq DESC
		LIMIT 1
	`, eventID, studentID)
	rec, err := scanRecord(row, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new record. A violation of the one-open-record index
// surfaces as ErrConflict so the caller can rerun its read-decide-write pass.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, event_id, student_id, time_in, time_out, status, mode, notes, scanned_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING seq, created_at, updated_at
	`, rec.ID, rec.EventID, rec.StudentID, rec.TimeIn, rec.TimeOut, rec.Status, rec.Mode, rec.Notes, rec.ScannedAt)
	if err := row.Scan(&rec.Seq, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrConflict
		}
		return Record{}, err
	}
	return rec, nil
}

// Update rewrites the mutable fields of an existing non-deleted record.
func (r *Repository) Update(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET time_in = $2, time_out = $3, status = $4, scanned_at = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`, rec.ID, rec.TimeIn, rec.TimeOut, rec.Status, rec.ScannedAt)
	if err := row.Scan(&rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrConflict
		}
		return Record{}, err
	}
	return rec, nil
}

// Get returns one non-deleted record scoped to its event, or nil when absent.
func (r *Repository) Get(ctx context.Context, eventID, recordID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+`, s.name
		FROM attendance_records r
		LEFT JOIN students s ON s.id = r.student_id
		WHERE r.id = $1 AND r.event_id = $2 AND r.deleted_at IS NULL
	`, recordID, eventID)
	rec, err := scanRecord(row, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListByEvent returns one page of an event's non-deleted records in stable
// creation order. The store caps page size; callers needing the full set
// must walk offsets until a short page.
func (r *Repository) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]Record, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordCols+`, s.name
		FROM attendance_records r
		LEFT JOIN students s ON s.id = r.student_id
		WHERE r.event_id = $1 AND r.deleted_at IS NULL
		ORDER BY r.created_at ASC, r.seq ASC
		LIMIT $2 OFFSET $3
	`, eventID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows, true)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// SoftDelete stamps deleted_at and leaves every other field untouched.
func (r *Repository) SoftDelete(ctx context.Context, recordID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, recordID, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
