package roster

import (
	"context"
	"database/sql"
	"errors"
)

// Repository reads the event and student catalog from Postgres. The catalog
// is owned by the portal's CRUD layer; this side only queries it.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetEvent returns an event by id, or nil when absent.
func (r *Repository) GetEvent(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, scope_type, scope_college, scope_course, attendance_type
		FROM events WHERE id = $1
	`, id)
	var ev Event
	if err := row.Scan(&ev.ID, &ev.Title, &ev.ScopeType, &ev.ScopeCollege, &ev.ScopeCourse, &ev.AttendanceType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

// GetStudentByBarcode returns the student matching a scanned barcode or
// student id, or nil when absent.
func (r *Repository) GetStudentByBarcode(ctx context.Context, barcode string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, barcode, name, college, course, active
		FROM students
		WHERE barcode = $1 OR id::text = $1
		LIMIT 1
	`, barcode)
	var st Student
	if err := row.Scan(&st.ID, &st.Barcode, &st.Name, &st.College, &st.Course, &st.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// CountEligible counts active students inside the scope.
func (r *Repository) CountEligible(ctx context.Context, sc Scope) (int, error) {
	query, args := eligibleQuery("COUNT(*)", sc)
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListEligible returns the full eligible student set for the scope.
func (r *Repository) ListEligible(ctx context.Context, sc Scope) ([]Student, error) {
	query, args := eligibleQuery("id, barcode, name, college, course, active", sc)
	rows, err := r.db.QueryContext(ctx, query+" ORDER BY name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Barcode, &st.Name, &st.College, &st.Course, &st.Active); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func eligibleQuery(cols string, sc Scope) (string, []any) {
	query := "SELECT " + cols + " FROM students WHERE active"
	var args []any
	switch sc.Type {
	case ScopeCollegeWide:
		query += " AND college = $1"
		args = append(args, sc.College)
	case ScopeCourseSpecific:
		query += " AND course = $1"
		args = append(args, sc.Course)
	}
	return query, args
}
