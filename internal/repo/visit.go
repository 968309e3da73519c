package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// VisitRepo defines the persistence operations for Visits and their
// department stamps.
type VisitRepo interface {
	// Create inserts a visit together with its first stamp (v.Departments[0])
	// in one statement. Returns domain.ErrVisitExists if the guest already
	// has a visit on v.VisitDate.
	Create(ctx context.Context, v domain.Visit) (domain.Visit, error)

	// GetByID returns a visit with its stamps.
	// Returns domain.ErrNotFound if no visit with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Visit, error)

	// GetByGuestAndDate returns the guest's visit on date.
	// Returns domain.ErrNotFound if there is none.
	GetByGuestAndDate(ctx context.Context, guestID uuid.UUID, date string) (domain.Visit, error)

	// ListByGuest returns the guest's visits with from <= visit_date <= to,
	// ordered by visit_date ascending.
	ListByGuest(ctx context.Context, guestID uuid.UUID, from, to string) ([]domain.Visit, error)

	// ListByDate returns every guest's visit on date, oldest first.
	ListByDate(ctx context.Context, date string) ([]domain.Visit, error)

	// ListInRange returns all visits with from <= visit_date <= to, ordered
	// by visit_date ascending.
	ListInRange(ctx context.Context, from, to string) ([]domain.Visit, error)

	// UpsertStamp records a department stamp on a visit. A stamp for a
	// department already on the visit is refreshed, not duplicated.
	// Returns domain.ErrNotFound if the visit does not exist.
	UpsertStamp(ctx context.Context, visitID uuid.UUID, s domain.Stamp) (domain.Stamp, error)

	// Delete removes a visit and all of its stamps.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgVisitRepo is the Postgres implementation of VisitRepo.
type pgVisitRepo struct {
	db db
}

// NewVisitRepo constructs a VisitRepo backed by the provided db connection.
func NewVisitRepo(db db) VisitRepo {
	return &pgVisitRepo{db: db}
}

const visitColumns = `id, guest_id, visit_date, created_at, campus, first_department`

// Create inserts the visit row and its first stamp with a data-modifying CTE
// so both land or neither does.
func (r *pgVisitRepo) Create(ctx context.Context, v domain.Visit) (domain.Visit, error) {
	if len(v.Departments) == 0 {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.Create: %w: a visit needs a first department stamp", domain.ErrValidation)
	}
	date, err := pgDate(v.VisitDate)
	if err != nil {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.Create: %w", err)
	}
	first := v.Departments[0]

	const q = `
		WITH v AS (
			INSERT INTO visits (guest_id, visit_date, created_at, campus, first_department)
			VALUES (@guest_id, @visit_date, @created_at, @campus, @department)
			RETURNING ` + visitColumns + `
		), d AS (
			INSERT INTO visit_departments (visit_id, department, campus, checked_in_at, created_at)
			SELECT id, @department, @stamp_campus, @checked_in_at, @checked_in_at FROM v
		)
		SELECT ` + visitColumns + ` FROM v`

	args := pgx.NamedArgs{
		"guest_id":      v.GuestID,
		"visit_date":    date,
		"created_at":    v.CreatedAt,
		"campus":        v.Campus,
		"department":    first.Department,
		"stamp_campus":  first.Campus,
		"checked_in_at": first.CheckedInAt,
	}

	result, err := scanVisit(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if isUniqueViolation(err, "visits_guest_date_key") {
			return domain.Visit{}, fmt.Errorf("repo.VisitRepo.Create: %w", domain.ErrVisitExists)
		}
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.Create: %w", err)
	}
	result.Departments = []domain.Stamp{first}
	return result, nil
}

func (r *pgVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Visit, error) {
	q := `SELECT ` + visitColumns + ` FROM visits WHERE id = @id`

	visits, err := r.queryVisits(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.GetByID: %w", err)
	}
	if len(visits) == 0 {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.GetByID: %w", domain.ErrNotFound)
	}
	return visits[0], nil
}

func (r *pgVisitRepo) GetByGuestAndDate(ctx context.Context, guestID uuid.UUID, date string) (domain.Visit, error) {
	d, err := pgDate(date)
	if err != nil {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.GetByGuestAndDate: %w", err)
	}
	q := `SELECT ` + visitColumns + ` FROM visits WHERE guest_id = @guest_id AND visit_date = @date`

	visits, err := r.queryVisits(ctx, q, pgx.NamedArgs{"guest_id": guestID, "date": d})
	if err != nil {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.GetByGuestAndDate: %w", err)
	}
	if len(visits) == 0 {
		return domain.Visit{}, fmt.Errorf("repo.VisitRepo.GetByGuestAndDate: %w", domain.ErrNotFound)
	}
	return visits[0], nil
}

func (r *pgVisitRepo) ListByGuest(ctx context.Context, guestID uuid.UUID, from, to string) ([]domain.Visit, error) {
	args, err := rangeArgs(from, to)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByGuest: %w", err)
	}
	args["guest_id"] = guestID

	q := `SELECT ` + visitColumns + `
		FROM visits
		WHERE guest_id = @guest_id AND visit_date BETWEEN @from AND @to
		ORDER BY visit_date`

	visits, err := r.queryVisits(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByGuest: %w", err)
	}
	return visits, nil
}

func (r *pgVisitRepo) ListByDate(ctx context.Context, date string) ([]domain.Visit, error) {
	d, err := pgDate(date)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByDate: %w", err)
	}
	q := `SELECT ` + visitColumns + ` FROM visits WHERE visit_date = @date ORDER BY created_at, id`

	visits, err := r.queryVisits(ctx, q, pgx.NamedArgs{"date": d})
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByDate: %w", err)
	}
	return visits, nil
}

func (r *pgVisitRepo) ListInRange(ctx context.Context, from, to string) ([]domain.Visit, error) {
	args, err := rangeArgs(from, to)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListInRange: %w", err)
	}
	q := `SELECT ` + visitColumns + `
		FROM visits
		WHERE visit_date BETWEEN @from AND @to
		ORDER BY visit_date, created_at, id`

	visits, err := r.queryVisits(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListInRange: %w", err)
	}
	return visits, nil
}

// UpsertStamp relies on the (visit_id, department) unique constraint: the
// DO UPDATE branch refreshes the existing stamp and still fires RETURNING.
func (r *pgVisitRepo) UpsertStamp(ctx context.Context, visitID uuid.UUID, s domain.Stamp) (domain.Stamp, error) {
	const q = `
		INSERT INTO visit_departments (visit_id, department, campus, checked_in_at, created_at)
		SELECT id, @department, @campus, @checked_in_at, @checked_in_at FROM visits WHERE id = @visit_id
		ON CONFLICT (visit_id, department)
		DO UPDATE SET checked_in_at = EXCLUDED.checked_in_at, campus = EXCLUDED.campus
		RETURNING department, campus, checked_in_at`

	args := pgx.NamedArgs{
		"visit_id":      visitID,
		"department":    s.Department,
		"campus":        s.Campus,
		"checked_in_at": s.CheckedInAt,
	}

	var out domain.Stamp
	err := r.db.QueryRow(ctx, q, args).Scan(&out.Department, &out.Campus, &out.CheckedInAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The SELECT found no visit, so nothing was inserted.
			return domain.Stamp{}, fmt.Errorf("repo.VisitRepo.UpsertStamp: %w", domain.ErrNotFound)
		}
		return domain.Stamp{}, fmt.Errorf("repo.VisitRepo.UpsertStamp: %w", err)
	}
	return out, nil
}

// Delete removes a visit; its stamps go with it via ON DELETE CASCADE.
func (r *pgVisitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM visits WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.VisitRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VisitRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// queryVisits runs a visit query and attaches the stamps of every returned
// visit with one follow-up query.
func (r *pgVisitRepo) queryVisits(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Visit, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	visits := []domain.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan: %w", err)
		}
		visits = append(visits, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(visits) == 0 {
		return visits, nil
	}

	stamps, err := r.stampsFor(ctx, visits)
	if err != nil {
		return nil, err
	}
	for i := range visits {
		visits[i].Departments = stamps[visits[i].ID]
		if visits[i].Departments == nil {
			visits[i].Departments = []domain.Stamp{}
		}
	}
	return visits, nil
}

func (r *pgVisitRepo) stampsFor(ctx context.Context, visits []domain.Visit) (map[uuid.UUID][]domain.Stamp, error) {
	ids := make([]uuid.UUID, len(visits))
	for i, v := range visits {
		ids[i] = v.ID
	}

	const q = `
		SELECT visit_id, department, campus, checked_in_at
		FROM visit_departments
		WHERE visit_id = ANY(@ids)
		ORDER BY created_at, department`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("stamps: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.Stamp, len(visits))
	for rows.Next() {
		var (
			visitID pgtype.UUID
			s       domain.Stamp
		)
		if err := rows.Scan(&visitID, &s.Department, &s.Campus, &s.CheckedInAt); err != nil {
			return nil, fmt.Errorf("stamps: scan: %w", err)
		}
		id := uuid.UUID(visitID.Bytes)
		out[id] = append(out[id], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stamps: rows: %w", err)
	}
	return out, nil
}

func rangeArgs(from, to string) (pgx.NamedArgs, error) {
	f, err := pgDate(from)
	if err != nil {
		return nil, err
	}
	t, err := pgDate(to)
	if err != nil {
		return nil, err
	}
	return pgx.NamedArgs{"from": f, "to": t}, nil
}

// scanVisit maps a visit row (without stamps) into a domain.Visit.
func scanVisit(s scanner) (domain.Visit, error) {
	var (
		v         domain.Visit
		id        pgtype.UUID
		guestID   pgtype.UUID
		visitDate pgtype.Date
		createdAt time.Time
	)
	err := s.Scan(&id, &guestID, &visitDate, &createdAt, &v.Campus, &v.FirstDepartment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Visit{}, domain.ErrNotFound
		}
		return domain.Visit{}, err
	}
	v.ID = uuid.UUID(id.Bytes)
	v.GuestID = uuid.UUID(guestID.Bytes)
	v.VisitDate = visitDate.Time.Format(domain.DateLayout)
	v.CreatedAt = createdAt
	return v, nil
}
