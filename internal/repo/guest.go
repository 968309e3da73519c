package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// GuestRepo defines the persistence operations for Guests.
// The service layer depends on this interface, not on a concrete store.
type GuestRepo interface {
	// Create inserts a new guest and returns the persisted record with
	// id, created_at, and updated_at populated.
	// Returns domain.ErrDuplicateLicense if the license is already taken.
	Create(ctx context.Context, g domain.Guest) (domain.Guest, error)

	// GetByID returns the guest with that id, archived or not.
	// Returns domain.ErrNotFound if no guest with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Guest, error)

	// FindByLicense returns the guest holding (state, number), archived or not.
	// state must already be normalized. Returns domain.ErrNotFound if none.
	FindByLicense(ctx context.Context, state, number string) (domain.Guest, error)

	// FindActiveByName returns the oldest active guest whose first and last
	// names match case-insensitively. Returns domain.ErrNotFound if none.
	FindActiveByName(ctx context.Context, first, last string) (domain.Guest, error)

	// FindArchivedByName is FindActiveByName restricted to archived guests.
	FindArchivedByName(ctx context.Context, first, last string) (domain.Guest, error)

	// ListActiveByLastName returns active guests whose last name matches
	// case-insensitively, in insertion order.
	ListActiveByLastName(ctx context.Context, last string) ([]domain.Guest, error)

	// Search returns up to limit active guests whose first name, last name,
	// "first last", or license number contains query (already lower-cased),
	// in insertion order.
	Search(ctx context.Context, query string, limit int) ([]domain.Guest, error)

	// ListActive returns every active guest in insertion order.
	ListActive(ctx context.Context) ([]domain.Guest, error)

	// ListArchived returns one page of archived guests ordered by last name
	// and the total number of archived guests.
	ListArchived(ctx context.Context, p domain.PaginationParams) ([]domain.Guest, int64, error)

	// Update overwrites the mutable attributes of a guest.
	// Returns domain.ErrNotFound if no guest with that ID exists and
	// domain.ErrDuplicateLicense if the new license is already taken.
	Update(ctx context.Context, g domain.Guest) (domain.Guest, error)

	// SetDeleted toggles the soft-delete flag.
	// Returns domain.ErrNotFound if no guest with that ID exists.
	SetDeleted(ctx context.Context, id uuid.UUID, deleted bool) (domain.Guest, error)
}

// pgGuestRepo is the Postgres implementation of GuestRepo.
type pgGuestRepo struct {
	db db
}

// NewGuestRepo constructs a GuestRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewGuestRepo(db db) GuestRepo {
	return &pgGuestRepo{db: db}
}

const guestColumns = `id, first_name, last_name, license_state, license_number,
	phone, email, is_deleted, created_at, updated_at`

func (r *pgGuestRepo) Create(ctx context.Context, g domain.Guest) (domain.Guest, error) {
	const q = `
		INSERT INTO guests (first_name, last_name, license_state, license_number, phone, email, is_deleted)
		VALUES (@first_name, @last_name, @license_state, @license_number, @phone, @email, @is_deleted)
		RETURNING ` + guestColumns

	row := r.db.QueryRow(ctx, q, guestArgs(g))
	result, err := scanGuest(row)
	if err != nil {
		if isUniqueViolation(err, "guests_license_key") {
			return domain.Guest{}, fmt.Errorf("repo.GuestRepo.Create: %w", domain.ErrDuplicateLicense)
		}
		return domain.Guest{}, fmt.Errorf("repo.GuestRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgGuestRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Guest, error) {
	q := `SELECT ` + guestColumns + ` FROM guests WHERE id = @id`

	result, err := scanGuest(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Guest{}, fmt.Errorf("repo.GuestRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgGuestRepo) FindByLicense(ctx context.Context, state, number string) (domain.Guest, error) {
	q := `SELECT ` + guestColumns + `
		FROM guests
		WHERE license_state = @state AND license_number = @number`

	result, err := scanGuest(r.db.QueryRow(ctx, q, pgx.NamedArgs{"state": state, "number": number}))
	if err != nil {
		return domain.Guest{}, fmt.Errorf("repo.GuestRepo.FindByLicense: %w", err)
	}
	return result, nil
}

func (r *pgGuestRepo) FindActiveByName(ctx context.Context, first, last string) (domain.Guest, error) {
	result, err := r.findByName(ctx, first, last, false)
	if err != nil {
		return domain.Guest{}, fmt.Errorf("repo.GuestRepo.FindActiveByName: %w", err)
	}
	return result, nil
}

func (r *pgGuestRepo) FindArchivedByName(ctx context.Context, first, last string) (domain.Guest, error) {
	result, err := r.findByName(ctx, first, last, true)
	if err != nil {
		return domain.Guest{}, fmt.Errorf("repo.GuestRepo.FindArchivedByName: %w", err)
	}
	return result, nil
}

func (r *pgGuestRepo) findByName(ctx context.Context, first, last string, archived bool) (domain.Guest, error) {
	q := `SELECT ` + guestColumns + `
		FROM guests
		WHERE is_deleted = @archived
		  AND lower(first_name) = lower(@first)
		  AND lower(last_name) = lower(@last)
		ORDER BY created_at, id
		LIMIT 1`

	args := pgx.NamedArgs{
		"first":    strings.TrimSpace(first),
		"last":     strings.TrimSpace(last),
		"archived": archived,
	}
	return scanGuest(r.db.QueryRow(ctx, q, args))
}

func (r *pgGuestRepo) ListActiveByLastName(ctx context.Context, last string) ([]domain.Guest, error) {
	q := `SELECT ` + guestColumns + `
		FROM guests
		WHERE NOT is_deleted AND lower(last_name) = lower(@last)
		ORDER BY created_at, id`

	guests, err := r.queryGuests(ctx, q, pgx.NamedArgs{"last": strings.TrimSpace(last)})
	if err != nil {
		return nil, fmt.Errorf("repo.GuestRepo.ListActiveByLastName: %w", err)
	}
	return guests, nil
}

// Search uses strpos instead of LIKE so that '%' and '_' in the query are
// matched literally.
func (r *pgGuestRepo) Search(ctx context.Context, query string, limit int) ([]domain.Guest, error) {
	q := `SELECT ` + guestColumns + `
		FROM guests
		WHERE NOT is_deleted
		  AND (strpos(lower(first_name), @q) > 0
		    OR strpos(lower(last_name), @q) > 0
		    OR strpos(lower(first_name || ' ' || last_name), @q) > 0
		    OR (license_number <> '' AND strpos(lower(license_number), @q) > 0))
		ORDER BY created_at, id
		LIMIT @limit`

	guests, err := r.queryGuests(ctx, q, pgx.NamedArgs{"q": query, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("repo.GuestRepo.Search: %w", err)
	}
	return guests, nil
}

func (r *pgGuestRepo) ListActive(ctx context.Context) ([]domain.Guest, error) {
	q := `SELECT ` + guestColumns + ` FROM guests WHERE NOT is_deleted ORDER BY created_at, id`

	guests, err := r.queryGuests(ctx, q, pgx.NamedArgs{})
	if err != nil {
		return nil, fmt.Errorf("repo.GuestRepo.ListActive: %w", err)
	}
	return guests, nil
}

func (r *pgGuestRepo) ListArchived(ctx context.Context, p domain.PaginationParams) ([]domain.Guest, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM guests WHERE is_deleted`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.GuestRepo.ListArchived: count: %w", err)
	}

	q := `SELECT ` + guestColumns + `
		FROM guests
		WHERE is_deleted
		ORDER BY lower(last_name), lower(first_name), id
		LIMIT @limit OFFSET @offset`

	guests, err := r.queryGuests(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.GuestRepo.ListArchived: %w", err)
	}
	return guests, total, nil
}

func (r *pgGuestRepo) Update(ctx context.Context, g domain.Guest) (domain.Guest, error) {
	const q = `
		UPDATE guests
		SET first_name     = @first_name,
		    last_name      = @last_name,
		    license_state  = @license_state,
		    license_number = @license_number,
		    phone          = @phone,
		    email          = @email,
		    updated_at     = now()
		WHERE id = @id
		RETURNING ` + guestColumns

	args := guestArgs(g)
	args["id"] = g.ID

	result, err := scanGuest(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if isUniqueViolation(err, "guests_license_key") {
			return domain.Guest{}, fmt.Errorf("repo.GuestRepo.Update: %w", domain.ErrDuplicateLicense)
		}
		return domain.Guest{}, fmt.Errorf("repo.GuestRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgGuestRepo) SetDeleted(ctx context.Context, id uuid.UUID, deleted bool) (domain.Guest, error) {
	const q = `
		UPDATE guests
		SET is_deleted = @deleted, updated_at = now()
		WHERE id = @id
		RETURNING ` + guestColumns

	result, err := scanGuest(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "deleted": deleted}))
	if err != nil {
		return domain.Guest{}, fmt.Errorf("repo.GuestRepo.SetDeleted: %w", err)
	}
	return result, nil
}

func (r *pgGuestRepo) queryGuests(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Guest, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	guests := []domain.Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return guests, nil
}

func guestArgs(g domain.Guest) pgx.NamedArgs {
	return pgx.NamedArgs{
		"first_name":     g.FirstName,
		"last_name":      g.LastName,
		"license_state":  g.LicenseState,
		"license_number": g.LicenseNumber,
		"phone":          g.Phone,
		"email":          g.Email,
		"is_deleted":     g.IsDeleted,
	}
}

// scanGuest maps a single database row into a domain.Guest.
func scanGuest(s scanner) (domain.Guest, error) {
	var (
		g  domain.Guest
		id pgtype.UUID
	)
	err := s.Scan(&id, &g.FirstName, &g.LastName, &g.LicenseState, &g.LicenseNumber,
		&g.Phone, &g.Email, &g.IsDeleted, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Guest{}, domain.ErrNotFound
		}
		return domain.Guest{}, err
	}
	g.ID = uuid.UUID(id.Bytes)
	return g, nil
}
