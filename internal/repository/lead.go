package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/guaupro/landing/internal/model"
	"github.com/guaupro/landing/internal/waitlist"
)

// Common errors for lead repository operations.
var (
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// LeadFilter narrows lead listings.
type LeadFilter struct {
	BusinessType  model.BusinessType
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// PaginationCursor represents decoded cursor for pagination.
type PaginationCursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

const leadColumns = `id, email, full_name, business_type, pet_volume, company_name, phone, features, marketing_consent, created_at`

// Exists reports whether a lead with email is already on the waitlist.
func (r *Repository) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM waitlist_leads WHERE email = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check lead existence: %w", err)
	}
	return exists, nil
}

// Insert stores a new lead and returns its id.
// An existing email yields waitlist.ErrDuplicateEmail and leaves the table unchanged.
func (r *Repository) Insert(ctx context.Context, lead *model.Lead) (string, error) {
	query := `
		INSERT INTO waitlist_leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`

	var id string
	err := r.pool.QueryRow(ctx, query,
		lead.ID,
		lead.Email,
		lead.FullName,
		lead.BusinessType,
		lead.PetVolume,
		lead.CompanyName,
		lead.Phone,
		pq.Array(lead.Features),
		lead.MarketingConsent,
		lead.CreatedAt,
	).Scan(&id)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return "", fmt.Errorf("failed to insert lead: %w", waitlist.ErrDuplicateEmail)
		}
		return "", fmt.Errorf("failed to insert lead: %w", err)
	}

	return id, nil
}

// ListLeads retrieves leads newest first with cursor pagination.
func (r *Repository) ListLeads(ctx context.Context, filter LeadFilter, cursor string, limit int) ([]*model.Lead, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `SELECT ` + leadColumns + ` FROM waitlist_leads WHERE TRUE`
	var args []any
	argIndex := 1

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	if filter.BusinessType != "" {
		query += fmt.Sprintf(" AND business_type = $%d", argIndex)
		args = append(args, filter.BusinessType)
		argIndex++
	}

	if filter.CreatedAfter != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *filter.CreatedAfter)
		argIndex++
	}

	if filter.CreatedBefore != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *filter.CreatedBefore)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating leads: %w", err)
	}

	return paginate(leads, limit)
}

// ForEachLead streams every lead, newest first, to fn.
// Iteration stops at the first error returned by fn.
func (r *Repository) ForEachLead(ctx context.Context, fn func(*model.Lead) error) error {
	query := `SELECT ` + leadColumns + ` FROM waitlist_leads ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return fmt.Errorf("failed to scan lead: %w", err)
		}
		if err := fn(lead); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating leads: %w", err)
	}
	return nil
}

// LeadStats counts leads per business type and pet volume.
func (r *Repository) LeadStats(ctx context.Context) (*model.LeadStats, error) {
	query := `
		SELECT business_type, pet_volume, COUNT(*)
		FROM waitlist_leads
		GROUP BY business_type, pet_volume
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead stats: %w", err)
	}
	defer rows.Close()

	stats := newLeadStats()
	for rows.Next() {
		var (
			businessType model.BusinessType
			petVolume    model.PetVolume
			count        int64
		)
		if err := rows.Scan(&businessType, &petVolume, &count); err != nil {
			return nil, fmt.Errorf("failed to scan lead stats: %w", err)
		}
		stats.Total += count
		stats.ByBusinessType[businessType] += count
		stats.ByPetVolume[petVolume] += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lead stats: %w", err)
	}
	return stats, nil
}

func scanLead(row pgx.Row) (*model.Lead, error) {
	var lead model.Lead
	var features []string

	err := row.Scan(
		&lead.ID,
		&lead.Email,
		&lead.FullName,
		&lead.BusinessType,
		&lead.PetVolume,
		&lead.CompanyName,
		&lead.Phone,
		pq.Array(&features),
		&lead.MarketingConsent,
		&lead.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(features) > 0 {
		lead.Features = features
	}
	lead.CreatedAt = lead.CreatedAt.UTC()
	return &lead, nil
}

func newLeadStats() *model.LeadStats {
	return &model.LeadStats{
		ByBusinessType: make(map[model.BusinessType]int64),
		ByPetVolume:    make(map[model.PetVolume]int64),
	}
}

// paginate trims the look-ahead row and builds the next cursor.
func paginate(leads []*model.Lead, limit int) ([]*model.Lead, string, error) {
	var nextCursor string
	if len(leads) > limit {
		leads = leads[:limit] // Remove extra row
		last := leads[len(leads)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt,
		})
	}
	return leads, nextCursor, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// encodeCursor encodes pagination cursor to base64.
func encodeCursor(cursor *PaginationCursor) string {
	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor decodes base64 pagination cursor.
func decodeCursor(s string) (*PaginationCursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	var cursor PaginationCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, err
	}
	if cursor.ID == "" || cursor.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}
