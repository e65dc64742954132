package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/xavierca1/followwise/internal/entity"
)

const leadColumns = `id, contact_name, contact_email, company, phone, notes, source, status, last_email_snippet, lead_score, next_followup_at, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(contact_name ILIKE $%d OR contact_email ILIKE $%d OR company ILIKE $%d OR notes ILIKE $%d)", n, n, n, n))
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := []*entity.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	if !validID(id) {
		return nil, entity.ErrLeadNotFound
	}
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *LeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE contact_email = $1`
	return r.findOne(ctx, query, strings.ToLower(email))
}

func (r *LeadRepository) findOne(ctx context.Context, query string, arg any) (*entity.Lead, error) {
	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, fmt.Errorf("query lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) Create(ctx context.Context, l *entity.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.DB.ExecContext(ctx, query,
		l.ID,
		l.ContactName,
		l.ContactEmail,
		nullString(l.Company),
		nullString(l.Phone),
		nullString(l.Notes),
		string(l.Source),
		string(l.Status),
		nullString(l.LastEmailSnippet),
		l.LeadScore,
		l.NextFollowupAt,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		return translateWriteError(err)
	}
	return nil
}

func (r *LeadRepository) Update(ctx context.Context, l *entity.Lead) error {
	if !validID(l.ID) {
		return entity.ErrLeadNotFound
	}
	query := `
		UPDATE leads SET
			contact_name = $2,
			contact_email = $3,
			company = $4,
			phone = $5,
			notes = $6,
			source = $7,
			status = $8,
			last_email_snippet = $9,
			lead_score = $10,
			next_followup_at = $11,
			updated_at = $12
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		l.ID,
		l.ContactName,
		l.ContactEmail,
		nullString(l.Company),
		nullString(l.Phone),
		nullString(l.Notes),
		string(l.Source),
		string(l.Status),
		nullString(l.LastEmailSnippet),
		l.LeadScore,
		l.NextFollowupAt,
		l.UpdatedAt,
	)
	if err != nil {
		return translateWriteError(err)
	}
	return expectOneRow(res)
}

// RecordContact touches only the contact columns so a concurrent edit of the
// other fields survives.
func (r *LeadRepository) RecordContact(ctx context.Context, id, snippet string, at time.Time) error {
	if !validID(id) {
		return entity.ErrLeadNotFound
	}
	query := `
		UPDATE leads SET
			last_email_snippet = $2,
			next_followup_at = NULL,
			status = CASE WHEN status = 'new' THEN 'in_progress' ELSE status END,
			updated_at = $3
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, nullString(snippet), at)
	if err != nil {
		return fmt.Errorf("record contact: %w", err)
	}
	return expectOneRow(res)
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return entity.ErrLeadNotFound
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		l                              entity.Lead
		company, phone, notes, snippet sql.NullString
		source, status                 string
		nextFollowup                   sql.NullTime
	)
	err := row.Scan(
		&l.ID,
		&l.ContactName,
		&l.ContactEmail,
		&company,
		&phone,
		&notes,
		&source,
		&status,
		&snippet,
		&l.LeadScore,
		&nextFollowup,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Company = company.String
	l.Phone = phone.String
	l.Notes = notes.String
	l.LastEmailSnippet = snippet.String
	if nextFollowup.Valid {
		t := nextFollowup.Time
		l.NextFollowupAt = &t
	}
	l.Source = entity.LeadSource(source)
	l.Status = entity.LeadStatus(status)
	return &l, nil
}

func translateWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return entity.ErrEmailAlreadyExists
	}
	return fmt.Errorf("write lead: %w", err)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

// validID rejects ids the UUID column would refuse, so a malformed id reads
// as an unknown lead instead of a query error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
