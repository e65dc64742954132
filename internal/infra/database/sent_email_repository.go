package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/followwise/internal/entity"
)

type SentEmailRepository struct {
	DB  *sql.DB
	now func() time.Time
}

func NewSentEmailRepository(db *sql.DB) *SentEmailRepository {
	return &SentEmailRepository{
		DB:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *SentEmailRepository) Append(ctx context.Context, e *entity.SentEmail) error {
	if e.SourceLeadID != nil && !validID(*e.SourceLeadID) {
		return entity.ErrLeadNotFound
	}
	e.ID = uuid.New().String()
	e.SentAt = r.now()

	query := `
		INSERT INTO sent_emails (id, to_email, subject, body, provider, sent_at, source_lead_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.DB.ExecContext(ctx, query,
		e.ID,
		e.ToEmail,
		e.Subject,
		e.Body,
		e.Provider,
		e.SentAt,
		e.SourceLeadID,
	)
	if err != nil {
		return fmt.Errorf("append sent email: %w", err)
	}
	return nil
}

func (r *SentEmailRepository) List(ctx context.Context, filter entity.SentEmailFilter) ([]*entity.SentEmail, error) {
	var (
		where []string
		args  []any
	)
	if filter.LeadID != "" {
		if !validID(filter.LeadID) {
			return []*entity.SentEmail{}, nil
		}
		args = append(args, filter.LeadID)
		where = append(where, fmt.Sprintf("source_lead_id = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		where = append(where, fmt.Sprintf("sent_at >= $%d", len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		where = append(where, fmt.Sprintf("sent_at < $%d", len(args)))
	}

	query := `SELECT id, to_email, subject, body, provider, sent_at, source_lead_id FROM sent_emails`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY sent_at DESC`
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
		return nil, fmt.Errorf("query sent emails: %w", err)
	}
	defer rows.Close()

	emails := []*entity.SentEmail{}
	for rows.Next() {
		var (
			e      entity.SentEmail
			leadID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ToEmail, &e.Subject, &e.Body, &e.Provider, &e.SentAt, &leadID); err != nil {
			return nil, fmt.Errorf("scan sent email: %w", err)
		}
		if leadID.Valid {
			id := leadID.String
			e.SourceLeadID = &id
		}
		emails = append(emails, &e)
	}
	return emails, rows.Err()
}
