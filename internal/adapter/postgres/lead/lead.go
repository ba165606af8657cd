package lead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	pgdb "github.com/alanyang/lead-router/internal/adapter/postgres"
	domainlead "github.com/alanyang/lead-router/internal/domain/lead"
	portlead "github.com/alanyang/lead-router/internal/port/lead"
)

var _ portlead.Repository = (*Repository)(nil)

// Columns is the select list Scan expects.
const Columns = `id, name, email, phone, company, source, status, disposition, priority,
	assigned_agent, assigned_at, assignment_method, assignment_notes,
	previous_agent, reassignment_reason, reassignment_notes, notes,
	tags, attributes, last_activity, update_history, created_at, updated_at`

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a lead. Load counters are not touched; seed leads unassigned
// or run a recount afterwards.
func (r *Repository) Create(ctx context.Context, l domainlead.Lead) (domainlead.Lead, error) {
	attrs, history, err := marshalJSON(l)
	if err != nil {
		return domainlead.Lead{}, err
	}
	query := `
		INSERT INTO leads (id, name, email, phone, company, source, status, disposition, priority,
			assigned_agent, assigned_at, notes, tags, attributes, update_history, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING ` + Columns

	return Scan(r.pool.QueryRow(ctx, query,
		l.ID, l.Name, l.Email, l.Phone, l.Company, l.Source, l.Status, l.Disposition, string(l.Priority),
		l.AssignedAgent, l.AssignedAt, l.Notes, tagsOrEmpty(l.Tags), attrs, history, l.CreatedAt, l.UpdatedAt,
	))
}

func (r *Repository) GetByID(ctx context.Context, id string) (domainlead.Lead, error) {
	return Scan(r.pool.QueryRow(ctx, `SELECT `+Columns+` FROM leads WHERE id = $1`, id))
}

func (r *Repository) List(ctx context.Context, filters domainlead.ListFilters) ([]domainlead.Lead, error) {
	query := `SELECT ` + Columns + ` FROM leads WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filters.AssignedTo != nil {
		query += fmt.Sprintf(" AND assigned_agent = $%d", argIdx)
		args = append(args, *filters.AssignedTo)
		argIdx++
	}
	if filters.Unassigned {
		query += " AND assigned_agent IS NULL"
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filters.Status)
		argIdx++
	}
	if filters.Priority != nil {
		query += fmt.Sprintf(" AND priority = $%d", argIdx)
		args = append(args, string(*filters.Priority))
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var leads []domainlead.Lead
	for rows.Next() {
		l, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// ApplyPatch locks the row, applies p in Go and writes the result back with ev
// appended to update_history.
func (r *Repository) ApplyPatch(ctx context.Context, id string, p domainlead.Patch, ev domainlead.Event) (domainlead.Lead, error) {
	var out domainlead.Lead
	err := pgdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		l, err := Scan(tx.QueryRow(ctx, `SELECT `+Columns+` FROM leads WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := p.Apply(&l); err != nil {
			return err
		}
		if err := Write(ctx, tx, l, ev); err != nil {
			return err
		}
		l.UpdateHistory = append(l.UpdateHistory, ev)
		out = l
		return nil
	})
	if err != nil {
		return domainlead.Lead{}, err
	}
	return out, nil
}

// Write persists every mutable column of l and appends ev to update_history.
// l.UpdateHistory itself is not written.
func Write(ctx context.Context, q Execer, l domainlead.Lead, ev domainlead.Event) error {
	attrs, err := json.Marshal(attributesOrEmpty(l.Attributes))
	if err != nil {
		return fmt.Errorf("marshaling attributes: %w", err)
	}
	entry, err := json.Marshal([]domainlead.Event{ev})
	if err != nil {
		return fmt.Errorf("marshaling history entry: %w", err)
	}

	query := `
		UPDATE leads SET
			name = $2, email = $3, phone = $4, company = $5, source = $6, status = $7,
			disposition = $8, priority = $9, assigned_agent = $10, assigned_at = $11,
			assignment_method = $12, assignment_notes = $13, previous_agent = $14,
			reassignment_reason = $15, reassignment_notes = $16, notes = $17, tags = $18,
			attributes = $19, last_activity = $20, updated_at = $21,
			update_history = update_history || $22::jsonb
		WHERE id = $1`

	tag, err := q.Exec(ctx, query,
		l.ID, l.Name, l.Email, l.Phone, l.Company, l.Source, l.Status,
		l.Disposition, string(l.Priority), l.AssignedAgent, l.AssignedAt,
		l.AssignmentMethod, l.AssignmentNotes, l.PreviousAgent,
		l.ReassignmentReason, l.ReassignmentNotes, l.Notes, tagsOrEmpty(l.Tags),
		attrs, l.LastActivity, l.UpdatedAt, entry,
	)
	if err != nil {
		return fmt.Errorf("updating lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainlead.ErrNotFound
	}
	return nil
}

// Scan reads one row selected with Columns.
func Scan(row pgx.Row) (domainlead.Lead, error) {
	var l domainlead.Lead
	var priority string
	var attrs, history []byte

	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &l.Source, &l.Status, &l.Disposition, &priority,
		&l.AssignedAgent, &l.AssignedAt, &l.AssignmentMethod, &l.AssignmentNotes,
		&l.PreviousAgent, &l.ReassignmentReason, &l.ReassignmentNotes, &l.Notes,
		&l.Tags, &attrs, &l.LastActivity, &history, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainlead.Lead{}, domainlead.ErrNotFound
		}
		return domainlead.Lead{}, fmt.Errorf("scanning lead: %w", err)
	}
	l.Priority = domainlead.Priority(priority)

	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &l.Attributes); err != nil {
			return domainlead.Lead{}, fmt.Errorf("unmarshaling attributes: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &l.UpdateHistory); err != nil {
			return domainlead.Lead{}, fmt.Errorf("unmarshaling update_history: %w", err)
		}
	}
	l.Tags = tagsOrEmpty(l.Tags)
	l.Attributes = attributesOrEmpty(l.Attributes)
	if l.UpdateHistory == nil {
		l.UpdateHistory = []domainlead.Event{}
	}
	return l, nil
}

func marshalJSON(l domainlead.Lead) (attrs, history []byte, err error) {
	attrs, err = json.Marshal(attributesOrEmpty(l.Attributes))
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling attributes: %w", err)
	}
	events := l.UpdateHistory
	if events == nil {
		events = []domainlead.Event{}
	}
	history, err = json.Marshal(events)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling update_history: %w", err)
	}
	return attrs, history, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func attributesOrEmpty(attrs map[string]any) map[string]any {
	if attrs == nil {
		return map[string]any{}
	}
	return attrs
}
