package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	portagent "github.com/alanyang/lead-router/internal/port/agent"
)

var (
	_ portagent.Directory  = (*Repository)(nil)
	_ portagent.LoadReader = (*Repository)(nil)
)

const columns = `id, first_name, last_name, role, availability, max_capacity,
	performance_score, current_load, last_seen, created_at`

type Repository struct {
	pool       *pgxpool.Pool
	defaultMax int
}

// New returns the agent repository. defaultMax is the ceiling used for agents
// with no max_capacity.
// New returns a repository that applies defaultMax to agents without their own
// ceiling. A non-positive defaultMax falls back to domainagent.DefaultMaxCapacity,
// matching the memory store.
func New(pool *pgxpool.Pool, defaultMax int) *Repository {
	if defaultMax <= 0 {
		defaultMax = domainagent.DefaultMaxCapacity
	}
	return &Repository{pool: pool, defaultMax: defaultMax}
}

func (r *Repository) Create(ctx context.Context, a domainagent.Agent) (domainagent.Agent, error) {
	query := `
		INSERT INTO agents (id, first_name, last_name, role, availability, max_capacity,
			performance_score, current_load, last_seen, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9)
		RETURNING ` + columns

	return scan(r.pool.QueryRow(ctx, query,
		a.ID, a.FirstName, a.LastName, string(a.Role), string(a.Availability),
		a.MaxCapacity, a.PerformanceScore, a.LastSeen, a.CreatedAt,
	))
}

func (r *Repository) GetByID(ctx context.Context, id string) (domainagent.Agent, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM agents WHERE id = $1`, id))
}

func (r *Repository) List(ctx context.Context, filters domainagent.ListFilters) ([]domainagent.Agent, error) {
	query := `SELECT ` + columns + ` FROM agents WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filters.Role != nil {
		query += fmt.Sprintf(" AND role = $%d", argIdx)
		args = append(args, string(*filters.Role))
		argIdx++
	}
	if filters.Availability != nil {
		query += fmt.Sprintf(" AND availability = $%d", argIdx)
		args = append(args, string(*filters.Availability))
		argIdx++
	}

	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var agents []domainagent.Agent
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateCapacity sets the given fields and always stamps last_seen.
func (r *Repository) UpdateCapacity(ctx context.Context, id string, upd domainagent.CapacityUpdate, lastSeen time.Time) (domainagent.Agent, error) {
	var availability *string
	if upd.Availability != nil {
		v := string(*upd.Availability)
		availability = &v
	}

	query := `
		UPDATE agents SET
			max_capacity = COALESCE($2, max_capacity),
			availability = COALESCE($3, availability),
			last_seen = $4
		WHERE id = $1
		RETURNING ` + columns

	return scan(r.pool.QueryRow(ctx, query, id, upd.MaxCapacity, availability, lastSeen.UTC()))
}

func (r *Repository) GetLoad(ctx context.Context, agentID string) (domainagent.Load, error) {
	query := `SELECT current_load, COALESCE(max_capacity, $2) FROM agents WHERE id = $1`

	var load domainagent.Load
	if err := r.pool.QueryRow(ctx, query, agentID, r.defaultMax).Scan(&load.Current, &load.Max); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainagent.Load{}, domainagent.ErrNotFound
		}
		return domainagent.Load{}, fmt.Errorf("reading agent load: %w", err)
	}
	return load, nil
}

// Recount replaces current_load with the number of leads the agent owns.
func (r *Repository) Recount(ctx context.Context, agentID string) (domainagent.Load, error) {
	query := `
		UPDATE agents SET current_load = (SELECT COUNT(*) FROM leads WHERE assigned_agent = $1)
		WHERE id = $1
		RETURNING current_load, COALESCE(max_capacity, $2)`

	var load domainagent.Load
	if err := r.pool.QueryRow(ctx, query, agentID, r.defaultMax).Scan(&load.Current, &load.Max); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainagent.Load{}, domainagent.ErrNotFound
		}
		return domainagent.Load{}, fmt.Errorf("recounting agent load: %w", err)
	}
	return load, nil
}

func scan(row pgx.Row) (domainagent.Agent, error) {
	var a domainagent.Agent
	var role, availability string

	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &role, &availability, &a.MaxCapacity,
		&a.PerformanceScore, &a.CurrentLoad, &a.LastSeen, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainagent.Agent{}, domainagent.ErrNotFound
		}
		return domainagent.Agent{}, fmt.Errorf("scanning agent: %w", err)
	}
	a.Role = domainagent.Role(role)
	a.Availability = domainagent.Availability(availability)
	return a, nil
}
