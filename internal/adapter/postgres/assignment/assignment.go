package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgdb "github.com/alanyang/lead-router/internal/adapter/postgres"
	pglead "github.com/alanyang/lead-router/internal/adapter/postgres/lead"
	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
	portassignment "github.com/alanyang/lead-router/internal/port/assignment"
)

var _ portassignment.Committer = (*Committer)(nil)

// Committer writes assignments in one transaction: lead row lock, owner CAS,
// bounded load increment on the target, decrement on the previous owner and
// the history append.
type Committer struct {
	pool       *pgxpool.Pool
	defaultMax int
}

func New(pool *pgxpool.Pool, defaultMax int) *Committer {
	if defaultMax <= 0 {
		defaultMax = domainagent.DefaultMaxCapacity
	}
	return &Committer{pool: pool, defaultMax: defaultMax}
}

func (r *Committer) Commit(ctx context.Context, c domainassignment.Commit) (domainassignment.Receipt, error) {
	var receipt domainassignment.Receipt
	err := pgdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		l, err := pglead.Scan(tx.QueryRow(ctx, `SELECT `+pglead.Columns+` FROM leads WHERE id = $1 FOR UPDATE`, c.LeadID))
		if err != nil {
			return err
		}
		if !c.Expects(l) {
			return domainassignment.ErrConflict
		}

		var load domainagent.Load
		if l.IsAssignedTo(c.AgentID) {
			load, err = r.readLoad(ctx, tx, c.AgentID)
			if err != nil {
				return err
			}
		} else {
			if err := lockAgents(ctx, tx, c.AgentID, l.AssignedAgent); err != nil {
				return err
			}
			load, err = r.claimSlot(ctx, tx, c.AgentID)
			if err != nil {
				return err
			}
			if l.AssignedAgent != nil {
				if _, err := tx.Exec(ctx,
					`UPDATE agents SET current_load = GREATEST(current_load - 1, 0) WHERE id = $1`,
					*l.AssignedAgent,
				); err != nil {
					return fmt.Errorf("releasing slot on %s: %w", *l.AssignedAgent, err)
				}
			}
		}

		c.Apply(&l)
		if err := pglead.Write(ctx, tx, l, c.Event); err != nil {
			return err
		}
		receipt = domainassignment.Receipt{Lead: l, Load: load}
		return nil
	})
	if err != nil {
		return domainassignment.Receipt{}, err
	}
	return receipt, nil
}

// lockAgents takes the row locks of the target and the previous owner in id
// order, so two reassignments crossing the same pair of agents queue instead
// of deadlocking.
func lockAgents(ctx context.Context, tx pgx.Tx, target string, previous *string) error {
	ids := []string{target}
	if previous != nil && *previous != target {
		ids = append(ids, *previous)
	}
	rows, err := tx.Query(ctx, `SELECT id FROM agents WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return fmt.Errorf("locking agents %v: %w", ids, err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("locking agents %v: %w", ids, err)
	}
	return nil
}

// claimSlot increments current_load only while it stays under the ceiling.
func (r *Committer) claimSlot(ctx context.Context, tx pgx.Tx, agentID string) (domainagent.Load, error) {
	query := `
		UPDATE agents SET current_load = current_load + 1
		WHERE id = $1 AND current_load + 1 <= COALESCE(max_capacity, $2)
		RETURNING current_load, COALESCE(max_capacity, $2)`

	var load domainagent.Load
	err := tx.QueryRow(ctx, query, agentID, r.defaultMax).Scan(&load.Current, &load.Max)
	if err == nil {
		return load, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domainagent.Load{}, fmt.Errorf("claiming slot on %s: %w", agentID, err)
	}

	// No row: either the agent is missing or it is full.
	load, err = r.readLoad(ctx, tx, agentID)
	if err != nil {
		return domainagent.Load{}, err
	}
	return domainagent.Load{}, &domainassignment.CapacityExceededError{
		AgentID:  agentID,
		Capacity: domainagent.NewCapacity(load),
	}
}

func (r *Committer) readLoad(ctx context.Context, tx pgx.Tx, agentID string) (domainagent.Load, error) {
	var load domainagent.Load
	err := tx.QueryRow(ctx,
		`SELECT current_load, COALESCE(max_capacity, $2) FROM agents WHERE id = $1`,
		agentID, r.defaultMax,
	).Scan(&load.Current, &load.Max)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainagent.Load{}, domainagent.ErrNotFound
		}
		return domainagent.Load{}, fmt.Errorf("reading load of %s: %w", agentID, err)
	}
	return load, nil
}
