package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
	domainlead "github.com/alanyang/lead-router/internal/domain/lead"
	"github.com/alanyang/lead-router/internal/metrics"
	portassignment "github.com/alanyang/lead-router/internal/port/assignment"
	"github.com/alanyang/lead-router/internal/port/clock"
	portidempotency "github.com/alanyang/lead-router/internal/port/idempotency"
	portlead "github.com/alanyang/lead-router/internal/port/lead"
	"github.com/alanyang/lead-router/internal/service/distributor"
	"github.com/alanyang/lead-router/internal/service/pool"
	"github.com/alanyang/lead-router/internal/service/validation"
)

const DefaultMaxItems = 500

const (
	msgLeadNotFound = "Lead not found"
	msgNoCapacity   = "No agents with available capacity"
)

const (
	opBulkUpdate = "bulk_update"
	opBulkAssign = "bulk_assign"
)

type UpdateInput struct {
	LeadIDs []string       `json:"lead_ids" validate:"required,min=1,dive,required"`
	Updates map[string]any `json:"updates" validate:"required"`
	Notes   string         `json:"notes"`

	IdempotencyKey string `json:"-"`
}

type AssignInput struct {
	LeadIDs  []string `json:"lead_ids" validate:"required,min=1,dive,required"`
	Strategy string   `json:"assignment_strategy" validate:"omitempty,oneof=round_robin capacity_based manual first_available"`
	Agents   []string `json:"agents"`
	Priority string   `json:"priority" validate:"omitempty,oneof=low normal high urgent"`

	IdempotencyKey string `json:"-"`
}

// PoolBuilder resolves the candidate agents of one batch.
type PoolBuilder interface {
	Available(ctx context.Context) ([]domainagent.WithCapacity, error)
	Manual(ctx context.Context, ids []string) ([]domainagent.WithCapacity, error)
}

// Service runs bulk updates and bulk assignments. Items are independent: one
// failing lead never stops the rest of the batch.
type Service struct {
	leads    portlead.Repository
	commits  portassignment.Committer
	pools    PoolBuilder
	oracle   pool.CapacityReader
	ops      portidempotency.Store
	clock    clock.Clock
	metrics  metrics.Recorder
	maxItems int
}

type Option func(*Service)

// WithMaxItems caps the number of lead ids per call.
func WithMaxItems(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithIdempotency enables Idempotency-Key replays backed by store.
func WithIdempotency(store portidempotency.Store) Option {
	return func(s *Service) { s.ops = store }
}

func NewService(leads portlead.Repository, commits portassignment.Committer, pools PoolBuilder, oracle pool.CapacityReader, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		leads:    leads,
		commits:  commits,
		pools:    pools,
		oracle:   oracle,
		clock:    clk,
		metrics:  metrics.NewNop(),
		maxItems: DefaultMaxItems,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Update applies the same field map to every lead in in.LeadIDs.
func (s *Service) Update(ctx context.Context, by string, in UpdateInput) (domainassignment.BulkUpdateResult, error) {
	if err := s.validateUpdate(in); err != nil {
		return domainassignment.BulkUpdateResult{}, err
	}

	var res domainassignment.BulkUpdateResult
	if ok, err := s.replay(ctx, in.IdempotencyKey, by, opBulkUpdate, &res); err != nil || ok {
		return res, err
	}

	res.Results = make([]domainassignment.ItemResult, 0, len(in.LeadIDs))
	for _, id := range in.LeadIDs {
		item := s.updateOne(ctx, by, id, in)
		if item.Status == domainassignment.ItemUpdated {
			res.UpdatedCount++
		} else {
			res.FailedCount++
		}
		s.metrics.RecordBulkItem(opBulkUpdate, string(item.Status))
		res.Results = append(res.Results, item)
	}

	slog.InfoContext(ctx, "bulk update finished", "by", by, "updated", res.UpdatedCount, "failed", res.FailedCount)
	s.remember(ctx, in.IdempotencyKey, by, opBulkUpdate, res)
	return res, nil
}

func (s *Service) updateOne(ctx context.Context, by, id string, in UpdateInput) domainassignment.ItemResult {
	now := s.clock.Now()
	patch := domainlead.Patch{Fields: in.Updates, LastActivity: now, BulkNote: in.Notes}
	names := patch.FieldNames()

	changed := make(map[string]any, len(names))
	for _, k := range names {
		changed[k] = in.Updates[k]
	}
	ev := domainlead.NewEvent(domainlead.ActionBulkUpdate, by, now, changed)
	ev.Notes = in.Notes

	if _, err := s.leads.ApplyPatch(ctx, id, patch, ev); err != nil {
		if errors.Is(err, domainlead.ErrNotFound) {
			return failed(id, msgLeadNotFound)
		}
		slog.ErrorContext(ctx, "bulk update item failed", "lead_id", id, "error", err)
		return failed(id, err.Error())
	}
	return domainassignment.ItemResult{LeadID: id, Status: domainassignment.ItemUpdated, UpdatedFields: names}
}

// Assign distributes in.LeadIDs over a pool built once for the batch. An
// empty pool fails the whole call; everything after that is per item.
func (s *Service) Assign(ctx context.Context, by string, in AssignInput) (domainassignment.BulkAssignResult, error) {
	if err := s.validateAssign(in); err != nil {
		return domainassignment.BulkAssignResult{}, err
	}
	kind, err := domainassignment.ParseStrategy(in.Strategy)
	if err != nil {
		return domainassignment.BulkAssignResult{}, err
	}

	var res domainassignment.BulkAssignResult
	if ok, err := s.replay(ctx, in.IdempotencyKey, by, opBulkAssign, &res); err != nil || ok {
		return res, err
	}

	var candidates []domainagent.WithCapacity
	if kind == domainassignment.StrategyManual {
		candidates, err = s.pools.Manual(ctx, in.Agents)
	} else {
		candidates, err = s.pools.Available(ctx)
	}
	if err != nil {
		return domainassignment.BulkAssignResult{}, fmt.Errorf("build agent pool: %w", err)
	}
	if len(candidates) == 0 {
		return domainassignment.BulkAssignResult{}, domainassignment.ErrNoAgentsAvailable
	}

	strategy, err := distributor.New(kind)
	if err != nil {
		return domainassignment.BulkAssignResult{}, err
	}
	r := pool.NewReservation(candidates)
	defer r.Close()

	var priority *domainlead.Priority
	if in.Priority != "" {
		p := domainlead.Priority(in.Priority)
		priority = &p
	}

	res.ReservationID = r.ID.String()
	res.Assignments = make([]domainassignment.ItemResult, 0, len(in.LeadIDs))
	for _, id := range in.LeadIDs {
		item := s.assignOne(ctx, by, id, kind, priority, strategy, r)
		if item.Status == domainassignment.ItemAssigned {
			res.Summary.SuccessCount++
		} else {
			res.Summary.FailedCount++
		}
		s.metrics.RecordBulkItem(opBulkAssign, string(item.Status))
		res.Assignments = append(res.Assignments, item)
	}
	res.Summary.Total = len(in.LeadIDs)
	res.Summary.Strategy = kind
	res.Summary.DistinctAgentsUsed = r.DistinctUsed()

	slog.InfoContext(ctx, "bulk assign finished",
		"by", by, "strategy", kind, "reservation_id", res.ReservationID,
		"assigned", res.Summary.SuccessCount, "failed", res.Summary.FailedCount)
	s.remember(ctx, in.IdempotencyKey, by, opBulkAssign, res)
	return res, nil
}

func (s *Service) assignOne(
	ctx context.Context,
	by, id string,
	kind domainassignment.Strategy,
	priority *domainlead.Priority,
	strategy distributor.Strategy,
	r *pool.Reservation,
) domainassignment.ItemResult {
	l, err := s.leads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainlead.ErrNotFound) {
			return failed(id, msgLeadNotFound)
		}
		return failed(id, err.Error())
	}

	for {
		picked, err := strategy.Select(r.Candidates())
		if errors.Is(err, distributor.ErrPoolExhausted) {
			return failed(id, msgNoCapacity)
		}
		if err != nil {
			return failed(id, err.Error())
		}

		// The in-batch counter can be stale against other writers.
		live, err := s.oracle.Capacity(ctx, picked.ID)
		if errors.Is(err, domainagent.ErrNotFound) {
			r.Drop(picked.ID)
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "bulk assign capacity read failed", "lead_id", id, "agent_id", picked.ID, "error", err)
			return failed(id, err.Error())
		}
		if err := r.Refresh(picked.ID, live); err != nil {
			return failed(id, err.Error())
		}
		if !live.HasRoom() {
			continue
		}

		now := s.clock.Now()
		c := domainassignment.Commit{
			LeadID:        id,
			ExpectedAgent: l.AssignedAgent,
			AgentID:       picked.ID,
			At:            now,
			Priority:      priority,
			Method:        string(kind),
			Event: domainlead.NewEvent(domainlead.ActionBulkAssigned, by, now, map[string]any{
				"agent":          picked.ID,
				"previous_agent": l.Owner(),
				"strategy":       string(kind),
				"reservation_id": r.ID.String(),
			}),
		}
		rc, err := s.commits.Commit(ctx, c)
		s.metrics.RecordAssignment(opBulkAssign, strings.ToLower(domainassignment.Code(err)))
		switch {
		case err == nil:
			if err := r.Reserve(picked.ID, domainagent.NewCapacity(rc.Load)); err != nil {
				slog.WarnContext(ctx, "reservation update failed", "agent_id", picked.ID, "error", err)
			}
			return domainassignment.ItemResult{LeadID: id, Status: domainassignment.ItemAssigned, AgentID: picked.ID}
		case errors.Is(err, domainassignment.ErrCapacityExceeded), errors.Is(err, domainagent.ErrNotFound):
			// Another writer took the last slot after our read.
			r.Drop(picked.ID)
			continue
		case errors.Is(err, domainlead.ErrNotFound):
			return failed(id, msgLeadNotFound)
		default:
			slog.WarnContext(ctx, "bulk assign item failed", "lead_id", id, "agent_id", picked.ID, "error", err)
			return failed(id, err.Error())
		}
	}
}

func (s *Service) validateUpdate(in UpdateInput) error {
	verr := &domainassignment.ValidationError{}
	if err := validation.Struct(in); err != nil {
		if !errors.As(err, &verr) {
			return err
		}
	}
	if len(in.LeadIDs) > s.maxItems {
		verr.Add("lead_ids", fmt.Sprintf("must have at most %d items", s.maxItems))
	}
	if in.Updates != nil && len(in.Updates) == 0 {
		verr.Add("updates", "must not be empty")
	}
	for k := range in.Updates {
		if k != "id" && domainlead.ReservedFields[k] {
			verr.Add("updates."+k, "cannot be changed by a bulk update")
		}
	}
	if len(verr.Issues) == 0 {
		// Dry run against a scratch lead to catch bad values up front.
		scratch := domainlead.Lead{}
		if err := (domainlead.Patch{Fields: in.Updates}).Apply(&scratch); err != nil {
			verr.Add("updates", err.Error())
		}
	}
	return verr.OrNil()
}

func (s *Service) validateAssign(in AssignInput) error {
	verr := &domainassignment.ValidationError{}
	if err := validation.Struct(in); err != nil {
		if !errors.As(err, &verr) {
			return err
		}
	}
	if len(in.LeadIDs) > s.maxItems {
		verr.Add("lead_ids", fmt.Sprintf("must have at most %d items", s.maxItems))
	}
	return verr.OrNil()
}

// replay loads a stored result for key into out. It reports whether one was
// found. A key recorded by another caller or for another operation type is a
// conflict rather than a replay.
func (s *Service) replay(ctx context.Context, key, by, opType string, out any) (bool, error) {
	if s.ops == nil || key == "" {
		return false, nil
	}
	rec, ok, err := s.ops.Check(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	if !ok {
		return false, nil
	}
	if !rec.Matches(by, opType) {
		slog.WarnContext(ctx, "idempotency key reused",
			"idempotency_key", key, "by", by, "operation", opType,
			"stored_by", rec.Caller, "stored_operation", rec.OpType)
		return false, fmt.Errorf("idempotency key %q belongs to another %s request: %w",
			key, rec.OpType, domainassignment.ErrConflict)
	}
	if err := json.Unmarshal(rec.Result, out); err != nil {
		return false, fmt.Errorf("decode stored result: %w", err)
	}
	slog.InfoContext(ctx, "bulk operation replayed", "idempotency_key", key)
	return true, nil
}

func (s *Service) remember(ctx context.Context, key, by, opType string, result any) {
	if s.ops == nil || key == "" {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(ctx, "encode bulk result", "error", err)
		return
	}
	if err := s.ops.Store(ctx, key, by, opType, data); err != nil {
		slog.ErrorContext(ctx, "store idempotency key", "idempotency_key", key, "error", err)
	}
}

func failed(id, msg string) domainassignment.ItemResult {
	return domainassignment.ItemResult{LeadID: id, Status: domainassignment.ItemFailed, Error: msg}
}
