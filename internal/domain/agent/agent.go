package agent

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("agent not found")

const (
	DefaultMaxCapacity      = 25
	DefaultPerformanceScore = 75.0
)

type Availability string

const (
	AvailabilityActive   Availability = "active"
	AvailabilityInactive Availability = "inactive"
)

func (a Availability) Valid() bool {
	return a == AvailabilityActive || a == AvailabilityInactive
}

type Role string

const (
	RoleAgent   Role = "agent"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

type Agent struct {
	ID               string       `json:"id"`
	FirstName        string       `json:"first_name"`
	LastName         string       `json:"last_name"`
	Role             Role         `json:"role"`
	Availability     Availability `json:"availability"`
	MaxCapacity      *int         `json:"max_capacity,omitempty"`
	PerformanceScore *float64     `json:"performance_score,omitempty"`
	CurrentLoad      int          `json:"current_load"`
	LastSeen         *time.Time   `json:"last_seen,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

func New(id, firstName, lastName string) Agent {
	return Agent{
		ID:           id,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         RoleAgent,
		Availability: AvailabilityActive,
		CreatedAt:    time.Now().UTC(),
	}
}

// Ceiling returns max_capacity, or DefaultMaxCapacity when the record has none.
func (a *Agent) Ceiling() int { return a.CeilingOr(DefaultMaxCapacity) }

// CeilingOr is Ceiling with a deployment-configured default.
func (a *Agent) CeilingOr(def int) int {
	if a.MaxCapacity == nil {
		return def
	}
	return *a.MaxCapacity
}

func (a *Agent) Score() float64 {
	if a.PerformanceScore == nil {
		return DefaultPerformanceScore
	}
	return *a.PerformanceScore
}

func (a *Agent) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func (a *Agent) IsActive() bool {
	return a.Availability == AvailabilityActive
}

type ListFilters struct {
	Role         *Role
	Availability *Availability
}

// CapacityUpdate is a partial administrative update. Nil fields are left alone.
type CapacityUpdate struct {
	MaxCapacity  *int
	Availability *Availability
}
