package agent

import "math"

// Load is the raw counter pair an agent's capacity is derived from.
type Load struct {
	Current int
	Max     int
}

// Capacity is a derived, never persisted, snapshot of an agent's load.
// AvailableSlots is not clamped at zero; callers must check the sign.
type Capacity struct {
	Current        int `json:"current"`
	Max            int `json:"max"`
	Percentage     int `json:"percentage"`
	AvailableSlots int `json:"available_slots"`
}

func NewCapacity(l Load) Capacity {
	pct := 100
	if l.Max > 0 {
		pct = int(math.Round(float64(l.Current) / float64(l.Max) * 100))
	}
	return Capacity{
		Current:        l.Current,
		Max:            l.Max,
		Percentage:     pct,
		AvailableSlots: l.Max - l.Current,
	}
}

// DefaultCapacity is what a lenient capacity read reports when the store fails.
func DefaultCapacity() Capacity {
	return Capacity{
		Current:        0,
		Max:            DefaultMaxCapacity,
		Percentage:     0,
		AvailableSlots: DefaultMaxCapacity,
	}
}

func (c Capacity) HasRoom() bool { return c.AvailableSlots > 0 }

// WithCapacity is an agent annotated with a fresh capacity snapshot.
type WithCapacity struct {
	Agent
	Capacity Capacity `json:"capacity"`
}

// Utilization rounds used/total to a whole percentage, 0 when total is 0.
func Utilization(used, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(used) / float64(total) * 100))
}
