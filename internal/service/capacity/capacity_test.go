package capacity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	"github.com/alanyang/lead-router/internal/mocks"
	"github.com/alanyang/lead-router/internal/service/capacity"
)

type countingRecorder struct{ failOpen int }

func (r *countingRecorder) RecordAssignment(_, _ string) {}
func (r *countingRecorder) RecordCapacityFailOpen()      { r.failOpen++ }
func (r *countingRecorder) RecordBulkItem(_, _ string)   {}

func TestCapacity(t *testing.T) {
	storeDown := errors.New("connection refused")

	tests := []struct {
		name         string
		policy       capacity.Policy
		load         domainagent.Load
		readErr      error
		want         domainagent.Capacity
		wantErr      error
		wantFailOpen int
	}{
		{
			name:   "full agent",
			policy: capacity.PolicyStrict,
			load:   domainagent.Load{Current: 2, Max: 2},
			want:   domainagent.Capacity{Current: 2, Max: 2, Percentage: 100, AvailableSlots: 0},
		},
		{
			name:   "rounds percentage",
			policy: capacity.PolicyLenient,
			load:   domainagent.Load{Current: 1, Max: 3},
			want:   domainagent.Capacity{Current: 1, Max: 3, Percentage: 33, AvailableSlots: 2},
		},
		{
			name:   "zero ceiling reports 100 percent",
			policy: capacity.PolicyLenient,
			load:   domainagent.Load{Current: 0, Max: 0},
			want:   domainagent.Capacity{Current: 0, Max: 0, Percentage: 100, AvailableSlots: 0},
		},
		{
			name:         "lenient fails open",
			policy:       capacity.PolicyLenient,
			readErr:      storeDown,
			want:         domainagent.Capacity{Current: 0, Max: 25, Percentage: 0, AvailableSlots: 25},
			wantFailOpen: 1,
		},
		{
			name:    "strict propagates",
			policy:  capacity.PolicyStrict,
			readErr: storeDown,
			wantErr: storeDown,
		},
		{
			name:    "missing agent is not a read failure",
			policy:  capacity.PolicyLenient,
			readErr: domainagent.ErrNotFound,
			wantErr: domainagent.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			loads := mocks.NewMockLoadReader(ctrl)
			loads.EXPECT().GetLoad(gomock.Any(), "a@x").Return(tt.load, tt.readErr)

			rec := &countingRecorder{}
			o := capacity.NewOracle(loads, tt.policy, rec)

			got, err := o.Capacity(context.Background(), "a@x")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, rec.failOpen)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFailOpen, rec.failOpen)
		})
	}
}

func TestRecount(t *testing.T) {
	ctrl := gomock.NewController(t)
	loads := mocks.NewMockLoadReader(ctrl)
	loads.EXPECT().Recount(gomock.Any(), "a@x").Return(domainagent.Load{Current: 3, Max: 4}, nil)

	o := capacity.NewOracle(loads, capacity.PolicyStrict, nil)
	got, err := o.Recount(context.Background(), "a@x")
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableSlots)
	assert.Equal(t, 75, got.Percentage)
}

func TestParsePolicy(t *testing.T) {
	p, err := capacity.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, capacity.PolicyLenient, p)

	p, err = capacity.ParsePolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, capacity.PolicyStrict, p)

	_, err = capacity.ParsePolicy("yolo")
	assert.Error(t, err)
}
