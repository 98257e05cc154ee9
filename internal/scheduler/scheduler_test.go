package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/kompara/internal/affiliate/mocks"
	"github.com/donaldgifford/kompara/internal/metrics"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNew_RegistersCronEntry(t *testing.T) {
	t.Parallel()

	sched, err := New(mocks.NewMockTokenProvider(t), 30*time.Minute, quietLogger())
	require.NoError(t, err)

	assert.Len(t, sched.Entries(), 1)
	assert.NotZero(t, sched.warmEntryID)
}

func TestNew_InvalidInterval(t *testing.T) {
	t.Parallel()

	_, err := New(mocks.NewMockTokenProvider(t), -time.Minute, quietLogger())
	require.Error(t, err)
}

func TestScheduler_StartWarmsImmediately(t *testing.T) {
	t.Parallel()

	warmed := make(chan struct{})
	mt := mocks.NewMockTokenProvider(t)
	mt.EXPECT().
		Token(mock.Anything).
		RunAndReturn(func(context.Context) (string, error) {
			close(warmed)
			return "tok", nil
		}).
		Once()

	sched, err := New(mt, time.Hour, quietLogger())
	require.NoError(t, err)

	sched.Start()
	select {
	case <-warmed:
	case <-time.After(2 * time.Second):
		t.Fatal("token was not warmed on start")
	}
	<-sched.Stop().Done()

	assert.Greater(t, ptestutil.ToFloat64(metrics.SchedulerNextTokenWarmTimestamp), float64(0))
}

func TestScheduler_WarmToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tokenErr  error
		wantErr   bool
		wantLabel string
	}{
		{name: "success", wantLabel: "success"},
		{name: "failure", tokenErr: errors.New("provider down"), wantErr: true, wantLabel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mt := mocks.NewMockTokenProvider(t)
			mt.EXPECT().
				Token(mock.Anything).
				RunAndReturn(func(ctx context.Context) (string, error) {
					_, hasDeadline := ctx.Deadline()
					assert.True(t, hasDeadline, "warm runs carry a timeout")
					return "tok", tt.tokenErr
				}).
				Once()

			sched, err := New(mt, time.Hour, quietLogger())
			require.NoError(t, err)

			before := ptestutil.ToFloat64(metrics.TokenWarmRunsTotal.WithLabelValues(tt.wantLabel))
			err = sched.WarmToken(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			after := ptestutil.ToFloat64(metrics.TokenWarmRunsTotal.WithLabelValues(tt.wantLabel))
			assert.GreaterOrEqual(t, after-before, float64(1))
		})
	}
}
