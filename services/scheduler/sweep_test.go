package schedulersvc

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/tests"
)

type sweeperMock struct {
	calls int32
}

func (m *sweeperMock) Sweep(ctx context.Context) (certificate.SweepReport, error) {
	atomic.AddInt32(&m.calls, 1)
	return certificate.SweepReport{Checked: 2, Issued: 1}, nil
}

func TestNewScheduler(t *testing.T) {
	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger(t, conf)

	tests := []struct {
		name     string
		spec     string
		wantJobs int
		wantErr  bool
	}{
		{name: "disabled", spec: "", wantJobs: 0},
		{name: "hourly", spec: "@hourly", wantJobs: 1},
		{name: "cron spec", spec: "*/15 * * * *", wantJobs: 1},
		{name: "invalid spec", spec: "every now and then", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(tt.spec, &sweeperMock{}, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantJobs, s.Jobs())
		})
	}
}

func TestScheduler_runSweep(t *testing.T) {
	conf := testutil.NewConfig(t)
	sweeper := &sweeperMock{}
	s, err := NewScheduler("@daily", sweeper, testutil.NewLogger(t, conf))
	require.NoError(t, err)

	s.runSweep()
	assert.EqualValues(t, 1, atomic.LoadInt32(&sweeper.calls))

	s.Start()
	assert.NoError(t, s.Stop(context.Background()))
}
