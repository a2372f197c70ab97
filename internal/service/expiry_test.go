package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flavor-entertainers/booking-platform/internal/logging"
)

type countingExpirer struct {
	runs atomic.Int32
	err  error
}

func (c *countingExpirer) ExpireStale(context.Context) (int, error) {
	c.runs.Add(1)
	return 1, c.err
}

func TestExpirySchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewExpiryScheduler("every five minutes", &countingExpirer{}, logging.Discard())
	assert.Error(t, err)
}

func TestExpirySchedulerRunsJob(t *testing.T) {
	job := &countingExpirer{}
	s, err := NewExpiryScheduler("@every 1s", job, logging.Discard())
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestExpirySchedulerRunLogsFailures(t *testing.T) {
	job := &countingExpirer{err: errBoom}
	s, err := NewExpiryScheduler("@every 1h", job, logging.Discard())
	require.NoError(t, err)
	s.run()
	assert.Equal(t, int32(1), job.runs.Load())
}
