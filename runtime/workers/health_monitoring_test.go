package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthMonitoring_Sample_Reads_Gauges(t *testing.T) {
	req := require.New(t)
	worker := NewHealthMonitoringWorker(slog.Default(), time.Minute,
		func() int { return 3 }, func() int { return 2 }, nil, func() int64 { return 5 })

	snapshot, err := worker.Sample()

	req.NoError(err)
	req.Equal(3, snapshot.Connections)
	req.Equal(2, snapshot.Joined)
	req.Equal(int64(5), snapshot.Dropped)
	req.GreaterOrEqual(snapshot.Cpu, 0.0)
}

func TestHealthMonitoring_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	worker := NewHealthMonitoringWorker(slog.Default(), 10*time.Millisecond, nil, nil, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req.NoError(worker.Run(ctx))
}
