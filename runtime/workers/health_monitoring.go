package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Gauge reports a live count, such as open connections.
type Gauge func() int

// Counter reports a monotonic total, such as dropped events.
type Counter func() int64

// Snapshot is one health sample of the chat server.
type Snapshot struct {
	Cpu         float64
	Ram         float32
	Connections int
	Joined      int
	Fanned      int64
	Dropped     int64
}

// HealthMonitoringWorker periodically logs process CPU/RAM and the live session counts
// along with the events the post-persist sinks never received.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	connections    Gauge
	joined         Gauge
	fanout         *EventFanout
	dropped        Counter
	proc           *process.Process
}

func NewHealthMonitoringWorker(log *slog.Logger, metricInterval time.Duration,
	connections, joined Gauge, fanout *EventFanout, dropped Counter) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		metricInterval: metricInterval,
		connections:    connections,
		joined:         joined,
		fanout:         fanout,
		dropped:        dropped,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	if w.proc == nil {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return err
		}
		w.proc = p
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			snapshot, err := w.Sample()
			if err != nil {
				w.log.Error("Error while sampling process", "err", err)
				continue
			}
			w.log.Info("Health",
				"cpu_percent", snapshot.Cpu,
				"ram_percent", snapshot.Ram,
				"connections", snapshot.Connections,
				"joined_sessions", snapshot.Joined,
				"fanned_events", snapshot.Fanned,
				"dropped_events", snapshot.Dropped)
		}
	}
}

// Sample reads the current process usage and counters.
func (w *HealthMonitoringWorker) Sample() (Snapshot, error) {
	if w.proc == nil {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return Snapshot{}, err
		}
		w.proc = p
	}
	cpu, err := w.proc.CPUPercent()
	if err != nil {
		return Snapshot{}, err
	}
	ram, err := w.proc.MemoryPercent()
	if err != nil {
		return Snapshot{}, err
	}
	snapshot := Snapshot{Cpu: cpu, Ram: ram}
	if w.connections != nil {
		snapshot.Connections = w.connections()
	}
	if w.joined != nil {
		snapshot.Joined = w.joined()
	}
	if w.fanout != nil {
		snapshot.Fanned = w.fanout.Processed()
	}
	if w.dropped != nil {
		snapshot.Dropped = w.dropped()
	}
	return snapshot, nil
}
