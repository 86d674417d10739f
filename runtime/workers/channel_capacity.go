package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"
)

// saturationRatio is the fill ratio above which a channel is reported as saturated.
const saturationRatio = 0.8

type NamedChannel struct {
	Name    string
	Channel any
}

type ChannelUsage struct {
	Name     string
	Length   int
	Capacity int
}

func (u ChannelUsage) Saturated() bool {
	return u.Capacity > 0 && float64(u.Length) >= saturationRatio*float64(u.Capacity)
}

// ChannelCapacityWorker periodically samples the length of internal queues.
// Reading len and cap of a channel never blocks its users.
// A saturated post-persist queue means notifications are about to be dropped.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, metricInterval time.Duration, channels ...NamedChannel) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{log: log, channels: channels, metricInterval: metricInterval}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel capacity sampling")
			return nil
		case <-ticker.C:
			for _, usage := range w.Sample() {
				if usage.Saturated() {
					w.log.Warn("Channel close to capacity", "name", usage.Name, "length", usage.Length, "capacity", usage.Capacity)
					continue
				}
				w.log.Debug("Channel usage", "name", usage.Name, "length", usage.Length, "capacity", usage.Capacity)
			}
		}
	}
}

func (w *ChannelCapacityWorker) Sample() []ChannelUsage {
	usages := make([]ChannelUsage, 0, len(w.channels))
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		usages = append(usages, ChannelUsage{Name: nc.Name, Length: v.Len(), Capacity: v.Cap()})
	}
	return usages
}
