package runtime

import (
	"challenge-chat/contract"
	"challenge-chat/domain/event"
	"challenge-chat/moderation"
	"challenge-chat/runtime/workers"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type OrchestratorConfig struct {
	SessionBufferSize   int
	PersistedBufferSize int
	MaxContentLength    int
	CensoredChar        rune
	SinkTimeout         time.Duration
	MetricInterval      time.Duration
	// CensoredFS overrides the embedded word lists.
	CensoredFS fs.FS
}

// Orchestrator builds the live chat (moderator, pipeline, hub) and runs the
// post-persist fan-out and the monitoring workers under the supervisor.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	config     OrchestratorConfig
	supervisor contract.ISupervisor
	registry   *Registry
	messages   contract.IMessageRepository
	roster     contract.IRoster
	persisted  chan event.DomainEvent
	sinks      []contract.EventSink

	hub    *Hub
	fanout *workers.EventFanout
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry *Registry,
	messages contract.IMessageRepository, roster contract.IRoster, config OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		log:        log,
		config:     config,
		supervisor: supervisor,
		registry:   registry,
		messages:   messages,
		roster:     roster,
		persisted:  make(chan event.DomainEvent, config.PersistedBufferSize),
	}
}

// Add registers post-persist sinks. Sinks added after Prepare are ignored.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinks = append(o.sinks, sinks...)
}

// Prepare loads the censored words and builds the hub. It is idempotent.
func (o *Orchestrator) Prepare() (*Hub, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hub != nil {
		return o.hub, nil
	}

	moderator, err := o.prepareModeration()
	if err != nil {
		return nil, err
	}
	pipeline := NewPipeline(o.messages, o.registry, moderator, o.persisted, o.config.MaxContentLength, o.log)
	o.hub = NewHub(o.registry, o.roster, pipeline, o.config.SessionBufferSize, o.log)
	o.fanout = workers.NewEventFanout(o.log, o.persisted, o.config.SinkTimeout, o.sinks...)
	return o.hub, nil
}

func (o *Orchestrator) prepareModeration() (*moderation.Moderator, error) {
	censored := o.config.CensoredFS
	if censored == nil {
		censored = moderation.CensoredFS
	}
	data, err := NewCensoredLoader(censored).LoadAll(moderation.CensoredDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load censored words: %w", err)
	}
	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]", len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))
	return moderation.NewModerator(data.Words, o.config.CensoredChar, o.log)
}

// Start prepares the hub if needed and blocks running the supervised workers.
func (o *Orchestrator) Start(ctx context.Context) error {
	hub, err := o.Prepare()
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.supervisor.Add(o.fanout)
	if o.config.MetricInterval > 0 {
		o.supervisor.Add(
			workers.NewHealthMonitoringWorker(o.log, o.config.MetricInterval, hub.Count, o.registry.SessionCount, o.fanout, hub.pipeline.Dropped),
			workers.NewChannelCapacityWorker(o.log, o.config.MetricInterval,
				workers.NamedChannel{Name: "persisted", Channel: o.persisted}),
		)
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop closes every live session then stops the workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.mu.Lock()
	hub := o.hub
	o.mu.Unlock()
	if hub != nil {
		hub.CloseAll()
	}
	o.supervisor.Stop()
}
