package shardbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/randalmurphal/shardbus/pkg/shardbus/config"
	"github.com/randalmurphal/shardbus/pkg/shardbus/deadletter"
	"github.com/randalmurphal/shardbus/pkg/shardbus/observability"
)

// Config configures engine behavior.
type Config struct {
	// ShardCount is the number of shard queues, each drained by its
	// own worker goroutine. Fixed for the engine's lifetime.
	// Default: 5
	ShardCount int

	// TimerInterval is the period between synthetic timer events.
	// Default: 1s
	TimerInterval time.Duration

	// PollInterval bounds how long an idle worker waits between stop
	// checks. Default: 1s
	PollInterval time.Duration

	// Logger receives structured engine logs. Nil disables logging.
	Logger *slog.Logger

	// Metrics records engine metrics.
	// Default: observability.NoopMetrics{}
	Metrics observability.MetricsRecorder

	// Spans manages dispatch trace spans.
	// Default: observability.NoopSpanManager{}
	Spans observability.SpanManager

	// DeadLetters stores events whose handlers faulted (optional).
	// Append failures are logged and never stall dispatch.
	DeadLetters deadletter.Store

	// Faults tracks repeated handler failures per event type (optional).
	Faults *FaultTracker

	// OnFault is called for every handler fault (optional). It runs on
	// the worker goroutine, so it should return quickly.
	OnFault func(*HandlerFault)
}

// DefaultConfig provides reasonable defaults.
var DefaultConfig = Config{
	ShardCount:    5,
	TimerInterval: 1 * time.Second,
	PollInterval:  1 * time.Second,
}

// Engine routes published events to per-type and general handlers
// across a fixed set of shard queues. Events of one type always land
// on the same shard, so they are dispatched in publish order; events
// of different types may be dispatched concurrently.
type Engine struct {
	cfg      Config
	registry *Registry
	queues   []*shardQueue

	mu      sync.Mutex // guards lifecycle transitions
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	uptime  func() float64

	published  atomic.Uint64
	dispatched atomic.Uint64
	faulted    atomic.Uint64
}

// New creates an engine with the given configuration. Zero values fall
// back to DefaultConfig; negative values are rejected with a
// *ConfigError naming the field.
func New(cfg Config) (*Engine, error) {
	if cfg.ShardCount == 0 {
		cfg.ShardCount = DefaultConfig.ShardCount
	}
	if cfg.ShardCount < 1 {
		return nil, &ConfigError{Field: "ShardCount", Message: "must be at least 1"}
	}
	if cfg.TimerInterval == 0 {
		cfg.TimerInterval = DefaultConfig.TimerInterval
	}
	if cfg.TimerInterval < 0 {
		return nil, &ConfigError{Field: "TimerInterval", Message: "must be positive"}
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultConfig.PollInterval
	}
	if cfg.PollInterval < 0 {
		return nil, &ConfigError{Field: "PollInterval", Message: "must be positive"}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	if cfg.Spans == nil {
		cfg.Spans = observability.NoopSpanManager{}
	}

	queues := make([]*shardQueue, cfg.ShardCount)
	for i := range queues {
		queues[i] = newShardQueue()
	}

	return &Engine{
		cfg:      cfg,
		registry: NewRegistry(),
		queues:   queues,
	}, nil
}

// Start launches one worker per shard plus the timer goroutine.
// Returns ErrAlreadyRunning if the engine is already started.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		return ErrAlreadyRunning
	}

	// Fresh channel per run so a restart does not observe the close
	// from the previous Stop.
	e.stopCh = make(chan struct{})
	e.uptime = observability.TimedOperation()
	e.running.Store(true)

	for i := range e.queues {
		e.wg.Add(1)
		go e.runWorker(i, e.stopCh)
	}
	e.wg.Add(1)
	go e.runTimer(e.stopCh)

	observability.LogEngineStart(e.cfg.Logger, len(e.queues), e.cfg.TimerInterval)
	return nil
}

// Stop signals the workers and the timer, then waits for them to exit.
// Stopping a stopped engine is a no-op. Queued events are retained and
// delivered if the engine is started again.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.Load() {
		return
	}

	close(e.stopCh)
	e.wg.Wait()
	e.running.Store(false)

	observability.LogEngineStop(e.cfg.Logger, e.uptime())
}

// Running reports whether the engine is started.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Publish routes evt to its shard queue. It never blocks and is valid
// in any lifecycle state; events published while stopped stay queued
// until the engine starts.
func (e *Engine) Publish(evt Event) {
	shard := e.shardFor(evt.Type)
	e.queues[shard].push(evt)
	e.published.Add(1)
	e.cfg.Metrics.RecordPublish(context.Background(), evt.Type, shard)
}

// shardFor returns the queue index for an event type. The mapping is
// stable, so all events of one type share a shard and keep their
// publish order.
func (e *Engine) shardFor(eventType string) int {
	return int(xxhash.Sum64String(eventType) % uint64(len(e.queues)))
}

// Register subscribes h to events of eventType. Valid in any state.
func (e *Engine) Register(eventType string, h *Handler) {
	e.registry.Register(eventType, h)
}

// Unregister removes h from eventType. Valid in any state.
func (e *Engine) Unregister(eventType string, h *Handler) {
	e.registry.Unregister(eventType, h)
}

// RegisterAll subscribes h to every event type.
func (e *Engine) RegisterAll(h *Handler) {
	e.registry.RegisterAll(h)
}

// UnregisterAll removes h from the general list.
func (e *Engine) UnregisterAll(h *Handler) {
	e.registry.UnregisterAll(h)
}

// Registry exposes the handler registry for introspection.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Stats is a point-in-time snapshot of engine activity.
type Stats struct {
	// Running is the lifecycle state at snapshot time.
	Running bool
	// Published counts events accepted by Publish.
	Published uint64
	// Dispatched counts events handed to the registry.
	Dispatched uint64
	// Faults counts individual handler faults.
	Faults uint64
	// QueueDepths holds the pending event count per shard.
	QueueDepths []int
}

// Stats returns a snapshot of counters and per-shard queue depths.
func (e *Engine) Stats() Stats {
	depths := make([]int, len(e.queues))
	for i, q := range e.queues {
		depths[i] = q.len()
	}
	return Stats{
		Running:     e.running.Load(),
		Published:   e.published.Load(),
		Dispatched:  e.dispatched.Load(),
		Faults:      e.faulted.Load(),
		QueueDepths: depths,
	}
}

// ConfigFromFile builds an engine Config from a YAML or JSON settings
// file. A non-empty dead_letter_path opens a SQLite dead letter store;
// a positive fault_threshold creates a FaultTracker. The caller owns
// cfg.DeadLetters and should Close it when the engine is done.
func ConfigFromFile(path string) (Config, error) {
	fileCfg, err := config.FromFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ShardCount:    fileCfg.ShardCount,
		TimerInterval: fileCfg.TimerInterval.Std(),
		PollInterval:  fileCfg.PollInterval.Std(),
	}

	if fileCfg.DeadLetterPath != "" {
		store, err := deadletter.NewSQLiteStore(fileCfg.DeadLetterPath)
		if err != nil {
			return Config{}, err
		}
		cfg.DeadLetters = store
	}

	if fileCfg.FaultThreshold > 0 {
		cfg.Faults = NewFaultTracker(FaultTrackerConfig{
			Threshold: fileCfg.FaultThreshold,
			Window:    fileCfg.FaultWindow.Std(),
		})
	}

	return cfg, nil
}
