// Package orchestrator owns the engine's top level: goals, the task queue,
// the concurrency budget for running tasks, and the command surface backing
// both the HTTP API and the interactive loop.
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"mcp-agent/internal/config"
	"mcp-agent/internal/dispatcher"
	"mcp-agent/internal/planner"
	"mcp-agent/internal/provider"
	"mcp-agent/internal/registry"
	"mcp-agent/pkg/logger"
	"mcp-agent/pkg/memory/ring"
	"mcp-agent/pkg/models"
)

// Orchestrator is the single owner of goals, queue and memory. It is passed
// explicitly to the API and REPL rather than living in a package global, so
// several independent instances can coexist in one process.
type Orchestrator struct {
	cfg      config.Agent
	registry *registry.Registry
	planner  *planner.Planner
	disp     *dispatcher.Dispatcher
	clients  map[string]*provider.Client
	memory   *ring.Store

	taskSlots *semaphore.Weighted
	nextID    atomic.Int64
	learned   atomic.Int64
	queued    atomic.Int64
	running   atomic.Bool

	mu      sync.Mutex
	goals   []models.Goal
	settled map[int64]*models.Task
	methods map[string][]string

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New wires an Orchestrator from already-built parts. The dispatcher must
// share the clients passed here.
func New(cfg config.Agent, reg *registry.Registry, pl *planner.Planner, disp *dispatcher.Dispatcher, clients map[string]*provider.Client, mem *ring.Store) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:       cfg,
		registry:  reg,
		planner:   pl,
		disp:      disp,
		clients:   clients,
		memory:    mem,
		taskSlots: semaphore.NewWeighted(int64(cfg.MaxConcurrentTasks)),
		settled:   make(map[int64]*models.Task),
		methods:   make(map[string][]string),
		rootCtx:   ctx,
		cancel:    cancel,
	}
	o.running.Store(true)
	return o
}

// FromConfig builds the full engine: registry, one client per enabled
// provider, a shared call log, dispatcher and memory store. The only error
// class here is fatal configuration.
func FromConfig(cfg *config.Config) (*Orchestrator, error) {
	reg, err := registry.New(cfg.Providers)
	if err != nil {
		return nil, err
	}

	calls := provider.NewCallLog()
	backoff := provider.Backoff{Base: cfg.Retry.BaseDelay, Multiplier: cfg.Retry.Multiplier}

	clients := make(map[string]*provider.Client)
	callers := make(map[string]dispatcher.Caller)
	for _, name := range reg.Enabled() {
		p, _ := reg.Get(name)
		c := provider.NewClient(provider.Options{
			Name:       p.Name,
			Endpoint:   p.Endpoint.String(),
			Timeout:    p.Timeout,
			MaxRetries: p.MaxRetries,
			Backoff:    backoff,
			Calls:      calls,
		})
		clients[name] = c
		callers[name] = c
	}

	disp := dispatcher.New(callers, int64(cfg.Agent.MaxConcurrentCalls), cfg.Agent.TaskTimeout)
	mem := ring.New(cfg.Agent.MemorySize)
	return New(cfg.Agent, reg, planner.New(reg), disp, clients, mem), nil
}

// Start probes every enabled provider for health and advertised methods.
// Both are advisory: a down provider is logged, never excluded from dispatch.
func (o *Orchestrator) Start(ctx context.Context) {
	for name, client := range o.clients {
		health := client.Health(ctx)
		methods, err := client.ListMethods(ctx)
		if err != nil {
			log.Warn().Str(logger.ProviderField, name).Err(err).Msg("could not list methods")
		} else {
			o.mu.Lock()
			o.methods[name] = methods
			o.mu.Unlock()
		}
		log.Info().
			Str(logger.ComponentField, "orchestrator").
			Str(logger.ProviderField, name).
			Str("health", string(health)).
			Int("methods", len(methods)).
			Msg("provider connected")
	}
}

// AddGoal appends a goal. Insertion order is the planning tie-break order.
func (o *Orchestrator) AddGoal(description string) models.Goal {
	goal := models.Goal{
		Description: description,
		AddedAt:     time.Now(),
	}
	o.mu.Lock()
	goal.Priority = len(o.goals) + 1
	o.goals = append(o.goals, goal)
	o.mu.Unlock()

	log.Info().Str("goal", description).Msg("goal added")
	return goal
}

// Goals returns a copy of the goal list in insertion order.
func (o *Orchestrator) Goals() []models.Goal {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Goal, len(o.goals))
	copy(out, o.goals)
	return out
}

// Execute plans and runs one instruction, blocking until the task settles.
// It always returns a task snapshot, never an error: provider failures are
// carried inside the task's per-operation results.
func (o *Orchestrator) Execute(ctx context.Context, instruction string) *models.Task {
	task := models.NewTask(o.nextID.Add(1), instruction)
	o.wg.Add(1)
	defer o.wg.Done()

	// FIFO admission: semaphore waiters are served in arrival order.
	o.queued.Add(1)
	if err := o.taskSlots.Acquire(ctx, 1); err != nil {
		o.queued.Add(-1)
		return o.settleUnrun(task, "cancelled before dispatch: "+err.Error())
	}
	o.queued.Add(-1)
	defer o.taskSlots.Release(1)

	plan := o.planner.Plan(instruction, o.Goals())
	if !plan.Degenerate && o.cfg.LearningEnabled {
		o.learned.Add(1)
	}
	task.Operations = plan.Operations
	o.warnUnadvertised(task)

	// Shutdown cancels in-flight tasks through the root context.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	stop := context.AfterFunc(o.rootCtx, cancelRun)
	defer stop()

	o.disp.Execute(runCtx, task)
	o.recordSettled(task)
	return task
}

// Task returns a settled task by id. Running tasks are not introspectable.
func (o *Orchestrator) Task(id int64) (*models.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.settled[id]
	return t, ok
}

// ProviderHealth probes every enabled provider. Advisory only.
func (o *Orchestrator) ProviderHealth(ctx context.Context) map[string]models.Health {
	out := make(map[string]models.Health, len(o.clients))
	for name, client := range o.clients {
		out[name] = client.Health(ctx)
	}
	return out
}

// Recent returns up to n memory entries, most recent first.
func (o *Orchestrator) Recent(n int) []models.MemoryEntry {
	return o.memory.Recent(n)
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	Running         bool          `json:"running"`
	Goals           []models.Goal `json:"goals"`
	QueueLength     int           `json:"queue_length"`
	Providers       []string      `json:"providers"`
	MemorySize      int           `json:"memory_size"`
	MemoryCapacity  int           `json:"memory_capacity"`
	LearnedPatterns int64         `json:"learned_patterns"`
}

// Status reports the current snapshot.
func (o *Orchestrator) Status() Status {
	return Status{
		Running:         o.running.Load(),
		Goals:           o.Goals(),
		QueueLength:     int(o.queued.Load()),
		Providers:       o.registry.Enabled(),
		MemorySize:      o.memory.Size(),
		MemoryCapacity:  o.memory.Capacity(),
		LearnedPatterns: o.learned.Load(),
	}
}

// Shutdown cancels in-flight tasks, waits for them to settle (bounded by
// ctx), and closes provider connections. Best-effort: requests already sent
// may still complete server-side; their results are discarded.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.running.Store(false)
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	for _, client := range o.clients {
		client.Close()
	}
	log.Info().Str(logger.ComponentField, "orchestrator").Msg("shut down")
	return err
}

// settleUnrun marks a task that never reached dispatch as failed and records
// it, so Execute keeps its always-returns-a-snapshot contract.
func (o *Orchestrator) settleUnrun(task *models.Task, detail string) *models.Task {
	now := time.Now()
	task.Status = models.StatusFailed
	task.Result = &models.Summary{
		Text:      "not dispatched: " + detail,
		Timestamp: now,
	}
	task.CompletedAt = &now
	o.recordSettled(task)
	return task
}

func (o *Orchestrator) recordSettled(task *models.Task) {
	o.memory.Record(models.MemoryEntry{
		TaskID:    task.ID,
		Summary:   task.Result.Text,
		Timestamp: time.Now(),
	})
	o.mu.Lock()
	o.settled[task.ID] = task
	o.mu.Unlock()
}

// warnUnadvertised logs planned methods a provider did not advertise at
// startup. Validation is advisory; the call is attempted regardless.
func (o *Orchestrator) warnUnadvertised(task *models.Task) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, op := range task.ProviderOperations() {
		advertised, ok := o.methods[op.Provider]
		if !ok {
			continue
		}
		found := false
		for _, m := range advertised {
			if m == op.Method {
				found = true
				break
			}
		}
		if !found {
			log.Warn().
				Int64(logger.TaskIDField, task.ID).
				Str(logger.ProviderField, op.Provider).
				Str(logger.MethodField, op.Method).
				Msg("method not advertised by provider")
		}
	}
}
