// Package dispatcher fans a task's operations out to provider clients
// concurrently, bounded by a call budget shared across all in-flight tasks,
// and aggregates the settled results fail-soft.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"mcp-agent/pkg/logger"
	"mcp-agent/pkg/models"
)

// Caller is the subset of the provider client the dispatcher needs.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) (any, *models.ProviderError)
}

// Dispatcher executes tasks. One instance is shared by all tasks so the call
// semaphore is a true global budget.
type Dispatcher struct {
	clients     map[string]Caller
	calls       *semaphore.Weighted
	taskTimeout time.Duration
}

// New creates a Dispatcher over the given clients with a global budget of
// maxConcurrentCalls and a per-task overall timeout.
func New(clients map[string]Caller, maxConcurrentCalls int64, taskTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		clients:     clients,
		calls:       semaphore.NewWeighted(maxConcurrentCalls),
		taskTimeout: taskTimeout,
	}
}

// Execute runs every provider operation of the task concurrently and waits
// for all of them to settle before marking the task terminal. Partial failure
// never short-circuits siblings: the task fails only if every operation
// failed. The returned task is the same instance, settled.
func (d *Dispatcher) Execute(ctx context.Context, task *models.Task) *models.Task {
	task.Status = models.StatusRunning

	callCtx, cancel := context.WithTimeout(ctx, d.taskTimeout)
	defer cancel()

	ops := task.ProviderOperations()
	results := make(chan models.OperationResult, len(ops))
	for _, op := range ops {
		go func(op models.Operation) {
			results <- d.run(callCtx, task.ID, op)
		}(op)
	}
	for range ops {
		r := <-results
		task.Results[r.Provider] = r
	}

	d.settle(task)
	return task
}

// run executes one operation: acquire a budget unit, call, release. An
// operation cancelled before or during its call records a timeout error.
func (d *Dispatcher) run(ctx context.Context, taskID int64, op models.Operation) models.OperationResult {
	start := time.Now()
	res := models.OperationResult{Provider: op.Provider, Method: op.Method}

	client, ok := d.clients[op.Provider]
	if !ok {
		res.Err = &models.ProviderError{
			Kind:   models.ErrKindRejected,
			Detail: fmt.Sprintf("no client for provider %q", op.Provider),
		}
		return res
	}

	if err := d.calls.Acquire(ctx, 1); err != nil {
		res.Err = &models.ProviderError{
			Kind:   models.ErrKindTimeout,
			Detail: "cancelled while waiting for call budget: " + err.Error(),
		}
		res.Latency = time.Since(start)
		return res
	}
	defer d.calls.Release(1)

	value, perr := client.Call(ctx, op.Method, op.Params)
	res.Latency = time.Since(start)
	if perr != nil {
		res.Err = perr
		log.Debug().
			Int64(logger.TaskIDField, taskID).
			Str(logger.ProviderField, op.Provider).
			Str(logger.MethodField, op.Method).
			Str("kind", string(perr.Kind)).
			Msg("operation failed")
		return res
	}
	res.Value = value
	return res
}

// settle computes the terminal status and synthesizes the overall result.
// Fail-soft: one successful operation is enough for the task to complete; a
// task with no provider operations (degenerate plan) also completes.
func (d *Dispatcher) settle(task *models.Task) {
	succeeded, failed := 0, 0
	operations := make([]string, 0, len(task.Results))
	for _, op := range task.ProviderOperations() {
		r := task.Results[op.Provider]
		operations = append(operations, op.Provider+"."+op.Method)
		if r.OK() {
			succeeded++
		} else {
			failed++
		}
	}

	now := time.Now()
	task.Result = &models.Summary{
		Text:       fmt.Sprintf("processed task %d: %s", task.ID, task.Description),
		Operations: operations,
		Succeeded:  succeeded,
		Failed:     failed,
		Timestamp:  now,
	}
	task.CompletedAt = &now

	if failed > 0 && succeeded == 0 {
		task.Status = models.StatusFailed
	} else {
		task.Status = models.StatusCompleted
	}

	log.Info().
		Str(logger.ComponentField, "dispatcher").
		Int64(logger.TaskIDField, task.ID).
		Str("status", string(task.Status)).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Msg("task settled")
}
