package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowmaestro/flowmaestro-go/flow/emit"
	"github.com/flowmaestro/flowmaestro-go/flow/store"
)

// Engine is the orchestrator loop: it repeatedly asks the queue state
// machine for ready nodes, invokes handlers concurrently, and folds the
// results back into the context snapshot and queue state until the graph is
// complete.
//
// The Engine carries no implicit global state. Collaborators (handler
// registry, templater, run store, emitter, metrics) are injected explicitly,
// and all per-execution state is threaded through Snapshot and QueueState
// values, which is what makes replay by a durable-execution substrate safe.
//
// Example:
//
//	registry := flow.NewRegistry()
//	registry.Register(flow.NodeTransform, myTransformHandler)
//
//	engine := flow.NewEngine(registry,
//	    flow.WithMaxConcurrent(8),
//	    flow.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	)
//
//	result, err := engine.Run(ctx, "", graph, map[string]any{"numbers": []any{2, 3, 5}})
type Engine struct {
	registry  *Registry
	templater Templater
	emitter   emit.Emitter
	store     store.RunStore
	metrics   *PrometheusMetrics
	opts      Options
}

// NewEngine creates an Engine with the given handler registry and options.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		templater: NewPathTemplater(),
		emitter:   emit.NewNullEmitter(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.opts.MaxSteps == 0 {
		e.opts.MaxSteps = DefaultMaxSteps
	}
	if e.opts.MaxConcurrentNodes == 0 {
		e.opts.MaxConcurrentNodes = DefaultMaxConcurrent
	}
	return e
}

// RunResult is the outcome of a workflow execution.
type RunResult struct {
	// ExecutionID identifies the execution (generated when Run was called
	// with an empty ID).
	ExecutionID string

	// Outputs holds the stored outputs of the declared output nodes.
	// Outputs never computed are absent; callers inspect partial success
	// directly instead of catching an error.
	Outputs map[string]any

	// Snapshot is the final context snapshot.
	Snapshot Snapshot

	// Queue is the final queue state; useful for inspecting which nodes
	// failed or were skipped.
	Queue QueueState

	// Steps is the number of scheduling rounds performed.
	Steps int
}

// Run executes the workflow graph to completion.
//
// An empty executionID is replaced with a generated UUID. The inputs map is
// the structured value fed into the initial context snapshot.
//
// Run returns a non-nil error alongside the (partial) RunResult when
// scheduling itself broke down (context cancelled, no progress, round limit)
// or when a declared output node ended failed or skipped without any
// fallback path producing a value. Individual node failures do not abort
// sibling branches and do not by themselves fail the run.
func (e *Engine) Run(ctx context.Context, executionID string, g *Graph, inputs map[string]any) (RunResult, error) {
	if e.registry == nil {
		return RunResult{}, &EngineError{Message: "handler registry is required", Code: "MISSING_REGISTRY"}
	}
	if g == nil {
		return RunResult{}, &EngineError{Message: "graph is required", Code: "MISSING_GRAPH"}
	}
	if executionID == "" {
		executionID = uuid.NewString()
	}

	snap := CreateContext(inputs)
	queue := InitializeQueue(g)

	e.emitter.Emit(emit.Event{
		ExecutionID: executionID,
		Msg:         emit.MsgRunStarted,
		Meta:        map[string]any{"nodes": len(g.NodeIDs())},
	})

	run := &runState{executionID: executionID}
	snap, queue, steps, err := e.execute(ctx, run, g, snap, queue)

	result := RunResult{
		ExecutionID: executionID,
		Outputs:     snap.FinalOutputs(g.OutputNodeIDs()),
		Snapshot:    snap,
		Queue:       queue,
		Steps:       steps,
	}

	if err == nil {
		err = outputFailure(g, snap, queue)
	}

	meta := map[string]any{"steps": steps}
	if err != nil {
		meta["error"] = err.Error()
	}
	e.emitter.Emit(emit.Event{
		ExecutionID: executionID,
		Step:        steps,
		Msg:         emit.MsgRunCompleted,
		Meta:        meta,
	})

	return result, err
}

// runState carries per-execution bookkeeping shared between the outer run
// and nested loop body executions: the persisted step sequence must be
// monotonic across both.
type runState struct {
	executionID string
	mu          sync.Mutex
	persistSeq  int
}

func (r *runState) nextSeq() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistSeq++
	return r.persistSeq
}

// execute drives one graph (the workflow itself, or a loop body subgraph)
// to completion. The scheduling loop never blocks except while awaiting the
// dispatched batch.
func (e *Engine) execute(ctx context.Context, run *runState, g *Graph, snap Snapshot, queue QueueState) (Snapshot, QueueState, int, error) {
	maxConcurrent := g.MaxConcurrentNodes()
	if maxConcurrent <= 0 {
		maxConcurrent = e.opts.MaxConcurrentNodes
	}

	step := 0
	for !queue.Complete() {
		step++
		if e.opts.MaxSteps > 0 && step > e.opts.MaxSteps {
			return snap, queue, step, ErrMaxStepsExceeded
		}
		if err := ctx.Err(); err != nil {
			return snap, queue, step, err
		}

		ready := queue.ReadyNodes(g, maxConcurrent)
		e.metrics.ObserveQueueDepth(len(ready))
		if len(ready) == 0 {
			return snap, queue, step, ErrNoProgress
		}

		queue = queue.MarkExecuting(ready...)
		outcomes := e.dispatch(ctx, run, g, snap, ready, step)

		before := queue.Statuses()
		for _, oc := range outcomes {
			snap, queue = e.apply(ctx, run, g, snap, queue, oc, step)
		}
		e.emitSkipTransitions(run, g, before, queue, step)
	}

	return snap, queue, step, nil
}

// dispatch runs the ready batch concurrently and waits for every outcome.
// Handler executions are the only suspension points; results are collected
// in batch order so applying them is deterministic.
func (e *Engine) dispatch(ctx context.Context, run *runState, g *Graph, snap Snapshot, ready []string, step int) []outcome {
	outcomes := make([]outcome, len(ready))

	var wg sync.WaitGroup
	for i, nodeID := range ready {
		e.emitter.Emit(emit.Event{
			ExecutionID: run.executionID,
			Step:        step,
			NodeID:      nodeID,
			Msg:         emit.MsgNodeStart,
		})
		e.metrics.NodeStarted()

		wg.Add(1)
		go func(i int, nodeID string) {
			defer wg.Done()
			start := time.Now()

			node := g.Node(nodeID)
			var oc outcome
			if node.Type == NodeLoop {
				oc = e.runLoop(ctx, run, g, node, snap, step)
			} else {
				oc.result, oc.err = e.invokeHandler(ctx, run.executionID, node, snap)
			}
			oc.nodeID = nodeID
			oc.duration = time.Since(start)
			outcomes[i] = oc
		}(i, nodeID)
	}
	wg.Wait()

	return outcomes
}

// outcome is the collected result of one dispatched node.
type outcome struct {
	nodeID   string
	result   Result
	err      error
	duration time.Duration

	// Loop-only: per-iteration outputs stored under synthesized IDs, and
	// variables published when the loop completes.
	iterationOutputs []iterationOutput
	variables        map[string]any
}

type iterationOutput struct {
	nodeID string
	output any
}

// apply folds one outcome into the snapshot and queue state. Applies are
// serialized by the scheduling loop; apply order within a round does not
// affect the final state since every update is keyed by a distinct node ID
// and readiness recomputation is idempotent.
func (e *Engine) apply(ctx context.Context, run *runState, g *Graph, snap Snapshot, queue QueueState, oc outcome, step int) (Snapshot, QueueState) {
	node := g.Node(oc.nodeID)

	if oc.err != nil {
		queue = queue.MarkFailed(g, oc.nodeID, oc.err.Error())
		e.emitter.Emit(emit.Event{
			ExecutionID: run.executionID,
			Step:        step,
			NodeID:      oc.nodeID,
			Msg:         emit.MsgNodeFailed,
			Meta: map[string]any{
				"error":       oc.err.Error(),
				"duration_ms": oc.duration.Milliseconds(),
			},
		})
		e.metrics.NodeFinished(node.Type, StatusFailed, oc.duration, 0)
	} else {
		for _, iter := range oc.iterationOutputs {
			snap = snap.StoreNodeOutput(iter.nodeID, iter.output)
		}
		for name, value := range oc.variables {
			snap = snap.SetVariable(name, value)
		}
		snap = snap.StoreNodeOutput(oc.nodeID, oc.result.Output)
		queue = queue.MarkCompleted(g, oc.nodeID, oc.result.Signals)

		meta := map[string]any{"duration_ms": oc.duration.Milliseconds()}
		if oc.result.Signals.SelectedRoute != "" {
			meta["route"] = oc.result.Signals.SelectedRoute
		}
		if oc.result.Metrics.TokensUsed > 0 {
			meta["tokens_used"] = oc.result.Metrics.TokensUsed
		}
		e.emitter.Emit(emit.Event{
			ExecutionID: run.executionID,
			Step:        step,
			NodeID:      oc.nodeID,
			Msg:         emit.MsgNodeCompleted,
			Meta:        meta,
		})
		e.metrics.NodeFinished(node.Type, StatusCompleted, oc.duration, oc.result.Metrics.TokensUsed)
	}

	e.persistStep(ctx, run, oc.nodeID, snap, queue)
	return snap, queue
}

// invokeHandler resolves the node's handler, template-resolves its
// configuration against the current execution context, and executes it.
func (e *Engine) invokeHandler(ctx context.Context, executionID string, node *Node, snap Snapshot) (Result, error) {
	handler, err := e.registry.Resolve(node.Type)
	if err != nil {
		return Result{}, fmt.Errorf("node %s: %w: %s", node.ID, ErrNoHandler, node.Type)
	}

	config, err := resolveConfig(e.templater, node.Config, snap.ExecutionContext())
	if err != nil {
		return Result{}, fmt.Errorf("node %s: config resolution: %w", node.ID, err)
	}

	start := time.Now()
	result, err := handler.Execute(ctx, Request{
		ExecutionID: executionID,
		NodeID:      node.ID,
		NodeName:    node.Name,
		NodeType:    node.Type,
		Config:      config,
		Snapshot:    snap,
	})
	if err != nil {
		return Result{}, err
	}
	if result.Metrics.Duration == 0 {
		result.Metrics.Duration = time.Since(start)
	}
	return result, nil
}

// emitSkipTransitions reports nodes that resolved to skipped during this
// round's applies.
func (e *Engine) emitSkipTransitions(run *runState, g *Graph, before map[string]string, queue QueueState, step int) {
	for _, id := range g.NodeIDs() {
		if before[id] != string(StatusSkipped) && queue.Status(id) == StatusSkipped {
			e.emitter.Emit(emit.Event{
				ExecutionID: run.executionID,
				Step:        step,
				NodeID:      id,
				Msg:         emit.MsgNodeSkipped,
			})
			e.metrics.NodeSkipped()
		}
	}
}

// persistStep saves the post-apply state through the run store, if one is
// configured. Persistence failures are reported as events rather than
// failing the execution; the in-memory run remains authoritative.
func (e *Engine) persistStep(ctx context.Context, run *runState, nodeID string, snap Snapshot, queue QueueState) {
	if e.store == nil {
		return
	}

	state := store.ExecutionState{
		Inputs:          snap.Inputs(),
		Outputs:         snap.Outputs(),
		Variables:       snap.Variables(),
		NodeStatuses:    queue.Statuses(),
		EdgeActivations: queue.EdgeActivations(),
	}
	if err := e.store.SaveStep(ctx, run.executionID, run.nextSeq(), nodeID, state); err != nil {
		e.emitter.Emit(emit.Event{
			ExecutionID: run.executionID,
			NodeID:      nodeID,
			Msg:         "store_error",
			Meta:        map[string]any{"error": err.Error()},
		})
	}
}

// outputFailure reports overall workflow failure: a declared output node
// ended failed, or no declared output produced a value at all. An output
// skipped by branch pruning while a sibling declared output produced a value
// is partial success, not failure; callers see the absent key in
// FinalOutputs.
func outputFailure(g *Graph, snap Snapshot, queue QueueState) error {
	outs := g.OutputNodeIDs()
	if len(outs) == 0 {
		return nil
	}

	produced := false
	for _, id := range outs {
		if _, ok := snap.NodeOutput(id); ok {
			produced = true
			continue
		}
		if queue.Status(id) == StatusFailed {
			msg := fmt.Sprintf("output node %s failed without producing a value", id)
			if failure, ok := queue.FailureMessage(id); ok {
				msg += ": " + failure
			}
			return &EngineError{Message: msg, Code: "WORKFLOW_FAILED"}
		}
	}
	if !produced {
		states := make([]string, len(outs))
		for i, id := range outs {
			states[i] = fmt.Sprintf("%s %s", id, queue.Status(id))
		}
		return &EngineError{
			Message: "no declared output node produced a value (" + strings.Join(states, ", ") + ")",
			Code:    "WORKFLOW_FAILED",
		}
	}
	return nil
}
