package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/coordflow/coordination"
	"github.com/BaSui01/coordflow/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Outputs maps phase name to that phase's output, accumulated as the
// pipeline advances. Each phase sees the outputs of every earlier phase.
type Outputs map[string]map[string]any

// PhaseFunc executes one phase against the prior phases' outputs.
// Returning an error fails the phase and halts the pipeline.
type PhaseFunc func(ctx context.Context, prior Outputs) (map[string]any, error)

// Phase 流水线中的一个阶段：固定序号、名称和执行函数。
type Phase struct {
	Index int
	Name  string
	Run   PhaseFunc
}

// PhaseResult records one phase's outcome.
type PhaseResult struct {
	Index   int            `json:"phase"`
	Name    string         `json:"name"`
	Success bool           `json:"success"`
	Output  map[string]any `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Result is the structured outcome of a pipeline run. FailedPhase is the
// 1-indexed failing phase, or 0 when every phase succeeded.
type Result struct {
	Success         bool           `json:"success"`
	PhasesCompleted int            `json:"phases_completed"`
	FailedPhase     int            `json:"failed_phase,omitempty"`
	Error           string         `json:"error,omitempty"`
	PhaseResults    []*PhaseResult `json:"phase_results"`
	Report          map[string]any `json:"report,omitempty"`
}

// Config configures an Orchestrator.
type Config struct {
	// Metrics is the Prometheus collector. Nil disables metrics.
	Metrics *metrics.Collector

	// Tracer defaults to the global otel tracer.
	Tracer trace.Tracer

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Orchestrator runs a fixed phase pipeline over one coordination session.
// There is no cancellation primitive beyond ctx: a running pipeline stops
// only when a phase fails or the context is done.
type Orchestrator struct {
	session *coordination.Session
	phases  []Phase
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewOrchestrator creates an orchestrator over the session and phases.
// Phases must already be in index order.
func NewOrchestrator(session *coordination.Session, phases []Phase, cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("coordflow/workflow")
	}
	return &Orchestrator{
		session: session,
		phases:  phases,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		logger:  cfg.Logger.With(zap.String("component", "workflow_orchestrator")),
	}
}

// Execute runs the phases strictly in order. The moment a phase fails the
// pipeline halts: later phases never execute and the result names the
// failing phase. On a fully successful run the last phase's output is the
// aggregate report.
func (o *Orchestrator) Execute(ctx context.Context) *Result {
	result := &Result{}
	outputs := make(Outputs, len(o.phases))

	for _, phase := range o.phases {
		select {
		case <-ctx.Done():
			return o.fail(result, phase, ctx.Err())
		default:
		}

		phaseResult, err := o.runPhase(ctx, phase, outputs)
		result.PhaseResults = append(result.PhaseResults, phaseResult)

		if err != nil {
			return o.fail(result, phase, err)
		}

		outputs[phase.Name] = phaseResult.Output
		result.PhasesCompleted++
	}

	result.Success = true
	if len(o.phases) > 0 {
		result.Report = outputs[o.phases[len(o.phases)-1].Name]
	}
	o.metrics.RecordWorkflowRun(true)
	o.logger.Info("workflow completed",
		zap.Int("phases_completed", result.PhasesCompleted))
	return result
}

// runPhase executes one phase with tracing and duration metrics.
func (o *Orchestrator) runPhase(ctx context.Context, phase Phase, outputs Outputs) (*PhaseResult, error) {
	ctx, span := o.tracer.Start(ctx, "workflow.phase",
		trace.WithAttributes(
			attribute.Int("phase.index", phase.Index),
			attribute.String("phase.name", phase.Name),
		))
	defer span.End()

	o.logger.Info("running phase",
		zap.Int("phase", phase.Index),
		zap.String("name", phase.Name),
	)

	start := time.Now()
	output, err := phase.Run(ctx, outputs)
	o.metrics.ObservePhaseDuration(phase.Name, time.Since(start))

	phaseResult := &PhaseResult{
		Index:   phase.Index,
		Name:    phase.Name,
		Success: err == nil,
		Output:  output,
	}
	if err != nil {
		phaseResult.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return phaseResult, err
}

// fail finalizes a halted run.
func (o *Orchestrator) fail(result *Result, phase Phase, err error) *Result {
	result.Success = false
	result.FailedPhase = phase.Index
	result.Error = fmt.Sprintf("phase %d (%s) failed: %v", phase.Index, phase.Name, err)
	o.metrics.RecordWorkflowRun(false)
	o.logger.Warn("workflow halted",
		zap.Int("failed_phase", phase.Index),
		zap.String("name", phase.Name),
		zap.Error(err),
	)
	return result
}
