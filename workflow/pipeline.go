package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/coordflow/coordination"
	"github.com/BaSui01/coordflow/types"
	"go.uber.org/zap"
)

// Durable collections owned by the pipeline.
const (
	TaskCollection     = "task_records"
	AnalysisCollection = "analysis_records"
	PlanCollection     = "plan_records"
	ReportCollection   = "workflow_reports"
)

// Standard phase names, in pipeline order.
const (
	PhaseInitialization = "agent_initialization"
	PhaseAnalysis       = "producer_analysis"
	PhaseValidation     = "consumer_validation"
	PhasePlanning       = "plan_derivation"
	PhaseSync           = "documentation_sync"
	PhaseCompletion     = "completion"
)

// PipelineConfig describes the producer/consumer pair the standard pipeline
// coordinates, plus the three domain operations it sequences. Any nil
// operation falls back to a pass-through default so the pipeline shape can
// be exercised without domain logic.
type PipelineConfig struct {
	ProducerID   string
	ProducerType string
	ConsumerID   string
	ConsumerType string
	TaskScope    []string

	// Analyze produces the artifact the producer hands to the consumer.
	Analyze func(ctx context.Context) (map[string]any, error)

	// Validate judges the producer's analysis and returns a verdict.
	Validate func(ctx context.Context, analysis map[string]any) (map[string]any, error)

	// DerivePlan turns the validation verdict into a plan.
	DerivePlan func(ctx context.Context, verdict map[string]any) (map[string]any, error)

	Logger *zap.Logger
}

func (cfg *PipelineConfig) defaults() {
	if cfg.ProducerType == "" {
		cfg.ProducerType = "producer"
	}
	if cfg.ConsumerType == "" {
		cfg.ConsumerType = "consumer"
	}
	if cfg.Analyze == nil {
		cfg.Analyze = func(ctx context.Context) (map[string]any, error) {
			return map[string]any{"analysis": "noop"}, nil
		}
	}
	if cfg.Validate == nil {
		cfg.Validate = func(ctx context.Context, analysis map[string]any) (map[string]any, error) {
			return map[string]any{"valid": true}, nil
		}
	}
	if cfg.DerivePlan == nil {
		cfg.DerivePlan = func(ctx context.Context, verdict map[string]any) (map[string]any, error) {
			return map[string]any{"plan": "noop"}, nil
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

// StandardPipeline builds the fixed six-phase pipeline: agent
// initialization, producer analysis + handoff, consumer validation, plan
// derivation, documentation/sync/cache maintenance, and completion with
// aggregate report persistence.
func StandardPipeline(session *coordination.Session, cfg PipelineConfig) []Phase {
	cfg.defaults()
	p := &pipeline{session: session, cfg: cfg}
	return []Phase{
		{Index: 1, Name: PhaseInitialization, Run: p.initializeAgents},
		{Index: 2, Name: PhaseAnalysis, Run: p.producerAnalysis},
		{Index: 3, Name: PhaseValidation, Run: p.consumerValidation},
		{Index: 4, Name: PhasePlanning, Run: p.planDerivation},
		{Index: 5, Name: PhaseSync, Run: p.documentationSync},
		{Index: 6, Name: PhaseCompletion, Run: p.completion},
	}
}

type pipeline struct {
	session *coordination.Session
	cfg     PipelineConfig
}

// storeRecord persists a JSON record as a pipeline side effect. The phase
// fails when the write fails: pipeline side effects are mandatory.
func (p *pipeline) storeRecord(ctx context.Context, collection string, record map[string]any, tags []string) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize %s record: %w", collection, err)
	}
	if _, err := p.session.Store().StoreDocument(ctx, collection, "", string(data), tags); err != nil {
		return fmt.Errorf("failed to persist %s record: %w", collection, err)
	}
	return nil
}

// initialStateData builds a valid initial state payload for an agent.
func initialStateData(agentID string, scope []string) types.StateData {
	if scope == nil {
		scope = []string{}
	}
	return types.StateData{
		"agent_id":     agentID,
		"task_scope":   scope,
		"current_task": nil,
	}
}

// Phase 1: register both agents, create their snapshots, and activate them.
func (p *pipeline) initializeAgents(ctx context.Context, prior Outputs) (map[string]any, error) {
	roster := []string{p.cfg.ProducerID, p.cfg.ConsumerID}
	agentTypes := map[string]string{
		p.cfg.ProducerID: p.cfg.ProducerType,
		p.cfg.ConsumerID: p.cfg.ConsumerType,
	}

	for _, agentID := range roster {
		if !p.session.Coordinator.IsRegistered(agentID) {
			if !p.session.Coordinator.RegisterAgent(ctx, &coordination.AgentRegistration{
				AgentID:   agentID,
				AgentType: agentTypes[agentID],
				TaskScope: p.cfg.TaskScope,
			}) {
				return nil, fmt.Errorf("failed to register agent %s", agentID)
			}
		}
		if err := p.session.State.CreateAgentState(agentID, types.StatusInitializing, initialStateData(agentID, p.cfg.TaskScope)); err != nil {
			return nil, fmt.Errorf("failed to create state for %s: %w", agentID, err)
		}
		if !p.session.State.TransitionAgentState(ctx, agentID, types.StatusActive, types.TransitionActivate, nil) {
			return nil, fmt.Errorf("failed to activate agent %s", agentID)
		}
	}

	// Task tracking side effect
	if err := p.storeRecord(ctx, TaskCollection, map[string]any{
		"coordination_id": p.session.CoordinationID,
		"agents":          roster,
		"task_scope":      p.cfg.TaskScope,
		"started_at":      time.Now(),
	}, []string{"workflow_task", p.session.CoordinationID}); err != nil {
		return nil, err
	}

	return map[string]any{"agents": roster}, nil
}

// Phase 2: the producer analyzes and hands the artifact to the consumer.
func (p *pipeline) producerAnalysis(ctx context.Context, prior Outputs) (map[string]any, error) {
	analysis, err := p.cfg.Analyze(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	if err := p.storeRecord(ctx, AnalysisCollection, map[string]any{
		"coordination_id": p.session.CoordinationID,
		"producer":        p.cfg.ProducerID,
		"analysis":        analysis,
	}, []string{"analysis", p.cfg.ProducerID}); err != nil {
		return nil, err
	}

	if !p.session.Coordinator.CoordinateAgentHandoff(ctx, p.cfg.ProducerID, p.cfg.ConsumerID, analysis) {
		return nil, fmt.Errorf("handoff from %s to %s failed", p.cfg.ProducerID, p.cfg.ConsumerID)
	}

	return map[string]any{"analysis": analysis}, nil
}

// Phase 3: the consumer pulls the handoff and validates the analysis.
func (p *pipeline) consumerValidation(ctx context.Context, prior Outputs) (map[string]any, error) {
	messages, err := p.session.Broker.RetrieveAgentMessages(ctx, p.cfg.ConsumerID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve handoff messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no handoff message for %s", p.cfg.ConsumerID)
	}
	handoff := messages[len(messages)-1]

	verdict, err := p.cfg.Validate(ctx, handoff.Content)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Graph lineage side effect
	if err := p.session.Store().LinkEntities(ctx, p.cfg.ConsumerID, p.cfg.ProducerID, "validated_output_of", map[string]any{
		"coordination_id": p.session.CoordinationID,
	}); err != nil {
		return nil, fmt.Errorf("failed to link validation edge: %w", err)
	}

	return map[string]any{"verdict": verdict}, nil
}

// Phase 4: derive a plan from the validation verdict.
func (p *pipeline) planDerivation(ctx context.Context, prior Outputs) (map[string]any, error) {
	verdict, _ := prior[PhaseValidation]["verdict"].(map[string]any)

	plan, err := p.cfg.DerivePlan(ctx, verdict)
	if err != nil {
		return nil, fmt.Errorf("plan derivation failed: %w", err)
	}

	if err := p.storeRecord(ctx, PlanCollection, map[string]any{
		"coordination_id": p.session.CoordinationID,
		"verdict":         verdict,
		"plan":            plan,
	}, []string{"plan", p.session.CoordinationID}); err != nil {
		return nil, err
	}

	return map[string]any{"plan": plan}, nil
}

// Phase 5: documentation, sync, and cache maintenance.
func (p *pipeline) documentationSync(ctx context.Context, prior Outputs) (map[string]any, error) {
	doc := map[string]any{
		"coordination_id": p.session.CoordinationID,
		"phases_so_far":   []string{PhaseInitialization, PhaseAnalysis, PhaseValidation, PhasePlanning},
		"synced_at":       time.Now(),
	}
	if err := p.storeRecord(ctx, TaskCollection, doc, []string{"workflow_documentation", p.session.CoordinationID}); err != nil {
		return nil, err
	}

	// Cache maintenance: stats are recorded in the phase output so the
	// completion report can include them. Unlike the other side effects
	// this one is advisory, mirroring checkpoint enrichment.
	output := map[string]any{"documented": true}
	if stats, err := p.session.Store().CacheStats(ctx); err == nil {
		output["cache_stats"] = stats
	} else {
		p.cfg.Logger.Debug("cache stats unavailable during sync", zap.Error(err))
	}
	return output, nil
}

// Phase 6: finish both agents and persist the aggregate report.
func (p *pipeline) completion(ctx context.Context, prior Outputs) (map[string]any, error) {
	if !p.session.State.TransitionAgentState(ctx, p.cfg.ProducerID, types.StatusCompleted, types.TransitionComplete, nil) {
		return nil, fmt.Errorf("failed to complete producer %s", p.cfg.ProducerID)
	}
	if !p.session.State.TransitionAgentState(ctx, p.cfg.ConsumerID, types.StatusCompleted, types.TransitionComplete, nil) {
		return nil, fmt.Errorf("failed to complete consumer %s", p.cfg.ConsumerID)
	}

	summary := p.session.Coordinator.Summary()
	report := map[string]any{
		"coordination_id":      p.session.CoordinationID,
		"agents":               prior[PhaseInitialization]["agents"],
		"phase_outputs":        map[string]any(toAnyMap(prior)),
		"coordination_summary": summary,
		"transition_summary":   p.session.Transitions.Summary(),
		"completed_at":         time.Now(),
	}
	if stats, ok := prior[PhaseSync]["cache_stats"]; ok {
		report["performance_metrics"] = map[string]any{"cache_stats": stats}
	}

	if err := p.storeRecord(ctx, ReportCollection, report, []string{"workflow_report", p.session.CoordinationID}); err != nil {
		return nil, err
	}
	return report, nil
}

func toAnyMap(outputs Outputs) map[string]any {
	out := make(map[string]any, len(outputs))
	for name, value := range outputs {
		out[name] = value
	}
	return out
}
