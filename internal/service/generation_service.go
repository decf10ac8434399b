package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/engine"
	"github.com/noah-isme/timetable-engine/pkg/config"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
)

// GenerationConfig carries the configured engine defaults.
type GenerationConfig struct {
	Genetic         config.GeneticConfig
	Hybrid          config.HybridConfig
	FitnessCeiling  float64
	EvalConcurrency int
}

// GenerationService orchestrates timetable generation runs: request
// validation, feasibility auditing, engine selection, the run registry, and
// result formatting.
type GenerationService struct {
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *Metrics
	queue     *jobs.Queue
	cfg       GenerationConfig
	registry  *runRegistry
}

// NewGenerationService wires generator dependencies.
func NewGenerationService(validate *validator.Validate, logger *zap.Logger, metrics *Metrics, queue *jobs.Queue, cfg GenerationConfig) *GenerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	applyGenerationDefaults(&cfg)
	return &GenerationService{
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		queue:     queue,
		cfg:       cfg,
		registry:  newRunRegistry(),
	}
}

func applyGenerationDefaults(cfg *GenerationConfig) {
	if cfg.FitnessCeiling <= 0 {
		cfg.FitnessCeiling = engine.DefaultFitnessCeiling
	}
	if cfg.EvalConcurrency <= 0 {
		cfg.EvalConcurrency = 4
	}
	g := &cfg.Genetic
	if g.PopulationSize <= 0 {
		g.PopulationSize = 100
	}
	if g.MaxGenerations <= 0 {
		g.MaxGenerations = 1000
	}
	if g.CrossoverRate <= 0 {
		g.CrossoverRate = 0.8
	}
	if g.MutationRate <= 0 {
		g.MutationRate = 0.1
	}
	if g.TargetFitness <= 0 {
		g.TargetFitness = 0.95
	}
	if g.Elitism <= 0 {
		g.Elitism = 2
	}
	if g.StallLimit <= 0 {
		g.StallLimit = 100
	}
	h := &cfg.Hybrid
	if h.MaxIterations <= 0 {
		h.MaxIterations = 10000
	}
	if h.InitialTemperature <= 0 {
		h.InitialTemperature = 1000
	}
	if h.CoolingRate <= 0 {
		h.CoolingRate = 0.95
	}
	if h.IterationsPerTemp <= 0 {
		h.IterationsPerTemp = 100
	}
	if h.TabuListSize <= 0 {
		h.TabuListSize = 50
	}
	if h.DomainFilteringStrength <= 0 {
		h.DomainFilteringStrength = 0.8
	}
	if h.NeighborhoodSample <= 0 {
		h.NeighborhoodSample = 40
	}
	if h.ProgressEvery <= 0 {
		h.ProgressEvery = 50
	}
	if h.AcceptanceScale <= 0 {
		h.AcceptanceScale = 1000
	}
}

// Generate runs a generation synchronously and returns the formatted result.
func (s *GenerationService) Generate(ctx context.Context, req dto.GenerateTimetableRequest, hooks engine.Hooks) (*dto.GenerationResult, error) {
	problem, err := s.prepare(req)
	if err != nil {
		hooks.EmitError(s.logger, err)
		return nil, err
	}
	control := engine.NewControl()
	return s.execute(ctx, problem, req, hooks, control, "")
}

// StartGeneration begins an asynchronous run and returns its registry id.
// Progress is observable through Progress and the run's hooks; Cancel stops
// the run cooperatively.
func (s *GenerationService) StartGeneration(ctx context.Context, req dto.GenerateTimetableRequest, hooks engine.Hooks) (string, error) {
	problem, err := s.prepare(req)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	control := engine.NewControl()
	s.registry.create(runID, req.Algorithm, control)

	task := jobs.Task{
		RunID: runID,
		Execute: func(runCtx context.Context) {
			result, err := s.execute(runCtx, problem, req, hooks, control, runID)
			s.registry.finish(runID, result, err)
		},
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(task); err != nil {
			s.registry.delete(runID)
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation run")
		}
		return runID, nil
	}
	go task.Execute(context.WithoutCancel(ctx))
	return runID, nil
}

// Progress returns the latest progress event of a run.
func (s *GenerationService) Progress(runID string) (dto.ProgressEvent, bool) {
	return s.registry.progress(runID)
}

// Result returns the final result of a finished run.
func (s *GenerationService) Result(runID string) (*dto.GenerationResult, error, bool) {
	return s.registry.result(runID)
}

// Cancel requests cooperative cancellation of a run. The engine notices the
// flag within one outer iteration and returns its best candidate so far.
func (s *GenerationService) Cancel(runID string) bool {
	return s.registry.cancel(runID)
}

// prepare validates the request and builds the problem, running the
// feasibility audit before any search starts.
func (s *GenerationService) prepare(req dto.GenerateTimetableRequest) (*engine.Problem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	problem, err := engine.NewProblem(req.Teachers, req.Classrooms, req.Courses, req.Constraints)
	if err != nil {
		return nil, err
	}
	problem.FitnessCeiling = s.cfg.FitnessCeiling
	if err := engine.CheckFeasibility(problem); err != nil {
		return nil, err
	}
	return problem, nil
}

func (s *GenerationService) execute(ctx context.Context, problem *engine.Problem, req dto.GenerateTimetableRequest, hooks engine.Hooks, control *engine.Control, runID string) (*dto.GenerationResult, error) {
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		s.logger.Debug("no seed supplied, using wall clock", zap.Int64("seed", seed))
	}

	runHooks := engine.Hooks{
		OnProgress: func(event dto.ProgressEvent) {
			event.RunID = runID
			if runID != "" {
				s.registry.record(runID, event)
			}
			hooks.EmitProgress(s.logger, event)
		},
		OnError: hooks.OnError,
	}

	var eng engine.Engine
	switch req.Algorithm {
	case dto.AlgorithmGenetic:
		eng = engine.NewGeneticEngine(problem, s.geneticParams(req.Genetic), seed, runHooks, control, s.logger, s.cfg.EvalConcurrency)
	case dto.AlgorithmHybridAdvanced:
		eng = engine.NewHybridEngine(problem, s.hybridParams(req.Hybrid), seed, runHooks, control, s.logger)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown algorithm "+req.Algorithm)
	}

	s.metrics.RunStarted()
	started := time.Now()
	outcome, err := eng.Run(ctx)
	if err != nil {
		s.metrics.RunFinished(req.Algorithm, "failed", time.Since(started), 0)
		return nil, err
	}

	result := FormatResult(problem, outcome)
	metricOutcome := "completed"
	if result.Cancelled {
		metricOutcome = "cancelled"
	}
	s.metrics.RunFinished(req.Algorithm, metricOutcome, time.Since(started), result.BestSolution.Fitness)
	s.logger.Info("generation run finished",
		zap.String("algorithm", req.Algorithm),
		zap.Float64("fitness", result.BestSolution.Fitness),
		zap.Int("totalViolations", result.Statistics.TotalViolations),
		zap.Bool("cancelled", result.Cancelled),
	)
	hooks.EmitComplete(s.logger, result)
	return result, nil
}

func (s *GenerationService) geneticParams(override *dto.GeneticParams) dto.GeneticParams {
	params := dto.GeneticParams{
		PopulationSize: s.cfg.Genetic.PopulationSize,
		MaxGenerations: s.cfg.Genetic.MaxGenerations,
		CrossoverRate:  s.cfg.Genetic.CrossoverRate,
		MutationRate:   s.cfg.Genetic.MutationRate,
		TargetFitness:  s.cfg.Genetic.TargetFitness,
		Elitism:        s.cfg.Genetic.Elitism,
		StallLimit:     s.cfg.Genetic.StallLimit,
	}
	if override == nil {
		return params
	}
	if override.PopulationSize > 0 {
		params.PopulationSize = override.PopulationSize
	}
	if override.MaxGenerations > 0 {
		params.MaxGenerations = override.MaxGenerations
	}
	if override.CrossoverRate > 0 {
		params.CrossoverRate = override.CrossoverRate
	}
	if override.MutationRate > 0 {
		params.MutationRate = override.MutationRate
	}
	if override.TargetFitness > 0 {
		params.TargetFitness = override.TargetFitness
	}
	if override.Elitism > 0 {
		params.Elitism = override.Elitism
	}
	if override.StallLimit > 0 {
		params.StallLimit = override.StallLimit
	}
	return params
}

func (s *GenerationService) hybridParams(override *dto.HybridParams) dto.HybridParams {
	params := dto.HybridParams{
		MaxIterations:            s.cfg.Hybrid.MaxIterations,
		InitialTemperature:       s.cfg.Hybrid.InitialTemperature,
		CoolingRate:              s.cfg.Hybrid.CoolingRate,
		IterationsPerTemperature: s.cfg.Hybrid.IterationsPerTemp,
		TabuListSize:             s.cfg.Hybrid.TabuListSize,
		DomainFilteringStrength:  s.cfg.Hybrid.DomainFilteringStrength,
		NeighborhoodSample:       s.cfg.Hybrid.NeighborhoodSample,
		ProgressEvery:            s.cfg.Hybrid.ProgressEvery,
		AcceptanceScale:          s.cfg.Hybrid.AcceptanceScale,
	}
	if override == nil {
		return params
	}
	if override.MaxIterations > 0 {
		params.MaxIterations = override.MaxIterations
	}
	if override.InitialTemperature > 0 {
		params.InitialTemperature = override.InitialTemperature
	}
	if override.CoolingRate > 0 {
		params.CoolingRate = override.CoolingRate
	}
	if override.IterationsPerTemperature > 0 {
		params.IterationsPerTemperature = override.IterationsPerTemperature
	}
	if override.TabuListSize > 0 {
		params.TabuListSize = override.TabuListSize
	}
	if override.DomainFilteringStrength > 0 {
		params.DomainFilteringStrength = override.DomainFilteringStrength
	}
	if override.NeighborhoodSample > 0 {
		params.NeighborhoodSample = override.NeighborhoodSample
	}
	if override.ProgressEvery > 0 {
		params.ProgressEvery = override.ProgressEvery
	}
	if override.AcceptanceScale > 0 {
		params.AcceptanceScale = override.AcceptanceScale
	}
	return params
}
