package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mmrzaf/cqlstress/internal/distribution"
	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/exec"
	"github.com/mmrzaf/cqlstress/internal/hashing"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/profiles"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/runs"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/targets"
	"github.com/mmrzaf/cqlstress/internal/logging"
	"github.com/mmrzaf/cqlstress/internal/operation"
	"github.com/mmrzaf/cqlstress/internal/registry"
	"github.com/mmrzaf/cqlstress/internal/rowgen"
	"github.com/mmrzaf/cqlstress/internal/timeutil"
	"github.com/mmrzaf/cqlstress/internal/validation"
)

// Defaults fill in what neither the request nor the profile sets.
type Defaults struct {
	Threads     int
	Consistency string
}

type RunService struct {
	profileRepo  profiles.Repository
	targetRepo   targets.Repository
	runRepo      runs.Repository
	distRegistry *registry.DistributionRegistry
	validator    *validation.Validator
	executor     *exec.Executor
	defaults     Defaults
	logger       *logging.Logger
	opLogger     *logging.Logger

	// background runs started by StartRun live under ctx until Shutdown.
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func NewRunService(
	profileRepo profiles.Repository,
	targetRepo targets.Repository,
	runRepo runs.Repository,
	distRegistry *registry.DistributionRegistry,
	logger *logging.Logger,
	defaults Defaults,
) *RunService {
	if distRegistry == nil {
		distRegistry = registry.DefaultDistributionRegistry()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RunService{
		ctx:          ctx,
		cancel:       cancel,
		profileRepo:  profileRepo,
		targetRepo:   targetRepo,
		runRepo:      runRepo,
		distRegistry: distRegistry,
		validator:    validation.NewValidator(distRegistry),
		executor:     exec.NewExecutor(logger),
		defaults:     defaults,
		logger:       logger.WithComponent("runs"),
		opLogger:     logger,
	}
}

// RunPlan is a validated request with every default resolved.
type RunPlan struct {
	Command    domain.Command
	Profile    domain.Profile
	Target     *domain.TargetConfig
	Population distribution.Distribution
	Operations *uint64
	Duration   time.Duration
	Threads    int
	Rate       float64
	ConfigHash string
	// Warning is set when the rows written cannot be regenerated later.
	Warning string
}

func (s *RunService) Plan(req *domain.RunRequest) (*RunPlan, error) {
	if err := s.validator.ValidateRunRequest(req); err != nil {
		return nil, fmt.Errorf("invalid run request: %w", err)
	}

	profile, err := s.resolveProfile(req)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(req)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateTarget(target); err != nil {
		return nil, fmt.Errorf("target validation failed: %w", err)
	}

	p := *profile
	if req.Population != "" {
		p.Population = req.Population
	}
	if req.Consistency != "" {
		p.Consistency = req.Consistency
	} else if p.Consistency == "" {
		p.Consistency = s.defaults.Consistency
	}
	if req.SerialConsistency != "" {
		p.SerialConsistency = req.SerialConsistency
	}
	applyTargetKeyspace(&p, target)
	p = p.WithDefaults(req.Operations)

	if err := s.validator.ValidateProfile(&p); err != nil {
		return nil, fmt.Errorf("profile validation failed: %w", err)
	}

	population, err := s.distRegistry.Parse(p.Population)
	if err != nil {
		return nil, fmt.Errorf("population: %w", err)
	}

	plan := &RunPlan{
		Command:    req.Command,
		Profile:    p,
		Target:     target,
		Population: population,
		Operations: req.Operations,
		Threads:    req.Threads,
		Rate:       req.Rate,
		Warning:    s.validator.DeterminismWarning(req.Command, population),
	}
	if plan.Threads == 0 {
		plan.Threads = s.defaults.Threads
	}
	if req.Duration != "" {
		plan.Duration, err = timeutil.ParseDuration(req.Duration)
		if err != nil {
			return nil, err
		}
	}

	plan.ConfigHash, err = hashing.HashRunConfig(&p, target, req.Command, req.Operations)
	if err != nil {
		return nil, fmt.Errorf("failed to hash run config: %w", err)
	}
	return plan, nil
}

func (s *RunService) resolveProfile(req *domain.RunRequest) (*domain.Profile, error) {
	switch {
	case req.Profile != nil:
		return req.Profile, nil
	case s.profileRepo == nil:
		if req.ProfileID == "" || req.ProfileID == domain.DefaultProfileName {
			return domain.DefaultProfile(), nil
		}
		return nil, fmt.Errorf("%w: %s", profiles.ErrNotFound, req.ProfileID)
	}
	id := req.ProfileID
	if id == "" {
		id = domain.DefaultProfileName
	}
	p, err := s.profileRepo.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

func (s *RunService) resolveTarget(req *domain.RunRequest) (*domain.TargetConfig, error) {
	if req.Target != nil {
		t := *req.Target
		if t.ID == "" {
			t.ID = t.Name
		}
		return &t, nil
	}
	if s.targetRepo == nil {
		return nil, fmt.Errorf("%w: %s", targets.ErrNotFound, req.TargetID)
	}
	t, err := s.targetRepo.Get(req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load target: %w", err)
	}
	return t, nil
}

func (s *RunService) newRun(plan *RunPlan) (*domain.Run, error) {
	run := &domain.Run{
		Command:     plan.Command,
		ProfileID:   plan.Profile.ID,
		ProfileName: plan.Profile.Name,
		TargetID:    plan.Target.ID,
		TargetName:  plan.Target.Name,
		TargetKind:  plan.Target.Kind,
		Population:  plan.Population.String(),
		ConfigHash:  plan.ConfigHash,
		Status:      domain.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	if s.runRepo != nil {
		if err := s.runRepo.Create(run); err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
	}
	if plan.Warning != "" {
		s.logger.Warnw("non-deterministic population", map[string]any{
			"run_id":     run.ID,
			"population": run.Population,
			"warning":    plan.Warning,
		})
	}
	s.logger.Infow("starting run", map[string]any{
		"run_id":     run.ID,
		"command":    string(run.Command),
		"profile":    run.ProfileName,
		"target":     run.TargetName,
		"population": run.Population,
	})
	return run, nil
}

// Run executes a plan to completion and returns the finished run record.
// Failed operations mark the run failed; the error return is reserved for
// runs that could not execute at all.
func (s *RunService) Run(ctx context.Context, plan *RunPlan, progress func(done int64)) (*domain.Run, error) {
	run, err := s.newRun(plan)
	if err != nil {
		return nil, err
	}
	if err := s.executeRun(ctx, run, plan, progress); err != nil {
		return run, err
	}
	return run, nil
}

// StartRun plans and launches a run in the background. The returned record
// is in the running state; poll GetRun for the outcome.
func (s *RunService) StartRun(req *domain.RunRequest) (*domain.Run, error) {
	plan, err := s.Plan(req)
	if err != nil {
		return nil, err
	}
	run, err := s.newRun(plan)
	if err != nil {
		return nil, err
	}
	snapshot := *run
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		_ = s.executeRun(s.ctx, run, plan, nil)
	}()
	return &snapshot, nil
}

// Shutdown interrupts background runs and waits for their final status to
// be recorded, or for ctx to expire.
func (s *RunService) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RunService) executeRun(ctx context.Context, run *domain.Run, plan *RunPlan, progress func(int64)) error {
	stats, fingerprint, err := s.execute(ctx, plan, progress)
	if stats != nil {
		statsJSON, _ := json.Marshal(stats)
		run.Stats = statsJSON
	}
	if fingerprint != nil {
		run.Fingerprint = fingerprint.Hex()
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	switch {
	case err != nil:
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		s.logger.Errorw("run failed", map[string]any{"run_id": run.ID, "error": err})
	case stats.Failures > 0:
		run.Status = domain.RunStatusFailed
		run.Error = fmt.Sprintf("%d of %d operations failed (%d validation, %d execution)",
			stats.Failures, stats.Operations, stats.ValidationErrors, stats.ExecutionErrors)
		s.logger.Warnw("run completed with failures", map[string]any{"run_id": run.ID, "failures": stats.Failures})
	default:
		run.Status = domain.RunStatusSuccess
		s.logger.Infow("run completed", map[string]any{
			"run_id":      run.ID,
			"operations":  stats.Operations,
			"fingerprint": run.Fingerprint,
		})
	}

	if s.runRepo != nil {
		if uerr := s.runRepo.Update(run); uerr != nil {
			s.logger.Errorw("failed to update run", map[string]any{"run_id": run.ID, "error": uerr})
		}
	}
	return err
}

func (s *RunService) execute(ctx context.Context, plan *RunPlan, progress func(int64)) (*domain.RunStats, *hashing.Fingerprint, error) {
	p := plan.Profile
	sess, err := openSession(ctx, plan.Target, p.Consistency)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close()

	if plan.Command == domain.CommandWrite {
		if err := sess.EnsureSchema(ctx, schemaFor(&p)); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	rows, err := rowgen.NewFactory(plan.Population, rowgen.Config{
		KeySize: p.KeySize,
		Columns: p.Columns,
		ColumnSize: func() (distribution.Distribution, error) {
			return s.distRegistry.Parse(p.ColumnSize)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build row factory: %w", err)
	}

	fingerprint := hashing.NewFingerprint()
	opCfg := operation.Config{
		Keyspace:          p.Keyspace,
		Table:             p.Table,
		Consistency:       p.Consistency,
		SerialConsistency: p.SerialConsistency,
		MaxOperations:     plan.Operations,
		Fingerprint:       fingerprint,
		Logger:            s.opLogger,
	}

	var factory operation.Factory
	switch plan.Command {
	case domain.CommandWrite:
		factory, err = operation.NewWriteFactory(ctx, sess, rows, opCfg)
	case domain.CommandRead:
		factory, err = operation.NewReadFactory(ctx, sess, rows, opCfg)
	default:
		err = fmt.Errorf("invalid command: %s", plan.Command)
	}
	if err != nil {
		return nil, nil, err
	}

	stats, err := s.executor.Execute(ctx, factory, exec.Config{
		Concurrency: plan.Threads,
		Duration:    plan.Duration,
		Rate:        plan.Rate,
		Progress:    progress,
	})
	if errors.Is(err, context.Canceled) {
		return stats, fingerprint, fmt.Errorf("run interrupted: %w", err)
	}
	return stats, fingerprint, err
}

func (s *RunService) GetRun(id string) (*domain.Run, error) {
	if s.runRepo == nil {
		return nil, fmt.Errorf("%w: %s", runs.ErrNotFound, id)
	}
	return s.runRepo.Get(id)
}

func (s *RunService) ListRuns(limit int, status string) ([]*domain.Run, error) {
	if s.runRepo == nil {
		return []*domain.Run{}, nil
	}
	return s.runRepo.List(limit, status)
}
