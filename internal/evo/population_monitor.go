package evo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"helloga/internal/chromosome"
	"helloga/internal/model"
)

// GenerationObserver is notified after the initial population is built and
// after every evolved generation.
type GenerationObserver interface {
	ObserveGeneration(ctx context.Context, diagnostics model.GenerationDiagnostics, elapsed time.Duration)
}

// FailureObserver is an optional GenerationObserver extension notified when
// a generation fails to evolve.
type FailureObserver interface {
	ObserveFailure(ctx context.Context, generation int, err error)
}

type ObserverFunc func(ctx context.Context, diagnostics model.GenerationDiagnostics, elapsed time.Duration)

func (f ObserverFunc) ObserveGeneration(ctx context.Context, diagnostics model.GenerationDiagnostics, elapsed time.Duration) {
	f(ctx, diagnostics, elapsed)
}

type MonitorConfig struct {
	Genetics    chromosome.Genetics
	Population  PopulationConfig
	Generations int
	// FitnessGoal stops the run once the best fitness is at or below it.
	FitnessGoal float64
	Observers   []GenerationObserver
	Logger      *slog.Logger
}

type RunResult struct {
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	Best             chromosome.Chromosome
	Generations      int
	Converged        bool
	Elapsed          time.Duration
}

// Monitor drives a population through generations until it reaches the
// fitness goal or the generation limit.
type Monitor struct {
	cfg MonitorConfig
}

func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.Genetics == nil {
		return nil, ErrGeneticsRequired
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if cfg.FitnessGoal < 0 {
		return nil, fmt.Errorf("fitness goal must be >= 0")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Population.Logger == nil {
		cfg.Population.Logger = cfg.Logger
	}
	return &Monitor{cfg: cfg}, nil
}

func (m *Monitor) Run(ctx context.Context) (RunResult, error) {
	started := time.Now()
	population, err := NewPopulation(ctx, m.cfg.Genetics, m.cfg.Population)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		BestByGeneration: make([]float64, 0, m.cfg.Generations+1),
		Diagnostics:      make([]model.GenerationDiagnostics, 0, m.cfg.Generations+1),
	}
	m.record(ctx, &result, population, time.Since(started))

	for population.Generation() < m.cfg.Generations && population.Best().Fitness > m.cfg.FitnessGoal {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		evolveStarted := time.Now()
		if err := population.Evolve(ctx); err != nil {
			m.notifyFailure(ctx, population.Generation()+1, err)
			return RunResult{}, err
		}
		m.record(ctx, &result, population, time.Since(evolveStarted))
	}

	result.Best = population.Best()
	result.Generations = population.Generation()
	result.Converged = result.Best.Fitness <= m.cfg.FitnessGoal
	result.Elapsed = time.Since(started)

	m.cfg.Logger.Info("run finished",
		"generations", result.Generations,
		"converged", result.Converged,
		"best_fitness", result.Best.Fitness,
		"best_gene", result.Best.Gene.String(),
		"elapsed", result.Elapsed,
	)
	return result, nil
}

func (m *Monitor) record(ctx context.Context, result *RunResult, population *Population, elapsed time.Duration) {
	diagnostics := Summarize(population.Generation(), population.Members())
	result.BestByGeneration = append(result.BestByGeneration, diagnostics.BestFitness)
	result.Diagnostics = append(result.Diagnostics, diagnostics)
	for _, observer := range m.cfg.Observers {
		observer.ObserveGeneration(ctx, diagnostics, elapsed)
	}
}

func (m *Monitor) notifyFailure(ctx context.Context, generation int, err error) {
	m.cfg.Logger.Error("evolve failed", "generation", generation, "error", err)
	for _, observer := range m.cfg.Observers {
		if failure, ok := observer.(FailureObserver); ok {
			failure.ObserveFailure(ctx, generation, err)
		}
	}
}
