package helloga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"helloga/internal/chromosome"
	"helloga/internal/evo"
	"helloga/internal/metrics"
	"helloga/internal/model"
	"helloga/internal/stats"
	"helloga/internal/storage"
)

const (
	defaultDBPath      = "helloga.db"
	defaultPopulation  = 100
	defaultGenerations = 1000
)

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
	// Metrics, when set, observes every run started by the client.
	Metrics *metrics.Recorder
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Recorder

	initMu      sync.Mutex
	initialized bool
}

type RunRequest struct {
	RunID          string
	Problem        string
	Target         string
	Population     int
	CrossoverRate  float64
	ElitismRate    float64
	MutationRate   float64
	Generations    int
	FitnessGoal    float64
	Seed           int64
	Workers        int
	Selection      string
	TournamentSize int
	// Observers receive per-generation diagnostics for this run only.
	Observers []evo.GenerationObserver
}

// DefaultRunRequest returns the classic configuration: 100 members, 80%
// crossover, 10% elitism and 3% mutation toward "Hello, world!". Rates are
// taken verbatim by Run, so start from this value to keep the defaults.
func DefaultRunRequest() RunRequest {
	return RunRequest{
		Problem:        chromosome.TargetStringProblem,
		Target:         chromosome.DefaultTarget,
		Population:     defaultPopulation,
		CrossoverRate:  0.8,
		ElitismRate:    0.1,
		MutationRate:   0.03,
		Generations:    defaultGenerations,
		Selection:      "tournament",
		TournamentSize: evo.DefaultTournamentSize,
	}
}

type RunSummary struct {
	RunID            string
	Seed             int64
	Generations      int
	Converged        bool
	BestGene         string
	BestFitness      float64
	BestByGeneration []float64
	Elapsed          time.Duration
}

type RunsRequest struct {
	Limit int
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Problem == "" {
		req.Problem = chromosome.TargetStringProblem
	}
	if req.Population == 0 {
		req.Population = defaultPopulation
	}
	if req.Generations == 0 {
		req.Generations = defaultGenerations
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	genetics, err := chromosome.Resolve(req.Problem, req.Target)
	if err != nil {
		return RunSummary{}, err
	}
	selector, err := evo.SelectorByName(req.Selection, req.TournamentSize)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	logger := c.logger.With("run_id", req.RunID)
	observers := append([]evo.GenerationObserver(nil), req.Observers...)
	if c.metrics != nil {
		observers = append(observers, c.metrics)
	}
	monitor, err := evo.NewMonitor(evo.MonitorConfig{
		Genetics: genetics,
		Population: evo.PopulationConfig{
			Size:          req.Population,
			CrossoverRate: req.CrossoverRate,
			ElitismRate:   req.ElitismRate,
			MutationRate:  req.MutationRate,
			Seed:          req.Seed,
			Workers:       req.Workers,
			Selector:      selector,
		},
		Generations: req.Generations,
		FitnessGoal: req.FitnessGoal,
		Observers:   observers,
		Logger:      logger,
	})
	if err != nil {
		return RunSummary{}, err
	}

	createdAt := time.Now().UTC()
	logger.Info("run started",
		"problem", req.Problem,
		"population", req.Population,
		"generations", req.Generations,
		"seed", req.Seed,
	)
	result, err := monitor.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	record := model.RunRecord{
		VersionedRecord:  storage.CurrentVersion(),
		ID:               req.RunID,
		CreatedAtUTC:     createdAt.Format(model.TimestampLayout),
		Problem:          req.Problem,
		Target:           targetName(genetics, req.Target),
		PopulationSize:   req.Population,
		CrossoverRate:    req.CrossoverRate,
		ElitismRate:      req.ElitismRate,
		MutationRate:     req.MutationRate,
		GenerationLimit:  req.Generations,
		FitnessGoal:      req.FitnessGoal,
		Seed:             req.Seed,
		Workers:          req.Workers,
		Generations:      result.Generations,
		Converged:        result.Converged,
		FinalBestFitness: result.Best.Fitness,
		FinalBestGene:    result.Best.Gene.String(),
		ElapsedMS:        result.Elapsed.Milliseconds(),
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", req.RunID, err)
	}
	if err := c.store.SaveFitnessHistory(ctx, req.RunID, result.BestByGeneration); err != nil {
		return RunSummary{}, fmt.Errorf("save fitness history %s: %w", req.RunID, err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, req.RunID, result.Diagnostics); err != nil {
		return RunSummary{}, fmt.Errorf("save diagnostics %s: %w", req.RunID, err)
	}

	return RunSummary{
		RunID:            req.RunID,
		Seed:             req.Seed,
		Generations:      result.Generations,
		Converged:        result.Converged,
		BestGene:         result.Best.Gene.String(),
		BestFitness:      result.Best.Fitness,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		Elapsed:          result.Elapsed,
	}, nil
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListRuns(ctx, req.Limit)
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, req.Limit)
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, req.Limit)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

// Export writes a stored run's record, fitness history and diagnostics under
// OutDir/<run id> and returns that directory.
func (c *Client) Export(ctx context.Context, req ExportRequest) (string, error) {
	if req.OutDir == "" {
		return "", errors.New("export requires an output directory")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, 0)
	if err != nil {
		return "", err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("run not found: %s", runID)
	}
	history, _, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return "", err
	}
	diagnostics, _, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return "", err
	}
	return stats.WriteRunArtifacts(req.OutDir, stats.RunArtifacts{
		Run:              run,
		BestByGeneration: history,
		Diagnostics:      diagnostics,
	})
}

// Problems lists the registered problem names.
func Problems() []string {
	return chromosome.Names()
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool, limit int) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	if latest {
		runs, err := c.store.ListRuns(ctx, 1)
		if err != nil {
			return "", err
		}
		if len(runs) == 0 {
			return "", errors.New("no runs available")
		}
		runID = runs[0].ID
	}
	if runID == "" {
		return "", errors.New("run id or latest is required")
	}
	return runID, nil
}

func targetName(genetics chromosome.Genetics, requested string) string {
	if named, ok := genetics.(fmt.Stringer); ok {
		return named.String()
	}
	return requested
}
