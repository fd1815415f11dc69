package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"helloga/internal/metrics"
	"helloga/internal/storage"
	"helloga/pkg/helloga"
)

const defaultDBPath = "helloga.db"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "problems":
		return runProblems(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	defaults := helloga.DefaultRunRequest()

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config path (.json or .toml)")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	problem := fs.String("problem", defaults.Problem, "problem name (see the problems command)")
	target := fs.String("target", defaults.Target, "target string (printable ascii)")
	population := fs.Int("population", defaults.Population, "population size")
	crossover := fs.Float64("crossover", defaults.CrossoverRate, "crossover rate in [0,1]")
	elitism := fs.Float64("elitism", defaults.ElitismRate, "elitism rate in [0,1]")
	mutation := fs.Float64("mutation", defaults.MutationRate, "mutation rate in [0,1]")
	generations := fs.Int("generations", defaults.Generations, "generation limit")
	fitnessGoal := fs.Float64("fitness-goal", 0, "stop once best fitness is <= goal")
	seed := fs.Int64("seed", 0, "rng seed (0 seeds from the clock)")
	workers := fs.Int("workers", 0, "concurrent breeding tasks (0 uses GOMAXPROCS)")
	selection := fs.String("selection", defaults.Selection, "parent selection: tournament|elite")
	tournamentSize := fs.Int("tournament-size", defaults.TournamentSize, "tournament size (elite pool size for elite selection)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running (optional)")
	logLevel := fs.String("log-level", "warn", "log level: debug|info|warn|error")
	progressRate := fs.Float64("progress-rate", 4, "max progress reports per second (<=0 reports every generation)")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	logger, err := newLogger(*logLevel)
	if err != nil {
		return err
	}

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	overrideFromFlags(&req, setFlags, map[string]any{
		"run-id":          *runID,
		"problem":         *problem,
		"target":          *target,
		"population":      *population,
		"crossover":       *crossover,
		"elitism":         *elitism,
		"mutation":        *mutation,
		"generations":     *generations,
		"fitness-goal":    *fitnessGoal,
		"seed":            *seed,
		"workers":         *workers,
		"selection":       *selection,
		"tournament-size": *tournamentSize,
	})

	var recorder *metrics.Recorder
	if *metricsAddr != "" {
		recorder = metrics.NewRecorder()
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		addr, err := metrics.Serve(serveCtx, *metricsAddr, recorder, logger)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		fmt.Fprintf(os.Stderr, "metrics listening on http://%s/metrics\n", addr)
	}

	client, err := helloga.New(helloga.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPath,
		Logger:    logger,
		Metrics:   recorder,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	var progress *progressPrinter
	if !*quiet {
		progress = newProgressPrinter(os.Stderr, *progressRate)
		req.Observers = append(req.Observers, progress)
	}
	summary, err := client.Run(ctx, req)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s seed=%d generations=%d converged=%t\n",
		summary.RunID, summary.Seed, summary.Generations, summary.Converged)
	fmt.Printf("best_gene=%q best_fitness=%.6f elapsed=%s\n", summary.BestGene, summary.BestFitness, summary.Elapsed)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list (0 for all)")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}

	client, err := helloga.New(helloga.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, helloga.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return writeJSON(runs)
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s problem=%s target=%q pop=%d gens=%d converged=%t best_fitness=%.6f\n",
			r.ID, r.CreatedAtUTC, r.Problem, r.Target, r.PopulationSize, r.Generations, r.Converged, r.FinalBestFitness)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireRunSelector("fitness", *runID, *latest); err != nil {
		return err
	}

	client, err := helloga.New(helloga.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, helloga.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		return writeJSON(history)
	}
	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireRunSelector("diagnostics", *runID, *latest); err != nil {
		return err
	}

	client, err := helloga.New(helloga.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, helloga.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}
	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f worst=%.6f stddev=%.6f distinct=%d best_gene=%q\n",
			d.Generation, d.BestFitness, d.MeanFitness, d.WorstFitness, d.StdDevFitness, d.Diversity, d.BestGene)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "exports", "output directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireRunSelector("export", *runID, *latest); err != nil {
		return err
	}

	client, err := helloga.New(helloga.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runDir, err := client.Export(ctx, helloga.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run artifacts to %s\n", filepath.Clean(runDir))
	return nil
}

func runProblems(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("problems", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range helloga.Problems() {
		fmt.Println(name)
	}
	return nil
}

func requireRunSelector(command, runID string, latest bool) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: helloctl <run|runs|fitness|diagnostics|export|problems> [flags]", msg)
}
