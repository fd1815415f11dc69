package helloga

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"helloga/internal/chromosome"
	"helloga/internal/evo"
	"helloga/internal/metrics"
	"helloga/internal/model"
	"helloga/internal/stats"
)

func newMemoryClient(t *testing.T, opts Options) *Client {
	t.Helper()
	opts.StoreKind = "memory"
	client, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func shortRunRequest() RunRequest {
	req := DefaultRunRequest()
	req.Target = "Hi!"
	req.Population = 60
	req.MutationRate = 0.5
	req.Generations = 5
	req.Seed = 42
	req.Workers = 2
	return req
}

func TestClientRunPersistsRunHistoryAndDiagnostics(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient(t, Options{})

	summary, err := client.Run(ctx, shortRunRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Seed != 42 {
		t.Fatalf("unexpected seed: %d", summary.Seed)
	}
	if len(summary.BestByGeneration) != summary.Generations+1 {
		t.Fatalf("expected %d history entries, got %d", summary.Generations+1, len(summary.BestByGeneration))
	}
	if len(summary.BestGene) != 3 {
		t.Fatalf("unexpected best gene: %q", summary.BestGene)
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID {
		t.Fatalf("expected run %s in runs list: %+v", summary.RunID, runs)
	}
	run := runs[0]
	if run.Target != "Hi!" || run.Problem != chromosome.TargetStringProblem {
		t.Fatalf("unexpected run record: %+v", run)
	}
	if run.FinalBestGene != summary.BestGene || run.FinalBestFitness != summary.BestFitness {
		t.Fatalf("run record does not match summary: %+v vs %+v", run, summary)
	}

	history, err := client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("fitness history: %v", err)
	}
	if len(history) != len(summary.BestByGeneration) {
		t.Fatalf("unexpected history length: %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i] > history[i-1] {
			t.Fatalf("best fitness regressed at generation %d: %v", i, history)
		}
	}

	diagnostics, err := client.Diagnostics(ctx, DiagnosticsRequest{Latest: true, Limit: 2})
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diagnostics) != 2 || diagnostics[0].Generation != 0 || diagnostics[1].Generation != 1 {
		t.Fatalf("unexpected diagnostics: %+v", diagnostics)
	}
}

func TestClientExportWritesRunArtifacts(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient(t, Options{})

	summary, err := client.Run(ctx, shortRunRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	outDir := t.TempDir()
	runDir, err := client.Export(ctx, ExportRequest{Latest: true, OutDir: outDir})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if runDir != filepath.Join(outDir, summary.RunID) {
		t.Fatalf("unexpected export dir: %s", runDir)
	}
	run, ok, err := stats.ReadRunRecord(runDir)
	if err != nil || !ok {
		t.Fatalf("read exported run: ok=%v err=%v", ok, err)
	}
	if run.ID != summary.RunID || run.FinalBestGene != summary.BestGene {
		t.Fatalf("unexpected exported run: %+v", run)
	}

	if _, err := client.Export(ctx, ExportRequest{RunID: "missing", OutDir: outDir}); err == nil {
		t.Fatal("expected missing run error")
	}
	if _, err := client.Export(ctx, ExportRequest{Latest: true}); err == nil {
		t.Fatal("expected missing output dir error")
	}
}

func TestClientRunConvergesOnShortTarget(t *testing.T) {
	client := newMemoryClient(t, Options{})

	req := shortRunRequest()
	req.Population = 200
	req.Generations = 500
	req.Seed = 1
	summary, err := client.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !summary.Converged || summary.BestGene != "Hi!" || summary.BestFitness != 0 {
		t.Fatalf("expected convergence, got %+v", summary)
	}
	if summary.Generations >= req.Generations {
		t.Fatalf("expected early stop, ran %d generations", summary.Generations)
	}
}

func TestClientRunIsDeterministicForSeed(t *testing.T) {
	client := newMemoryClient(t, Options{})

	first, err := client.Run(context.Background(), shortRunRequest())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	req := shortRunRequest()
	req.Workers = 7
	second, err := client.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.RunID == second.RunID {
		t.Fatal("expected distinct run ids")
	}
	if first.BestGene != second.BestGene || len(first.BestByGeneration) != len(second.BestByGeneration) {
		t.Fatalf("expected same outcome for same seed: %+v vs %+v", first, second)
	}
	for i := range first.BestByGeneration {
		if first.BestByGeneration[i] != second.BestByGeneration[i] {
			t.Fatalf("history diverged at generation %d", i)
		}
	}
}

func TestClientRunFeedsObserversAndMetrics(t *testing.T) {
	recorder := metrics.NewRecorder()
	client := newMemoryClient(t, Options{Metrics: recorder})

	var seen []int
	req := shortRunRequest()
	req.Observers = []evo.GenerationObserver{
		evo.ObserverFunc(func(_ context.Context, diagnostics model.GenerationDiagnostics, _ time.Duration) {
			seen = append(seen, diagnostics.Generation)
		}),
	}
	summary, err := client.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(seen) != summary.Generations+1 {
		t.Fatalf("expected %d observations, got %v", summary.Generations+1, seen)
	}

	count, err := testutil.GatherAndCount(recorder.Registry(), "helloga_generations_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected generations counter to be exported, got %d series", count)
	}
	expected := strings.NewReader("# HELP helloga_generation Current generation of the active run.\n# TYPE helloga_generation gauge\nhelloga_generation " + strconv.Itoa(summary.Generations) + "\n")
	if err := testutil.GatherAndCompare(recorder.Registry(), expected, "helloga_generation"); err != nil {
		t.Fatalf("unexpected generation gauge: %v", err)
	}
}

func TestClientRunValidatesRequest(t *testing.T) {
	client := newMemoryClient(t, Options{})
	ctx := context.Background()

	cases := map[string]func(*RunRequest){
		"unknown problem": func(r *RunRequest) { r.Problem = "knapsack" },
		"bad target":      func(r *RunRequest) { r.Target = "tab\there" },
		"bad selection":   func(r *RunRequest) { r.Selection = "roulette" },
		"negative size":   func(r *RunRequest) { r.Population = -1 },
		"crossover rate":  func(r *RunRequest) { r.CrossoverRate = 1.5 },
		"negative goal":   func(r *RunRequest) { r.FitnessGoal = -1 },
	}
	for name, mutate := range cases {
		req := shortRunRequest()
		mutate(&req)
		if _, err := client.Run(ctx, req); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("invalid runs must not be persisted: %+v", runs)
	}
}

func TestClientRunHonorsCanceledContext(t *testing.T) {
	client := newMemoryClient(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Run(ctx, shortRunRequest()); err == nil {
		t.Fatal("expected canceled run to fail")
	}
}

func TestClientLookupValidation(t *testing.T) {
	client := newMemoryClient(t, Options{})
	ctx := context.Background()

	if _, err := client.FitnessHistory(ctx, FitnessHistoryRequest{Latest: true}); err == nil || !strings.Contains(err.Error(), "no runs available") {
		t.Fatalf("expected no runs error, got %v", err)
	}
	if _, err := client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected run id and latest conflict")
	}
	if _, err := client.FitnessHistory(ctx, FitnessHistoryRequest{}); err == nil {
		t.Fatal("expected missing run id error")
	}
	if _, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: "missing"}); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: "x", Limit: -1}); err == nil {
		t.Fatal("expected negative limit error")
	}
	if _, err := client.Runs(ctx, RunsRequest{Limit: -1}); err == nil {
		t.Fatal("expected negative limit error")
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "etcd"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestProblemsListsTargetString(t *testing.T) {
	for _, name := range Problems() {
		if name == chromosome.TargetStringProblem {
			return
		}
	}
	t.Fatalf("expected %s in %v", chromosome.TargetStringProblem, Problems())
}
