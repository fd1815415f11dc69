package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"helloga/internal/model"
)

const (
	runFile           = "run.json"
	historyFile       = "fitness_history.json"
	diagnosticsFile   = "generation_diagnostics.json"
	diagnosticsCSV    = "generation_diagnostics.csv"
	historySummaryKey = "summary"
)

// RunArtifacts is everything exported for one stored run.
type RunArtifacts struct {
	Run              model.RunRecord
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
}

// HistorySummary condenses a best-by-generation series.
type HistorySummary struct {
	InitialBest float64 `json:"initial_best"`
	FinalBest   float64 `json:"final_best"`
	BestMean    float64 `json:"best_mean"`
	BestStd     float64 `json:"best_std"`
	Improvement float64 `json:"improvement"`
}

func SummarizeHistory(history []float64) HistorySummary {
	if len(history) == 0 {
		return HistorySummary{}
	}
	summary := HistorySummary{
		InitialBest: history[0],
		FinalBest:   history[len(history)-1],
	}
	if len(history) == 1 {
		summary.BestMean = history[0]
	} else {
		summary.BestMean, summary.BestStd = stat.MeanStdDev(history, nil)
	}
	// Lower is better, so improvement is how far the best fitness dropped.
	summary.Improvement = summary.InitialBest - summary.FinalBest
	return summary
}

// WriteRunArtifacts writes the run under outDir/<run id> and returns that
// directory.
func WriteRunArtifacts(outDir string, artifacts RunArtifacts) (string, error) {
	runID := strings.TrimSpace(artifacts.Run.ID)
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(outDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, historyFile), map[string]any{
		"best_by_generation": artifacts.BestByGeneration,
		historySummaryKey:    SummarizeHistory(artifacts.BestByGeneration),
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), artifacts.Diagnostics); err != nil {
		return "", err
	}
	if err := writeDiagnosticsCSV(filepath.Join(runDir, diagnosticsCSV), artifacts.Diagnostics); err != nil {
		return "", err
	}
	return runDir, nil
}

// ReadRunRecord loads the run record written by WriteRunArtifacts.
func ReadRunRecord(runDir string) (model.RunRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(runDir, runFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

func writeDiagnosticsCSV(path string, diagnostics []model.GenerationDiagnostics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness", "mean_fitness", "worst_fitness", "stddev_fitness", "diversity", "best_gene"}); err != nil {
		return err
	}
	for _, d := range diagnostics {
		if err := writer.Write([]string{
			strconv.Itoa(d.Generation),
			formatFloat(d.BestFitness),
			formatFloat(d.MeanFitness),
			formatFloat(d.WorstFitness),
			formatFloat(d.StdDevFitness),
			strconv.Itoa(d.Diversity),
			d.BestGene,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
