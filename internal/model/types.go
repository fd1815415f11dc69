package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// TimestampLayout is a fixed-width UTC layout, so timestamps written with it
// order the same as strings and as instants.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord summarizes one evolution run. It never carries population state.
type RunRecord struct {
	VersionedRecord
	ID               string  `json:"id"`
	CreatedAtUTC     string  `json:"created_at_utc"`
	Problem          string  `json:"problem"`
	Target           string  `json:"target"`
	PopulationSize   int     `json:"population_size"`
	CrossoverRate    float64 `json:"crossover_rate"`
	ElitismRate      float64 `json:"elitism_rate"`
	MutationRate     float64 `json:"mutation_rate"`
	GenerationLimit  int     `json:"generation_limit"`
	FitnessGoal      float64 `json:"fitness_goal"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	Generations      int     `json:"generations"`
	Converged        bool    `json:"converged"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	FinalBestGene    string  `json:"final_best_gene"`
	ElapsedMS        int64   `json:"elapsed_ms"`
}

type GenerationDiagnostics struct {
	Generation    int     `json:"generation"`
	BestFitness   float64 `json:"best_fitness"`
	WorstFitness  float64 `json:"worst_fitness"`
	MeanFitness   float64 `json:"mean_fitness"`
	StdDevFitness float64 `json:"stddev_fitness"`
	Diversity     int     `json:"diversity"`
	BestGene      string  `json:"best_gene"`
}
