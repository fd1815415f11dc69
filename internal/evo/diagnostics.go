package evo

import (
	"gonum.org/v1/gonum/stat"

	"helloga/internal/chromosome"
	"helloga/internal/model"
)

// Summarize reports fitness statistics for members, which must be sorted by
// ascending fitness.
func Summarize(generation int, members []chromosome.Chromosome) model.GenerationDiagnostics {
	if len(members) == 0 {
		return model.GenerationDiagnostics{Generation: generation}
	}

	fitness := make([]float64, len(members))
	genes := make(map[string]struct{}, len(members))
	for i, member := range members {
		fitness[i] = member.Fitness
		genes[string(member.Gene)] = struct{}{}
	}

	mean, stdDev := stat.MeanStdDev(fitness, nil)
	if len(members) == 1 {
		stdDev = 0
	}
	return model.GenerationDiagnostics{
		Generation:    generation,
		BestFitness:   members[0].Fitness,
		WorstFitness:  members[len(members)-1].Fitness,
		MeanFitness:   mean,
		StdDevFitness: stdDev,
		Diversity:     len(genes),
		BestGene:      members[0].Gene.String(),
	}
}
