package evo

import (
	"fmt"
	"math/rand"

	"helloga/internal/chromosome"
)

const DefaultTournamentSize = 3

// Selector chooses parents from a generation ranked by ascending fitness.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []chromosome.Chromosome) (chromosome.Chromosome, error)
}

// TournamentSelector samples Size candidates with replacement and picks the
// one with the lowest fitness.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []chromosome.Chromosome) (chromosome.Chromosome, error) {
	if rng == nil {
		return chromosome.Chromosome{}, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return chromosome.Chromosome{}, fmt.Errorf("cannot select from an empty population")
	}

	size := s.Size
	if size <= 0 {
		size = DefaultTournamentSize
	}

	best := ranked[rng.Intn(len(ranked))]
	for i := 1; i < size; i++ {
		candidate := ranked[rng.Intn(len(ranked))]
		if candidate.Fitness < best.Fitness {
			best = candidate
		}
	}
	return best, nil
}

// EliteSelector picks uniformly from the Count fittest members.
type EliteSelector struct {
	Count int
}

func (EliteSelector) Name() string {
	return "elite"
}

func (s EliteSelector) PickParent(rng *rand.Rand, ranked []chromosome.Chromosome) (chromosome.Chromosome, error) {
	if rng == nil {
		return chromosome.Chromosome{}, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return chromosome.Chromosome{}, fmt.Errorf("cannot select from an empty population")
	}
	count := s.Count
	if count <= 0 || count > len(ranked) {
		count = len(ranked)
	}
	return ranked[rng.Intn(count)], nil
}

// SelectorByName maps a configuration name to a selector. param is the
// tournament size or the elite pool size.
func SelectorByName(name string, param int) (Selector, error) {
	switch name {
	case "", "tournament":
		return TournamentSelector{Size: param}, nil
	case "elite":
		return EliteSelector{Count: param}, nil
	default:
		return nil, fmt.Errorf("unsupported selection: %s", name)
	}
}
