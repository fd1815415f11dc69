package evo

import (
	"math/rand"
	"testing"

	"helloga/internal/chromosome"
)

func rankedByIndex(n int) []chromosome.Chromosome {
	ranked := make([]chromosome.Chromosome, n)
	for i := range ranked {
		ranked[i] = chromosome.Chromosome{Gene: chromosome.Gene{byte(i)}, Fitness: float64(i)}
	}
	return ranked
}

func TestTournamentSelectorBiasesTowardFitterMembers(t *testing.T) {
	ranked := rankedByIndex(100)
	rng := rand.New(rand.NewSource(17))
	selector := TournamentSelector{Size: DefaultTournamentSize}

	const trials = 5000
	tournamentTotal := 0.0
	uniformTotal := 0.0
	for i := 0; i < trials; i++ {
		parent, err := selector.PickParent(rng, ranked)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		tournamentTotal += parent.Fitness
		uniformTotal += ranked[rng.Intn(len(ranked))].Fitness
	}

	tournamentMean := tournamentTotal / trials
	uniformMean := uniformTotal / trials
	// The minimum of three uniform draws over [0, 99] has mean ~24.75.
	if tournamentMean > 32 {
		t.Fatalf("tournament mean rank too high: %.2f", tournamentMean)
	}
	if tournamentMean >= uniformMean {
		t.Fatalf("tournament is not better than uniform: tournament=%.2f uniform=%.2f", tournamentMean, uniformMean)
	}
}

func TestTournamentSelectorLargeTournamentFindsBest(t *testing.T) {
	ranked := rankedByIndex(10)
	rng := rand.New(rand.NewSource(5))
	selector := TournamentSelector{Size: 400}

	for i := 0; i < 20; i++ {
		parent, err := selector.PickParent(rng, ranked)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		if parent.Fitness != 0 {
			t.Fatalf("expected global best, got fitness %v", parent.Fitness)
		}
	}
}

func TestTournamentSelectorSingleMember(t *testing.T) {
	ranked := rankedByIndex(1)
	parent, err := TournamentSelector{}.PickParent(rand.New(rand.NewSource(1)), ranked)
	if err != nil {
		t.Fatalf("pick parent: %v", err)
	}
	if parent.Fitness != 0 {
		t.Fatalf("unexpected parent: %+v", parent)
	}
}

func TestSelectorsRejectInvalidInput(t *testing.T) {
	selectors := []Selector{TournamentSelector{}, EliteSelector{Count: 2}}
	for _, selector := range selectors {
		if _, err := selector.PickParent(nil, rankedByIndex(3)); err == nil {
			t.Fatalf("%s: expected nil random source error", selector.Name())
		}
		if _, err := selector.PickParent(rand.New(rand.NewSource(1)), nil); err == nil {
			t.Fatalf("%s: expected empty population error", selector.Name())
		}
	}
}

func TestEliteSelectorStaysInsideElitePool(t *testing.T) {
	ranked := rankedByIndex(20)
	rng := rand.New(rand.NewSource(9))
	selector := EliteSelector{Count: 4}
	for i := 0; i < 200; i++ {
		parent, err := selector.PickParent(rng, ranked)
		if err != nil {
			t.Fatalf("pick parent: %v", err)
		}
		if parent.Fitness >= 4 {
			t.Fatalf("picked outside elite pool: %v", parent.Fitness)
		}
	}
}

func TestSelectorByName(t *testing.T) {
	selector, err := SelectorByName("", 0)
	if err != nil {
		t.Fatalf("default selector: %v", err)
	}
	if selector.Name() != "tournament" {
		t.Fatalf("unexpected default selector: %s", selector.Name())
	}
	selector, err = SelectorByName("elite", 5)
	if err != nil {
		t.Fatalf("elite selector: %v", err)
	}
	if elite, ok := selector.(EliteSelector); !ok || elite.Count != 5 {
		t.Fatalf("unexpected elite selector: %#v", selector)
	}
	if _, err := SelectorByName("roulette", 0); err == nil {
		t.Fatal("expected unsupported selection error")
	}
}
