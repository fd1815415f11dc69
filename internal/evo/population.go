package evo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"

	"helloga/internal/chromosome"
)

var (
	ErrInvalidSize      = errors.New("population size must be > 0")
	ErrInvalidRate      = errors.New("rate must be a finite number in [0, 1]")
	ErrGeneticsRequired = errors.New("genetics is required")
	ErrEvolveFailed     = errors.New("evolve failed")
	ErrShortGeneration  = errors.New("generation smaller than population size")
)

type PopulationConfig struct {
	Size          int
	CrossoverRate float64
	ElitismRate   float64
	MutationRate  float64
	Seed          int64
	// Workers bounds the number of concurrent offspring tasks.
	Workers  int
	Selector Selector
	Logger   *slog.Logger
}

// Population holds one generation of chromosomes sorted by ascending fitness.
// Accessors are safe to call while Evolve runs; concurrent Evolve calls are
// serialized.
type Population struct {
	genetics   chromosome.Genetics
	cfg        PopulationConfig
	eliteCount int
	logger     *slog.Logger

	evolveMu sync.Mutex
	rng      *rand.Rand

	mu         sync.RWMutex
	members    []chromosome.Chromosome
	generation int
}

func NewPopulation(ctx context.Context, genetics chromosome.Genetics, cfg PopulationConfig) (*Population, error) {
	if genetics == nil {
		return nil, ErrGeneticsRequired
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: got=%d", ErrInvalidSize, cfg.Size)
	}
	rates := []struct {
		name  string
		value float64
	}{
		{name: "crossover", value: cfg.CrossoverRate},
		{name: "elitism", value: cfg.ElitismRate},
		{name: "mutation", value: cfg.MutationRate},
	}
	for _, rate := range rates {
		if !validRate(rate.value) {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidRate, rate.name, rate.value)
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Selector == nil {
		cfg.Selector = TournamentSelector{Size: DefaultTournamentSize}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Population{
		genetics:   genetics,
		cfg:        cfg,
		eliteCount: int(math.Round(float64(cfg.Size) * cfg.ElitismRate)),
		logger:     cfg.Logger,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
	}

	members := make([]chromosome.Chromosome, 0, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gene, err := genetics.RandomGene(p.rng)
		if err != nil {
			return nil, fmt.Errorf("generate member %d: %w", i, err)
		}
		members = append(members, chromosome.New(genetics, gene))
	}
	sortByFitness(members)
	p.members = members

	p.logger.Debug("population created",
		"size", cfg.Size,
		"elite_count", p.eliteCount,
		"best_fitness", members[0].Fitness,
	)
	return p, nil
}

// Evolve replaces the population with the next generation. On error the
// current generation is left untouched.
func (p *Population) Evolve(ctx context.Context) error {
	p.evolveMu.Lock()
	defer p.evolveMu.Unlock()

	p.mu.RLock()
	ranked := p.members
	generation := p.generation + 1
	p.mu.RUnlock()

	slots := p.cfg.Size - p.eliteCount
	seeds := make([]int64, slots)
	for i := range seeds {
		seeds[i] = p.rng.Int63()
	}

	offspring := make([][]chromosome.Chromosome, slots)
	if slots > 0 {
		workers := p.cfg.Workers
		if workers > slots {
			workers = slots
		}
		tasks := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
		for i := 0; i < slots; i++ {
			slot := p.eliteCount + i
			seed := seeds[i]
			out := &offspring[i]
			tasks.Go(func(ctx context.Context) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				children, err := p.breed(rand.New(rand.NewSource(seed)), ranked, slot)
				if err != nil {
					return fmt.Errorf("slot %d: %w", slot, err)
				}
				*out = children
				return nil
			})
		}
		if err := tasks.Wait(); err != nil {
			return fmt.Errorf("%w: generation %d: %w", ErrEvolveFailed, generation, err)
		}
	}

	next := make([]chromosome.Chromosome, 0, p.eliteCount+2*slots)
	next = append(next, ranked[:p.eliteCount]...)
	for _, children := range offspring {
		next = append(next, children...)
	}
	if len(next) < p.cfg.Size {
		return fmt.Errorf("%w: generation %d: got=%d want=%d", ErrShortGeneration, generation, len(next), p.cfg.Size)
	}
	sortByFitness(next)
	next = slices.Clip(next[:p.cfg.Size])

	p.mu.Lock()
	p.members = next
	p.generation = generation
	p.mu.Unlock()

	p.logger.Debug("generation evolved",
		"generation", generation,
		"best_fitness", next[0].Fitness,
		"best_gene", next[0].Gene.String(),
	)
	return nil
}

// breed produces the offspring for one non-elite slot of ranked.
func (p *Population) breed(rng *rand.Rand, ranked []chromosome.Chromosome, slot int) ([]chromosome.Chromosome, error) {
	r := rng.Float64()
	if p.cfg.CrossoverRate > 0 && r <= p.cfg.CrossoverRate {
		first, err := p.cfg.Selector.PickParent(rng, ranked)
		if err != nil {
			return nil, fmt.Errorf("select first parent: %w", err)
		}
		second, err := p.cfg.Selector.PickParent(rng, ranked)
		if err != nil {
			return nil, fmt.Errorf("select second parent: %w", err)
		}
		genes, err := p.genetics.Mate(rng, first.Gene, second.Gene)
		if err != nil {
			return nil, fmt.Errorf("mate: %w", err)
		}
		children := make([]chromosome.Chromosome, 0, len(genes))
		for _, gene := range genes {
			gene, err = p.maybeMutate(rng, gene)
			if err != nil {
				return nil, err
			}
			children = append(children, chromosome.New(p.genetics, gene))
		}
		return children, nil
	}

	// The mutation-only path keeps the member at the slot's own position.
	gene, err := p.maybeMutate(rng, ranked[slot].Gene)
	if err != nil {
		return nil, err
	}
	return []chromosome.Chromosome{chromosome.New(p.genetics, gene)}, nil
}

func (p *Population) maybeMutate(rng *rand.Rand, gene chromosome.Gene) (chromosome.Gene, error) {
	if rng.Float64() >= p.cfg.MutationRate {
		return gene, nil
	}
	mutated, err := p.genetics.Mutate(rng, gene)
	if err != nil {
		return nil, fmt.Errorf("mutate: %w", err)
	}
	return mutated, nil
}

// Members returns a copy of the current generation, best first.
func (p *Population) Members() []chromosome.Chromosome {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]chromosome.Chromosome, len(p.members))
	for i, member := range p.members {
		out[i] = member.Clone()
	}
	return out
}

func (p *Population) Best() chromosome.Chromosome {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.members[0].Clone()
}

func (p *Population) Generation() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

func (p *Population) Size() int {
	return p.cfg.Size
}

func (p *Population) EliteCount() int {
	return p.eliteCount
}

func (p *Population) Config() PopulationConfig {
	return p.cfg
}

func sortByFitness(members []chromosome.Chromosome) {
	slices.SortStableFunc(members, func(a, b chromosome.Chromosome) int {
		return cmp.Compare(a.Fitness, b.Fitness)
	})
}

func validRate(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
