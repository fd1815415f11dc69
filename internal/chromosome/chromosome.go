package chromosome

import (
	"math/rand"
)

// Gene is the encoded form of one candidate solution.
type Gene []byte

func (g Gene) String() string {
	return string(g)
}

// Clone returns an independent copy of the gene.
func (g Gene) Clone() Gene {
	if g == nil {
		return nil
	}
	return append(Gene(nil), g...)
}

// Genetics is the capability a population consumes to create, score and
// recombine genes. Implementations must not modify genes passed to Mutate or
// Mate; the engine shares parent genes across concurrent tasks.
type Genetics interface {
	RandomGene(rng *rand.Rand) (Gene, error)
	Fitness(gene Gene) float64
	Mutate(rng *rand.Rand, gene Gene) (Gene, error)
	Mate(rng *rand.Rand, a, b Gene) ([]Gene, error)
}

// Chromosome pairs a gene with its fitness. Lower fitness is better and 0 is
// an exact match.
type Chromosome struct {
	Gene    Gene
	Fitness float64
}

// New scores gene with genetics.
func New(genetics Genetics, gene Gene) Chromosome {
	return Chromosome{Gene: gene, Fitness: genetics.Fitness(gene)}
}

// Clone returns a chromosome with its own copy of the gene.
func (c Chromosome) Clone() Chromosome {
	return Chromosome{Gene: c.Gene.Clone(), Fitness: c.Fitness}
}
