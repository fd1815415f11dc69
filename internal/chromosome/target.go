package chromosome

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	DefaultTarget = "Hello, world!"

	minSymbol = ' '
	maxSymbol = '~'
	// missingSymbolCost is charged for every position where a gene and the
	// target differ in length.
	missingSymbolCost = maxSymbol - minSymbol
	// maxShift bounds how far a single mutation moves one symbol.
	maxShift = 5
)

var (
	ErrInvalidTarget = errors.New("invalid target")
	ErrGeneLength    = errors.New("gene length mismatch")
)

// Target evolves printable ASCII strings toward a fixed target string.
type Target struct {
	target Gene
}

func NewTarget(target string) (*Target, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: target is empty", ErrInvalidTarget)
	}
	for i := 0; i < len(target); i++ {
		if target[i] < minSymbol || target[i] > maxSymbol {
			return nil, fmt.Errorf("%w: byte %#x at %d is not printable ascii", ErrInvalidTarget, target[i], i)
		}
	}
	return &Target{target: Gene(target)}, nil
}

func (t *Target) String() string {
	return string(t.target)
}

func (t *Target) Len() int {
	return len(t.target)
}

func (t *Target) RandomGene(rng *rand.Rand) (Gene, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	gene := make(Gene, len(t.target))
	for i := range gene {
		gene[i] = randomSymbol(rng)
	}
	return gene, nil
}

func (t *Target) Fitness(gene Gene) float64 {
	n := len(t.target)
	if len(gene) < n {
		n = len(gene)
	}
	total := 0
	for i := 0; i < n; i++ {
		d := int(gene[i]) - int(t.target[i])
		if d < 0 {
			d = -d
		}
		total += d
	}
	extra := len(gene) - len(t.target)
	if extra < 0 {
		extra = -extra
	}
	total += extra * missingSymbolCost
	return float64(total)
}

func (t *Target) Mutate(rng *rand.Rand, gene Gene) (Gene, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := t.checkLength(gene); err != nil {
		return nil, err
	}
	out := gene.Clone()
	i := rng.Intn(len(out))
	delta := 1 + rng.Intn(maxShift)
	if rng.Intn(2) == 0 {
		delta = -delta
	}
	out[i] = clampSymbol(int(out[i]) + delta)
	return out, nil
}

// Mate performs single point crossover and returns both children.
func (t *Target) Mate(rng *rand.Rand, a, b Gene) ([]Gene, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := t.checkLength(a); err != nil {
		return nil, err
	}
	if err := t.checkLength(b); err != nil {
		return nil, err
	}
	pivot := rng.Intn(len(a))

	first := make(Gene, 0, len(a))
	first = append(first, a[:pivot]...)
	first = append(first, b[pivot:]...)

	second := make(Gene, 0, len(b))
	second = append(second, b[:pivot]...)
	second = append(second, a[pivot:]...)
	return []Gene{first, second}, nil
}

func (t *Target) checkLength(gene Gene) error {
	if len(gene) != len(t.target) {
		return fmt.Errorf("%w: got=%d want=%d", ErrGeneLength, len(gene), len(t.target))
	}
	return nil
}

func clampSymbol(v int) byte {
	if v < minSymbol {
		return minSymbol
	}
	if v > maxSymbol {
		return maxSymbol
	}
	return byte(v)
}

func randomSymbol(rng *rand.Rand) byte {
	return byte(minSymbol + rng.Intn(maxSymbol-minSymbol+1))
}
