package chromosome

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

const TargetStringProblem = "target_string"

var (
	ErrProblemExists   = errors.New("problem already registered")
	ErrProblemNotFound = errors.New("problem not found")
)

// Factory builds the genetics for a problem instance described by target.
type Factory func(target string) (Genetics, error)

var problemRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: defaultProblems(),
}

func defaultProblems() map[string]Factory {
	return map[string]Factory{
		TargetStringProblem: func(target string) (Genetics, error) {
			if target == "" {
				target = DefaultTarget
			}
			return NewTarget(target)
		},
	}
}

// Register adds a named problem factory.
func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("problem name is required")
	}
	if factory == nil {
		return errors.New("problem factory is required")
	}

	problemRegistry.mu.Lock()
	defer problemRegistry.mu.Unlock()

	if _, exists := problemRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrProblemExists, name)
	}
	problemRegistry.m[name] = factory
	return nil
}

// Resolve builds the genetics registered under name for target.
func Resolve(name, target string) (Genetics, error) {
	problemRegistry.mu.RLock()
	factory, ok := problemRegistry.m[name]
	problemRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProblemNotFound, name)
	}
	genetics, err := factory(target)
	if err != nil {
		return nil, fmt.Errorf("build problem %s: %w", name, err)
	}
	return genetics, nil
}

func Names() []string {
	problemRegistry.mu.RLock()
	defer problemRegistry.mu.RUnlock()

	names := make([]string, 0, len(problemRegistry.m))
	for name := range problemRegistry.m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func resetProblemRegistryForTests() {
	problemRegistry.mu.Lock()
	defer problemRegistry.mu.Unlock()
	problemRegistry.m = defaultProblems()
}
