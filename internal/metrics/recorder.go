package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"helloga/internal/model"
)

// Recorder exports generation progress as Prometheus metrics. It implements
// evo.GenerationObserver and evo.FailureObserver.
type Recorder struct {
	registry *prometheus.Registry

	generations    prometheus.Counter
	failures       prometheus.Counter
	generation     prometheus.Gauge
	bestFitness    prometheus.Gauge
	meanFitness    prometheus.Gauge
	diversity      prometheus.Gauge
	evolveDuration prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helloga_generations_total",
			Help: "Generations evolved across all runs.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helloga_evolve_failures_total",
			Help: "Generations that failed to evolve.",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "helloga_generation",
			Help: "Current generation of the active run.",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "helloga_best_fitness",
			Help: "Best (lowest) fitness of the current generation.",
		}),
		meanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "helloga_mean_fitness",
			Help: "Mean fitness of the current generation.",
		}),
		diversity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "helloga_distinct_genes",
			Help: "Distinct genes in the current generation.",
		}),
		evolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helloga_evolve_duration_seconds",
			Help:    "Wall time spent producing one generation.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
	r.registry.MustRegister(
		r.generations,
		r.failures,
		r.generation,
		r.bestFitness,
		r.meanFitness,
		r.diversity,
		r.evolveDuration,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveGeneration(_ context.Context, diagnostics model.GenerationDiagnostics, elapsed time.Duration) {
	if diagnostics.Generation > 0 {
		r.generations.Inc()
		r.evolveDuration.Observe(elapsed.Seconds())
	}
	r.generation.Set(float64(diagnostics.Generation))
	r.bestFitness.Set(diagnostics.BestFitness)
	r.meanFitness.Set(diagnostics.MeanFitness)
	r.diversity.Set(float64(diagnostics.Diversity))
}

func (r *Recorder) ObserveFailure(_ context.Context, _ int, _ error) {
	r.failures.Inc()
}
