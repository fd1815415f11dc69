package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"

	"helloga/internal/evo"
	"helloga/internal/model"
)

// progressPrinter reports generations as they complete. Reports are
// throttled; Finish always prints the last generation seen.
type progressPrinter struct {
	out     io.Writer
	inPlace bool
	limiter *rate.Limiter

	mu      sync.Mutex
	last    model.GenerationDiagnostics
	seen    bool
	pending bool
	printed bool
}

// newProgressPrinter limits output to perSecond reports. perSecond <= 0
// reports every generation.
func newProgressPrinter(out io.Writer, perSecond float64) *progressPrinter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &progressPrinter{
		out:     out,
		inPlace: isTerminal(out),
		limiter: rate.NewLimiter(limit, 1),
	}
}

var _ evo.GenerationObserver = (*progressPrinter)(nil)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *progressPrinter) ObserveGeneration(_ context.Context, diagnostics model.GenerationDiagnostics, _ time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = diagnostics
	p.seen = true
	if !p.limiter.Allow() {
		p.pending = true
		return
	}
	p.print(diagnostics)
}

func (p *progressPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending && p.seen {
		p.print(p.last)
	}
	if p.inPlace && p.printed {
		fmt.Fprintln(p.out)
	}
}

func (p *progressPrinter) print(diagnostics model.GenerationDiagnostics) {
	line := formatProgress(diagnostics)
	if p.inPlace {
		fmt.Fprintf(p.out, "\r\x1b[K%s", line)
	} else {
		fmt.Fprintln(p.out, line)
	}
	p.pending = false
	p.printed = true
}

func formatProgress(diagnostics model.GenerationDiagnostics) string {
	return fmt.Sprintf("generation %s best_fitness=%s mean_fitness=%.2f distinct=%s best=%q",
		humanize.Comma(int64(diagnostics.Generation)),
		humanize.Ftoa(diagnostics.BestFitness),
		diagnostics.MeanFitness,
		humanize.Comma(int64(diagnostics.Diversity)),
		diagnostics.BestGene,
	)
}
