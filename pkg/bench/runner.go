// Package bench runs the configured traversal backends over the configured
// datasets, verifies every result and reports timings.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pjavanrood/csrbench/internal/config"
	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/pjavanrood/csrbench/pkg/backend"
	"github.com/pjavanrood/csrbench/pkg/bfs"
	"github.com/pjavanrood/csrbench/pkg/csr"
	"github.com/pjavanrood/csrbench/pkg/verify"
	"golang.org/x/time/rate"
)

var log = util.New("Runner", util.LogLevelInfo)

// SetLogLevel adjusts the package logger.
func SetLogLevel(level util.LogLevel) { log.SetLevel(level) }

// ReferenceSequential marks cells verified against the sequential backend
// instead of a golden file.
const ReferenceSequential = "sequential"

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
)

type namedTraverser struct {
	cfg config.BackendConfig
	tr  bfs.Traverser
}

// Runner executes every dataset x backend x source cell of a
// configuration. A Runner is used for one Run.
type Runner struct {
	cfg        *config.Config
	out        io.Writer
	output     bfs.Output
	cache      *graphCache
	metrics    *runMetrics
	limiter    *rate.Limiter
	traversers []namedTraverser
}

// NewRunner builds every configured backend. Verdict lines go to out.
func NewRunner(ctx context.Context, cfg *config.Config, out io.Writer) (*Runner, error) {
	output, err := bfs.ParseOutput(cfg.Traversal.Output)
	if err != nil {
		return nil, err
	}
	cache, err := newGraphCache(cfg.Runner.GraphCacheSize)
	if err != nil {
		return nil, err
	}
	m, err := newRunMetrics()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:     cfg,
		out:     out,
		output:  output,
		cache:   cache,
		metrics: m,
	}
	if cfg.Runner.TrialsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Runner.TrialsPerSecond), 1)
	}

	for _, bc := range cfg.Backends {
		tr, err := backend.New(ctx, bc, log)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.traversers = append(r.traversers, namedTraverser{cfg: bc, tr: tr})
	}
	return r, nil
}

// Close releases backend resources.
func (r *Runner) Close() error {
	var errs []error
	for _, nt := range r.traversers {
		if err := backend.Close(nt.tr); err != nil {
			errs = append(errs, err)
		}
	}
	r.traversers = nil
	return errors.Join(errs...)
}

// Run executes every cell. Per-cell problems, a malformed reference file
// included, are recorded as failing cells; a structurally invalid graph or
// an unreadable dataset aborts the run with an error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: start,
	}
	report.Config.Output = r.output.String()
	report.Config.Compare = r.cfg.Runner.Compare
	report.Config.Trials = r.cfg.Runner.Trials
	report.Config.Warmup = r.cfg.Runner.Warmup

	log.Printf("Run %s: %d datasets, %d backends, %d trials (%d warmup)",
		report.RunID, len(r.cfg.Datasets), len(r.traversers), r.cfg.Runner.Trials, r.cfg.Runner.Warmup)

	for _, ds := range r.cfg.Datasets {
		if err := r.runDataset(ctx, ds, report); err != nil {
			return report, err
		}
	}

	report.Counters = r.metrics.counters()
	report.Duration = time.Since(start)
	report.DurationMs = float64(report.Duration) / float64(time.Millisecond)
	log.Printf("Run %s finished: %d cells, %d failed", report.RunID, len(report.Cells), report.Failed())
	return report, nil
}

func (r *Runner) runDataset(ctx context.Context, ds config.DatasetConfig, report *Report) error {
	g, stats, err := r.cache.Get(ds)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", ds.Name, err)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("dataset %s: %w", ds.Name, err)
	}
	log.Printf("Dataset %s: %d vertices, %d edges (%d lines skipped)", ds.Name, g.NumVertices(), g.NumEdges(), stats.Skipped)

	var (
		golden *verify.Reference
		refErr error
	)
	if ds.Reference != "" {
		golden, err = verify.LoadReference(ds.Reference)
		if err != nil {
			refErr = err
			log.Warnf("Dataset %s: unusable reference %s: %v", ds.Name, ds.Reference, err)
		}
	}

	sources := r.sources(ds, g)
	seqRefs := make(map[int]*verify.Reference)

	for _, nt := range r.traversers {
		mode, err := verify.Resolve(r.cfg.Runner.Compare, r.output.String(), nt.cfg.Kind)
		if err != nil {
			return err
		}
		for _, src := range sources {
			cell := Cell{
				Dataset:   ds.Name,
				Backend:   nt.cfg.Name,
				Traverser: nt.tr.Name(),
				Source:    src,
				Mode:      mode.String(),
			}

			// a broken golden file fails every cell of its dataset
			if refErr != nil {
				cell.Verdict = VerdictFail
				cell.Reference = ds.Reference
				cell.Detail = refErr.Error()
				r.metrics.verdict(false)
				report.Cells = append(report.Cells, cell)
				r.printVerdict(cell)
				continue
			}

			var ref *verify.Reference
			if golden != nil && src == *ds.Source {
				ref = golden
				cell.Reference = golden.Path
			} else {
				cell.Reference = ReferenceSequential
				ref, err = r.sequentialReference(ctx, g, src, seqRefs)
				if err != nil && !errors.Is(err, bfs.ErrInvalidArgument) {
					return err
				}
			}

			if err := r.runCell(ctx, g, nt, ref, mode, &cell, report); err != nil {
				return err
			}
			report.Cells = append(report.Cells, cell)
			r.printVerdict(cell)
		}
	}
	return nil
}

// sources returns the dataset's configured source followed by its PageRank
// sources, without duplicates.
func (r *Runner) sources(ds config.DatasetConfig, g *csr.Graph) []int {
	sources := []int{*ds.Source}
	for _, v := range TopSourcesByPageRank(g, ds.PageRankSources) {
		if v != *ds.Source {
			sources = append(sources, v)
		}
	}
	return sources
}

func (r *Runner) sequentialReference(ctx context.Context, g *csr.Graph, src int, refs map[int]*verify.Reference) (*verify.Reference, error) {
	if ref, ok := refs[src]; ok {
		return ref, nil
	}
	res, err := bfs.NewSequential().Traverse(ctx, g, src)
	if err != nil {
		return nil, err
	}
	ref := &verify.Reference{Path: ReferenceSequential, Values: res.Values(r.output)}
	refs[src] = ref
	return ref, nil
}

// runCell performs the warmup and timed trials of one cell and verifies the
// last result. Only structural errors are returned.
func (r *Runner) runCell(ctx context.Context, g *csr.Graph, nt namedTraverser, ref *verify.Reference, mode verify.Mode, cell *Cell, report *Report) error {
	fail := func(err error) error {
		if errors.Is(err, csr.ErrStructural) {
			return err
		}
		cell.Verdict = VerdictFail
		cell.Detail = err.Error()
		r.metrics.verdict(false)
		return nil
	}

	for i := 0; i < r.cfg.Runner.Warmup; i++ {
		if _, err := nt.tr.Traverse(ctx, g, cell.Source); err != nil {
			return fail(err)
		}
	}

	var (
		last      *bfs.Result
		durations []time.Duration
	)
	for trial := 1; trial <= r.cfg.Runner.Trials; trial++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return fail(err)
			}
		}

		start := time.Now()
		res, err := nt.tr.Traverse(ctx, g, cell.Source)
		elapsed := time.Since(start)
		if err != nil {
			return fail(err)
		}
		r.metrics.traversal(nt.cfg.Name, start)

		durations = append(durations, elapsed)
		report.Measurements = append(report.Measurements, Measurement{
			Dataset:    cell.Dataset,
			Backend:    cell.Backend,
			Source:     cell.Source,
			Trial:      trial,
			Duration:   elapsed,
			DurationMs: float64(elapsed) / float64(time.Millisecond),
			Visited:    len(res.Order),
			Levels:     res.NumLevels,
			Timestamp:  start,
		})
		last = res
	}
	cell.Summary = Summarize(durations)
	if last == nil {
		return fail(errors.New("no timed trials"))
	}

	rep := verify.Verify(last.Values(r.output), ref, mode)
	r.metrics.verdict(rep.OK)
	if rep.OK {
		cell.Verdict = VerdictPass
	} else {
		cell.Verdict = VerdictFail
		cell.Detail = rep.String()
	}
	return nil
}

func (r *Runner) printVerdict(c Cell) {
	label := passLabel(c.Verdict)
	if !c.Passed() {
		label = failLabel(c.Verdict)
	}
	fmt.Fprintf(r.out, "%s %s/%s source=%d mean=%.3fms median=%.3fms (%s vs %s)\n",
		label, c.Dataset, c.Backend, c.Source, c.Summary.MeanMs, c.Summary.MedianMs, c.Mode, c.Reference)
	if c.Detail != "" {
		fmt.Fprintf(r.out, "    %s\n", c.Detail)
	}
}
