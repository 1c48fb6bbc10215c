package batch

import (
	"context"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Outcome is the result of one job.
type Outcome struct {
	Job      Job
	Output   Output
	Err      error
	Duration time.Duration
}

// Report collects the outcomes of a walk, in execution order.
type Report struct {
	RunID    string
	Root     string
	Outcomes []Outcome
}

// Failed returns the outcomes that ended in an error.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Summary condenses a Report.
type Summary struct {
	Directories int
	Failed      int
	Files       int
	Bytes       int64

	// MeanFiles and StdDevFiles describe the number of files per directory
	MeanFiles   float64
	StdDevFiles float64
}

// Summary computes counts and the distribution of series sizes.
func (r *Report) Summary() Summary {
	s := Summary{Directories: len(r.Outcomes)}
	counts := make([]float64, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Err != nil {
			s.Failed++
		}
		s.Files += len(o.Job.Files)
		s.Bytes += o.Output.Bytes
		counts = append(counts, float64(len(o.Job.Files)))
	}
	if len(counts) > 0 {
		s.MeanFiles = stat.Mean(counts, nil)
	}
	if len(counts) > 1 {
		s.StdDevFiles = stat.StdDev(counts, nil)
	}
	if math.IsNaN(s.StdDevFiles) {
		s.StdDevFiles = 0
	}
	return s
}

// Driver walks a tree and converts every directory with a Runner.
type Driver struct {
	runner Runner
	opts   PlanOptions
	logger *zap.Logger

	// dirFS opens the tree rooted at a path
	dirFS func(root string) fs.FS
}

// NewDriver returns a Driver that converts directories with runner.
func NewDriver(runner Runner, opts PlanOptions, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		runner: runner,
		opts:   opts,
		logger: logger,
		dirFS:  os.DirFS,
	}
}

// Walk converts every directory under root that directly contains files,
// deepest directories first. A failing or unreadable directory is recorded
// in the report and the walk moves on. Walk returns an error only when root
// cannot be read or ctx is cancelled; the report is returned in both cases.
func (d *Driver) Walk(ctx context.Context, root string) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Root: root}
	logger := d.logger.With(zap.String("run", report.RunID))

	jobs, err := Plan(d.dirFS(root), root, d.opts)
	if err != nil {
		return report, err
	}
	logger.Info("planned batch", zap.String("root", root), zap.Int("directories", len(jobs)))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if job.Err != nil {
			report.Outcomes = append(report.Outcomes, Outcome{Job: job, Err: job.Err})
			logger.Error("directory unreadable", zap.String("dir", job.Dir), zap.Error(job.Err))
			continue
		}

		start := time.Now()
		out, err := runIsolated(ctx, d.runner, job)
		o := Outcome{Job: job, Output: out, Err: err, Duration: time.Since(start)}
		report.Outcomes = append(report.Outcomes, o)

		if err != nil {
			logger.Error("directory failed", zap.String("dir", job.Dir), zap.Error(err))
			continue
		}
		logger.Info("directory converted",
			zap.String("dir", job.Dir),
			zap.String("output", out.Path),
			zap.Int("files", len(job.Files)),
			zap.Duration("took", o.Duration))
	}

	s := report.Summary()
	logger.Info("batch finished",
		zap.Int("directories", s.Directories),
		zap.Int("failed", s.Failed),
		zap.Int("files", s.Files),
		zap.String("written", humanize.Bytes(uint64(s.Bytes))),
		zap.Float64("meanFilesPerDir", s.MeanFiles),
		zap.Float64("stdDevFilesPerDir", s.StdDevFiles))
	return report, nil
}
