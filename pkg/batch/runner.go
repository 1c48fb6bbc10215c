package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dicomcat/pkg/concat"
	"dicomcat/pkg/dicomio"
)

// Output is what a Runner reports for a finished job.
type Output struct {
	// Path of the volume, when known
	Path string

	// Bytes written, when known
	Bytes int64
}

// Runner converts one directory.
type Runner interface {
	Run(ctx context.Context, job Job) (Output, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, job Job) (Output, error)

// Run calls f(ctx, job).
func (f RunnerFunc) Run(ctx context.Context, job Job) (Output, error) {
	return f(ctx, job)
}

// PipelineRunner concatenates a job in-process, in check mode, with the
// directory name as prefix. Every job gets its own Concatenator.
type PipelineRunner struct {
	Opener     dicomio.Opener
	OutputDir  string
	SinglePass bool
	Digest     bool
	Progress   io.Writer
	Logger     *zap.Logger
}

func (r *PipelineRunner) Run(_ context.Context, job Job) (Output, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	params := &concat.Params{
		Files:      job.Files,
		Prefix:     job.Prefix,
		OutputDir:  r.OutputDir,
		Check:      true,
		SinglePass: r.SinglePass,
		Digest:     r.Digest,
	}
	// prefixed output never touches stdout
	c := concat.NewConcatenator(params, r.Opener, io.Discard, r.Progress, logger)
	res, err := c.Process()
	if err != nil {
		return Output{}, err
	}
	if res.Digest != "" {
		logger.Info("volume digest", zap.String("output", res.Output), zap.String("xxh3", res.Digest))
	}
	return Output{Path: res.Output, Bytes: res.Bytes}, nil
}

// ExecRunner runs every job through a separate dicomcat process:
//
//	dicomcat --check --prefix PREFIX [--output-dir DIR] FILE...
//
// A crash of the child only fails that job.
type ExecRunner struct {
	Executable string
	OutputDir  string
	ExtraArgs  []string

	// Stderr receives the child's progress output
	Stderr io.Writer
}

func (r *ExecRunner) Args(job Job) []string {
	args := []string{"--check", "--prefix", job.Prefix}
	if r.OutputDir != "" {
		args = append(args, "--output-dir", r.OutputDir)
	}
	args = append(args, r.ExtraArgs...)
	args = append(args, "--")
	return append(args, job.Files...)
}

func (r *ExecRunner) Run(ctx context.Context, job Job) (Output, error) {
	args := r.Args(job)

	var debugStderr bytes.Buffer
	var stderr io.Writer = &debugStderr
	if r.Stderr != nil {
		stderr = io.MultiWriter(&debugStderr, r.Stderr)
	}
	cmd := exec.CommandContext(ctx, r.Executable, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if msg := lastLine(debugStderr.String()); msg != "" {
			return Output{}, errors.Wrapf(err, "%s %s: %s", r.Executable, job.Prefix, msg)
		}
		return Output{}, errors.Wrapf(err, "%s %s", r.Executable, job.Prefix)
	}
	return Output{}, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// runIsolated runs job and turns a panic into an error so that one broken
// directory cannot take down the walk.
func runIsolated(ctx context.Context, r Runner, job Job) (out Output, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic converting %s: %v", job.Dir, p)
		}
	}()
	return r.Run(ctx, job)
}
