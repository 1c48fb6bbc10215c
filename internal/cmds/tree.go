package cmds

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dicomcat/pkg/batch"
	"dicomcat/pkg/dicomio"
)

type treeOptions struct {
	commonOptions
	executable string
	outputDir  string
	singlePass bool
	digest     bool
	skipHidden bool
}

// NewTreeCommand returns the dicomtree command. It converts every directory
// under ROOT that directly contains files into one volume named after the
// directory, deepest directories first. Directories are converted in-process
// through opener unless --exec names a dicomcat binary.
func NewTreeCommand(opener dicomio.Opener, stdout, stderr io.Writer) *cobra.Command {
	opts := &treeOptions{}
	cmd := newCommand("dicomtree [flags] ROOT", "Convert every DICOM series directory under ROOT into a volume.", stdout, stderr)
	cmd.Args = func(_ *cobra.Command, args []string) error {
		if len(args) != 1 && !(len(args) == 0 && opts.writeConfig != "") {
			return usageErrorf(ExitFailure, "Usage: dicomtree ROOT (expected 1 argument, got %d)", len(args))
		}
		return nil
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := opts.load(cmd.Flags(), stderr)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		flags := cmd.Flags()
		if flags.Changed("exec") {
			cfg.Batch.Executable = opts.executable
		}
		if flags.Changed("output-dir") {
			cfg.Concat.OutputDir = opts.outputDir
		}
		if flags.Changed("single-pass") {
			cfg.Concat.SinglePass = opts.singlePass
		}
		if flags.Changed("digest") {
			cfg.Concat.Digest = opts.digest
		}
		if flags.Changed("skip-hidden") {
			cfg.Batch.SkipHidden = opts.skipHidden
		}
		if done, err := opts.saveConfig(cfg, stderr); done {
			return err
		}

		var runner batch.Runner
		if cfg.Batch.Executable != "" {
			er := &batch.ExecRunner{
				Executable: cfg.Batch.Executable,
				OutputDir:  cfg.Concat.OutputDir,
				Stderr:     stderr,
			}
			if cfg.Concat.SinglePass {
				er.ExtraArgs = append(er.ExtraArgs, "--single-pass")
			}
			if cfg.Concat.Digest {
				er.ExtraArgs = append(er.ExtraArgs, "--digest")
			}
			runner = er
		} else {
			runner = &batch.PipelineRunner{
				Opener:     opener,
				OutputDir:  cfg.Concat.OutputDir,
				SinglePass: cfg.Concat.SinglePass,
				Digest:     cfg.Concat.Digest,
				Progress:   stderr,
				Logger:     logger,
			}
		}

		driver := batch.NewDriver(runner, batch.PlanOptions{SkipHidden: cfg.Batch.SkipHidden}, logger)
		report, err := driver.Walk(cmd.Context(), args[0])
		if report != nil {
			printReport(stdout, report)
		}
		if err != nil {
			return err
		}
		if failed := report.Failed(); len(failed) > 0 {
			return errors.Errorf("%d of %d directories failed", len(failed), len(report.Outcomes))
		}
		return nil
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.executable, "exec", "", "Run every directory through this dicomcat binary in its own process.")
	flags.StringVar(&opts.outputDir, "output-dir", ".", "Directory for the volumes.")
	flags.BoolVar(&opts.singlePass, "single-pass", false, "Skip disagreeing slices while concatenating instead of filtering first.")
	flags.BoolVar(&opts.digest, "digest", false, "Log the xxh3 digest of every volume.")
	flags.BoolVar(&opts.skipHidden, "skip-hidden", false, "Ignore files and directories whose name starts with a dot.")
	opts.bind(flags)
	return cmd
}

func printReport(w io.Writer, report *batch.Report) {
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "FAIL  %s: %v\n", o.Job.Dir, o.Err)
			continue
		}
		if o.Output.Path != "" {
			fmt.Fprintf(w, "ok    %s -> %s\n", o.Job.Dir, o.Output.Path)
		} else {
			fmt.Fprintf(w, "ok    %s\n", o.Job.Dir)
		}
	}
	s := report.Summary()
	fmt.Fprintf(w, "%d directories, %d failed, %d files, %s written (%.1f ± %.1f files per directory)\n",
		s.Directories, s.Failed, s.Files, humanize.Bytes(uint64(s.Bytes)), s.MeanFiles, s.StdDevFiles)
}
