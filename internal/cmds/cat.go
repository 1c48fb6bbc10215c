package cmds

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dicomcat/pkg/concat"
	"dicomcat/pkg/dicomio"
)

type catOptions struct {
	commonOptions
	check      bool
	singlePass bool
	digest     bool
	prefix     string
	outputDir  string
}

// NewCatCommand returns the dicomcat command. Files are read through opener;
// without --prefix the volume is written to stdout.
func NewCatCommand(opener dicomio.Opener, stdout, stderr io.Writer) *cobra.Command {
	opts := &catOptions{}
	cmd := newCommand("dicomcat [flags] FILE...", "Concatenate the raw pixel data of DICOM slices into one volume.", stdout, stderr)
	cmd.Long = `Concatenate the raw pixel data of DICOM slices into one volume.

All slices must agree on patient name, width, height, bits allocated and
signedness. With --check, slices that disagree with the first one are left
out. With --prefix, the volume is written to PREFIX_WxHxD_B[u|s] instead of
standard output.`
	cmd.Args = cobra.ArbitraryArgs
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := opts.load(cmd.Flags(), stderr)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		flags := cmd.Flags()
		if flags.Changed("check") {
			cfg.Concat.Check = opts.check
		}
		if flags.Changed("single-pass") {
			cfg.Concat.SinglePass = opts.singlePass
		}
		if flags.Changed("digest") {
			cfg.Concat.Digest = opts.digest
		}
		if flags.Changed("output-dir") {
			cfg.Concat.OutputDir = opts.outputDir
		}
		if done, err := opts.saveConfig(cfg, stderr); done {
			return err
		}

		params := &concat.Params{
			Files:      args,
			Prefix:     opts.prefix,
			OutputDir:  cfg.Concat.OutputDir,
			Check:      cfg.Concat.Check,
			SinglePass: cfg.Concat.SinglePass,
			Digest:     cfg.Concat.Digest,
		}
		logger.Debug("concatenating", zap.Int("files", len(args)), zap.String("prefix", opts.prefix))

		res, err := concat.NewConcatenator(params, opener, stdout, stderr, logger).Process()
		if err != nil {
			return err
		}
		if res.Digest != "" {
			fmt.Fprintf(stderr, "xxh3 %s  %s\n", res.Digest, res.Output)
		}
		return nil
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.check, "check", false, "Leave out slices that disagree with the first slice instead of failing.")
	flags.BoolVar(&opts.singlePass, "single-pass", false, "With --check, skip disagreeing slices while concatenating instead of filtering first.")
	flags.BoolVar(&opts.digest, "digest", false, "Print the xxh3 digest of the written volume.")
	flags.StringVar(&opts.prefix, "prefix", "", "Write the volume to PREFIX_WxHxD_B[u|s] instead of standard output.")
	flags.StringVar(&opts.outputDir, "output-dir", ".", "Directory for prefixed volumes.")
	opts.bind(flags)
	return cmd
}
