package cmds

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dicomcat/pkg/dicomio"
	"dicomcat/pkg/dump"
)

// DumpUsage is printed when dicomdump is not given exactly one file.
const DumpUsage = "Usage: dicomdump FILE"

// NewDumpCommand returns the dicomdump command: the pixel data of one file
// goes to stdout and a summary of its layout to stderr.
func NewDumpCommand(opener dicomio.Opener, stdout, stderr io.Writer) *cobra.Command {
	cmd := newCommand("dicomdump FILE", "Write the raw pixel data of one DICOM file.", stdout, stderr)
	cmd.Args = func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return usageErrorf(ExitUsage, DumpUsage)
		}
		return nil
	}
	cmd.RunE = func(_ *cobra.Command, args []string) error {
		src, err := opener.Open(args[0])
		if err != nil {
			return err
		}
		d, ok := src.(dicomio.Describer)
		if !ok {
			return errors.Errorf("%s: cannot describe pixel data", args[0])
		}
		return dump.Dump(d, stdout, stderr)
	}
	return cmd
}
