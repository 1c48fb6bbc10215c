// Command dicomdump writes the raw pixel data of one DICOM file to stdout.
package main

import (
	"os"

	"dicomcat/internal/cmds"
	"dicomcat/pkg/dicomio"
)

func main() {
	cmd := cmds.NewDumpCommand(dicomio.FileOpener{}, os.Stdout, os.Stderr)
	os.Exit(cmds.Main(cmd, os.Args[1:], os.Stderr))
}
