// Command dicomtree converts every series directory of a DICOM tree into a volume.
package main

import (
	"os"

	"dicomcat/internal/cmds"
	"dicomcat/pkg/dicomio"
)

func main() {
	cmd := cmds.NewTreeCommand(dicomio.FileOpener{}, os.Stdout, os.Stderr)
	os.Exit(cmds.Main(cmd, os.Args[1:], os.Stderr))
}
