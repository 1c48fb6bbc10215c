// Command dicomcat concatenates the raw pixel data of DICOM slices into one volume.
package main

import (
	"os"

	"dicomcat/internal/cmds"
	"dicomcat/pkg/dicomio"
)

func main() {
	cmd := cmds.NewCatCommand(dicomio.FileOpener{}, os.Stdout, os.Stderr)
	os.Exit(cmds.Main(cmd, os.Args[1:], os.Stderr))
}
