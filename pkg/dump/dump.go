// Package dump writes the raw PixelData of a single DICOM file together with
// a short summary of how to interpret it.
package dump

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"dicomcat/internal/models"
	"dicomcat/pkg/dicomio"
)

const footer = `##############
# Pixel data #
##############

Width:                      %d
Height:                     %d
Samples:                    %d
Bits:                       %d
Photometric interpretation: %s
Unsigned:                   %d
`

// Dump writes the pixel buffer of src to out exactly as stored and then the
// summary footer to diag. The bytes are not transformed in any way; the
// footer tells the reader how to interpret them.
func Dump(src dicomio.Describer, out, diag io.Writer) error {
	d, err := src.Describe()
	if err != nil {
		return err
	}
	pixels, err := src.ReadPixelBuffer()
	if err != nil {
		return err
	}
	if _, err := out.Write(pixels); err != nil {
		return errors.Wrap(err, "write pixel data")
	}
	// the footer is followed by one blank line
	_, err = fmt.Fprintln(diag, Footer(d))
	return err
}

// Footer renders the summary printed after the pixel data.
func Footer(d models.Description) string {
	unsigned := 0
	if d.Signedness == models.Unsigned {
		unsigned = 1
	}
	return fmt.Sprintf(footer, d.Width, d.Height, d.SamplesPerPixel, d.BitsAllocated, d.PhotometricInterpretation, unsigned)
}
