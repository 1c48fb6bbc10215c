// Package concat concatenates the raw PixelData of a series of DICOM slices
// into a single volume stream.
package concat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"dicomcat/internal/models"
	"dicomcat/pkg/dicomio"
	"dicomcat/pkg/validate"
)

// StdoutName is reported as Result.Output when the volume went to standard
// output.
const StdoutName = "-"

// Params holds the concatenation parameters.
type Params struct {
	// Files are the slices in output order. At least one is required.
	Files []string

	// Prefix selects file output. The volume is written to
	// OutputDir/prefix_WxHxD_B[u|s] instead of standard output.
	Prefix string

	// OutputDir is where prefixed volumes are created. Empty means the
	// working directory.
	OutputDir string

	// Check drops slices that disagree with the first one instead of
	// failing. Slices are still checked again while concatenating.
	Check bool

	// SinglePass makes Check skip disagreeing slices while concatenating,
	// opening each file once. Without it, Check runs a separate filter pass
	// first, which reads attributes only.
	SinglePass bool

	// Digest computes an xxh3 digest of the written stream.
	Digest bool
}

// Result describes a finished concatenation.
type Result struct {
	// Output is the path of the volume file, or StdoutName.
	Output string

	// Volume is the geometry encoded in the output filename
	Volume models.Volume

	// Written lists the slices that were appended, in order
	Written []string

	// Skipped lists the slices left out by Check
	Skipped []string

	// Bytes is the size of the output stream
	Bytes int64

	// Digest is the hex xxh3-64 of the output when Params.Digest is set
	Digest string
}

// Concatenator writes the pixel buffers of a file list back to back.
//
// The first slice fixes the reference attributes and, with a prefix, the
// output file. Every later slice is compared against that reference before
// its pixels are written; a mismatch aborts the run. Pixels are written as
// soon as a slice is validated, so only one slice is held in memory.
type Concatenator struct {
	params   *Params
	opener   dicomio.Opener
	stdout   io.Writer
	progress io.Writer
	logger   *zap.Logger

	// create opens the output file for prefixed runs
	create func(path string) (io.WriteCloser, error)
}

// NewConcatenator returns a Concatenator for params. Volumes without a
// prefix go to stdout; progress lines go to progress.
func NewConcatenator(params *Params, opener dicomio.Opener, stdout, progress io.Writer, logger *zap.Logger) *Concatenator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Concatenator{
		params:   params,
		opener:   opener,
		stdout:   stdout,
		progress: progress,
		logger:   logger,
		create: func(path string) (io.WriteCloser, error) {
			return os.Create(path)
		},
	}
}

// run is the state of one Process call. reference is set once by the first
// slice and only read afterwards.
type run struct {
	reference models.ImageAttributes
	out       io.Writer
	closer    io.Closer
	hash      *xxh3.Hasher
	result    Result
}

// Process runs the concatenation.
func (c *Concatenator) Process() (_ *Result, err error) {
	if len(c.params.Files) == 0 {
		return nil, validate.ErrEmptyInput
	}

	files := c.params.Files
	if c.params.Check && !c.params.SinglePass {
		files, err = validate.Filter(dicomio.AttributesOnly(c.opener), c.params.Files)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("filtered slices",
			zap.Int("requested", len(c.params.Files)),
			zap.Int("accepted", len(files)))
	}

	r := &run{}
	defer func() {
		if r.closer == nil {
			return
		}
		if cerr := r.closer.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", r.result.Output)
		}
	}()

	for i, name := range files {
		fmt.Fprintln(c.progress, FormatProgress(i, len(files), name))

		src, err := c.opener.Open(name)
		if err != nil {
			return nil, err
		}
		attrs, pixels, err := dicomio.Extract(src)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("read slice",
			zap.String("file", name),
			zap.Stringer("attributes", attrs),
			zap.Int("bytes", len(pixels)))

		if i == 0 {
			if err := c.establish(r, attrs); err != nil {
				return nil, err
			}
		} else if err := validate.Compare(attrs, r.reference); err != nil {
			if c.params.Check && c.params.SinglePass {
				c.logger.Info("skipping slice", zap.String("file", name), zap.Error(err))
				r.result.Skipped = append(r.result.Skipped, name)
				continue
			}
			var mm *validate.MismatchError
			if errors.As(err, &mm) {
				mm.Filename = name
			}
			return nil, err
		}

		n, err := r.out.Write(pixels)
		r.result.Bytes += int64(n)
		if err != nil {
			return nil, errors.Wrapf(err, "write pixels of %s to %s", name, r.result.Output)
		}
		r.result.Written = append(r.result.Written, name)
	}

	if r.hash != nil {
		r.result.Digest = fmt.Sprintf("%016x", r.hash.Sum64())
	}
	c.logger.Info("volume written",
		zap.String("output", r.result.Output),
		zap.Int("slices", len(r.result.Written)),
		zap.Int("skipped", len(r.result.Skipped)),
		zap.String("size", humanize.Bytes(uint64(r.result.Bytes))))
	return &r.result, nil
}

// establish fixes the reference attributes and opens the output. The depth
// in the output name is the number of requested files, before any
// filtering.
func (c *Concatenator) establish(r *run, attrs models.ImageAttributes) error {
	r.reference = attrs
	r.result.Volume = models.NewVolume(attrs, len(c.params.Files))

	r.out = c.stdout
	r.result.Output = StdoutName
	if c.params.Prefix != "" {
		path := filepath.Join(c.params.OutputDir, r.result.Volume.Filename(c.params.Prefix))
		f, err := c.create(path)
		if err != nil {
			return errors.Wrapf(err, "create output %s", path)
		}
		r.out = f
		r.closer = f
		r.result.Output = path
	}

	if c.params.Digest {
		r.hash = xxh3.New()
		r.out = io.MultiWriter(r.out, r.hash)
	}
	return nil
}

// FormatFilename returns the volume filename prefix_WxHxD_B[u|s].
func FormatFilename(prefix string, width, height, depth, bits int, signedness models.Signedness) string {
	v := models.Volume{Width: width, Height: height, Depth: depth, Bits: bits, Signedness: signedness}
	return v.Filename(prefix)
}

// Percentage is the completion after the slice at index (zero based) out of
// total.
func Percentage(index, total int) float64 {
	return 100 * float64(index+1) / float64(total)
}

// FormatProgress returns the progress line for the slice at index.
func FormatProgress(index, total int, name string) string {
	return fmt.Sprintf("[%6.2f%%] Processing '%s'...", Percentage(index, total), filepath.Base(name))
}
