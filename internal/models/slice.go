package models

import "fmt"

// Signedness is the DICOM Pixel Representation of a slice: 0 for unsigned
// samples, 1 for two's complement samples.
type Signedness int

const (
	Unsigned Signedness = iota
	Signed
)

// Suffix returns the single-letter suffix used in volume filenames.
func (s Signedness) Suffix() string {
	if s == Unsigned {
		return "u"
	}
	return "s"
}

func (s Signedness) String() string {
	if s == Unsigned {
		return "unsigned"
	}
	return "signed"
}

// ImageAttributes is the subset of DICOM attributes that must agree across
// every slice of a volume.
type ImageAttributes struct {
	// PatientName is compared as an opaque string
	PatientName string

	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// BitsAllocated is the storage width of a single sample
	BitsAllocated int

	// Signedness is the pixel representation
	Signedness Signedness
}

func (a ImageAttributes) String() string {
	return fmt.Sprintf("patient=%q %dx%d bits=%d %s",
		a.PatientName, a.Width, a.Height, a.BitsAllocated, a.Signedness)
}

// PixelBuffer is the PixelData payload of a slice exactly as stored in the
// file. It is never reinterpreted.
type PixelBuffer []byte

// Description extends ImageAttributes with the fields reported by the dump
// tool.
type Description struct {
	ImageAttributes

	// SamplesPerPixel is 1 for grayscale and 3 for colour images
	SamplesPerPixel int

	// PhotometricInterpretation is e.g. MONOCHROME2 or RGB
	PhotometricInterpretation string
}

// Volume describes the raw output of a concatenation: Depth slices of
// Width x Height samples, each BitsAllocated wide.
type Volume struct {
	Width      int
	Height     int
	Depth      int
	Bits       int
	Signedness Signedness
}

// NewVolume derives the volume geometry from the reference attributes and
// the requested number of slices.
func NewVolume(ref ImageAttributes, depth int) Volume {
	return Volume{
		Width:      ref.Width,
		Height:     ref.Height,
		Depth:      depth,
		Bits:       ref.BitsAllocated,
		Signedness: ref.Signedness,
	}
}

// Filename returns the conventional name of a raw volume file,
// prefix_WxHxD_B[u|s]. There is no extension.
func (v Volume) Filename(prefix string) string {
	return fmt.Sprintf("%s_%dx%dx%d_%d%s", prefix, v.Width, v.Height, v.Depth, v.Bits, v.Signedness.Suffix())
}
