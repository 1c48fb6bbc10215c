// Package dicomio reads the attributes and raw PixelData of DICOM slices.
// Callers depend on the small Source and Opener interfaces so that the
// validation and concatenation code can be exercised without real files.
package dicomio

import (
	"fmt"

	"dicomcat/internal/models"
)

// Source is one opened DICOM slice.
type Source interface {
	// ExtractAttributes returns the attributes that must agree across a volume.
	ExtractAttributes() (models.ImageAttributes, error)

	// ReadPixelBuffer returns the PixelData bytes exactly as stored.
	ReadPixelBuffer() (models.PixelBuffer, error)
}

// Describer is a Source that can also report the fields shown by the dump
// tool.
type Describer interface {
	Source
	Describe() (models.Description, error)
}

// Opener opens a slice by name.
type Opener interface {
	Open(name string) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(name string) (Source, error)

// Open calls f(name).
func (f OpenerFunc) Open(name string) (Source, error) {
	return f(name)
}

// MissingAttributeError reports a required DICOM element that is absent or
// empty. There are no defaults for missing attributes.
type MissingAttributeError struct {
	Filename  string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("missing required attribute %s", e.Attribute)
	}
	return fmt.Sprintf("%s: missing required attribute %s", e.Filename, e.Attribute)
}

// Extract reads both the attributes and the pixel buffer of src.
func Extract(src Source) (models.ImageAttributes, models.PixelBuffer, error) {
	attrs, err := src.ExtractAttributes()
	if err != nil {
		return models.ImageAttributes{}, nil, err
	}
	pixels, err := src.ReadPixelBuffer()
	if err != nil {
		return models.ImageAttributes{}, nil, err
	}
	return attrs, pixels, nil
}
