// Package validate decides whether DICOM slices belong to the same volume:
// same patient, same geometry, same sample layout.
package validate

import (
	"fmt"

	"github.com/pkg/errors"

	"dicomcat/internal/models"
)

// ErrEmptyInput is returned when a file list that needs at least one entry
// is empty.
var ErrEmptyInput = errors.New("list of filenames must not be empty")

// Field names an attribute that has to agree across a volume.
type Field int

const (
	FieldPatientName Field = iota
	FieldWidth
	FieldHeight
	FieldBitsAllocated
	FieldSignedness
)

func (f Field) String() string {
	switch f {
	case FieldPatientName:
		return "name"
	case FieldWidth:
		return "width"
	case FieldHeight:
		return "height"
	case FieldBitsAllocated:
		return "bits"
	case FieldSignedness:
		return "representation"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

func (f Field) message() string {
	switch f {
	case FieldPatientName:
		return "Name must agree over all files"
	case FieldWidth:
		return "Width must agree over all files"
	case FieldHeight:
		return "Height must agree over all files"
	case FieldBitsAllocated:
		return "Number of bits must agree over all files"
	case FieldSignedness:
		return "Representation (signed/unsigned) must agree over all files"
	}
	return fmt.Sprintf("%v must agree over all files", f)
}

// MismatchError reports the first attribute of a slice that disagrees with
// the reference slice.
type MismatchError struct {
	Field    Field
	Filename string
	Want     string
	Got      string
}

func (e *MismatchError) Error() string {
	msg := e.Field.message()
	if e.Want != "" || e.Got != "" {
		msg = fmt.Sprintf("%s (expected %s, got %s)", msg, e.Want, e.Got)
	}
	if e.Filename != "" {
		msg = fmt.Sprintf("%s: %s", e.Filename, msg)
	}
	return msg
}

// IsConsistent reports whether every attribute of candidate equals the
// reference.
func IsConsistent(candidate, reference models.ImageAttributes) bool {
	return candidate == reference
}

// Compare returns nil when candidate matches reference, otherwise a
// *MismatchError naming the first disagreeing field in the order patient
// name, width, height, bits allocated, signedness.
func Compare(candidate, reference models.ImageAttributes) error {
	switch {
	case candidate.PatientName != reference.PatientName:
		return &MismatchError{Field: FieldPatientName, Want: reference.PatientName, Got: candidate.PatientName}
	case candidate.Width != reference.Width:
		return mismatch(FieldWidth, reference.Width, candidate.Width)
	case candidate.Height != reference.Height:
		return mismatch(FieldHeight, reference.Height, candidate.Height)
	case candidate.BitsAllocated != reference.BitsAllocated:
		return mismatch(FieldBitsAllocated, reference.BitsAllocated, candidate.BitsAllocated)
	case candidate.Signedness != reference.Signedness:
		return &MismatchError{Field: FieldSignedness, Want: reference.Signedness.String(), Got: candidate.Signedness.String()}
	}
	return nil
}

func mismatch(f Field, want, got int) *MismatchError {
	return &MismatchError{Field: f, Want: fmt.Sprint(want), Got: fmt.Sprint(got)}
}
