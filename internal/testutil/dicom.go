// Package testutil writes small synthetic DICOM slices for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/suyashkumar/dicom/pkg/uid"

	"dicomcat/internal/models"
)

// Slice describes a synthetic DICOM file. Pixels must have an even length.
type Slice struct {
	Attributes  models.ImageAttributes
	Samples     int
	Photometric string
	Pixels      []byte

	// Omit lists elements left out of the written file
	Omit []tag.Tag
}

// NewSlice returns a grayscale slice with the given attributes and pixels.
func NewSlice(attrs models.ImageAttributes, pixels []byte) Slice {
	return Slice{
		Attributes:  attrs,
		Samples:     1,
		Photometric: "MONOCHROME2",
		Pixels:      pixels,
	}
}

// WriteDICOM writes s as an implicit VR little endian DICOM file at path,
// creating parent directories as needed.
func WriteDICOM(t testing.TB, path string, s Slice) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}

	elems := []*dicom.Element{
		mustElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.3.4.5.6.7"}),
		mustElement(t, tag.TransferSyntaxUID, []string{uid.ImplicitVRLittleEndian}),
		mustElement(t, tag.PatientName, []string{s.Attributes.PatientName}),
		mustElement(t, tag.SamplesPerPixel, []int{s.Samples}),
		mustElement(t, tag.PhotometricInterpretation, []string{s.Photometric}),
		mustElement(t, tag.Rows, []int{s.Attributes.Height}),
		mustElement(t, tag.Columns, []int{s.Attributes.Width}),
		mustElement(t, tag.BitsAllocated, []int{s.Attributes.BitsAllocated}),
		mustElement(t, tag.PixelRepresentation, []int{int(s.Attributes.Signedness)}),
		mustElement(t, tag.PixelData, dicom.PixelDataInfo{
			IntentionallyUnprocessed: true,
			UnprocessedValueData:     s.Pixels,
		}),
	}

	kept := elems[:0]
	for _, e := range elems {
		if !omitted(s.Omit, e.Tag) {
			kept = append(kept, e)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := dicom.Write(f, dicom.Dataset{Elements: kept}); err != nil {
		t.Fatalf("Failed to write DICOM %s: %v", path, err)
	}
}

// WriteFile writes raw bytes at path, for malformed-input tests.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func mustElement(t testing.TB, tg tag.Tag, data interface{}) *dicom.Element {
	t.Helper()
	elem, err := dicom.NewElement(tg, data)
	if err != nil {
		t.Fatalf("Failed to build element %v: %v", tg, err)
	}
	return elem
}

func omitted(omit []tag.Tag, tg tag.Tag) bool {
	for _, o := range omit {
		if o == tg {
			return true
		}
	}
	return false
}
