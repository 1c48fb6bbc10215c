package dicomio_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomcat/internal/models"
	"dicomcat/internal/testutil"
	"dicomcat/pkg/dicomio"
)

var brain = models.ImageAttributes{
	PatientName:   "Doe^John",
	Width:         4,
	Height:        2,
	BitsAllocated: 16,
	Signedness:    models.Signed,
}

func TestOpenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IM0001")
	pixels := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	testutil.WriteDICOM(t, path, testutil.NewSlice(brain, pixels))

	src, err := dicomio.FileOpener{}.Open(path)
	require.NoError(t, err)

	attrs, buf, err := dicomio.Extract(src)
	require.NoError(t, err)
	require.Equal(t, brain, attrs)
	require.Equal(t, models.PixelBuffer(pixels), buf)
}

func TestDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IM0001")
	testutil.WriteDICOM(t, path, testutil.NewSlice(brain, make([]byte, 16)))

	f, err := dicomio.OpenFile(path, false)
	require.NoError(t, err)
	require.Equal(t, path, f.Name())

	d, err := f.Describe()
	require.NoError(t, err)
	require.Equal(t, brain, d.ImageAttributes)
	require.Equal(t, 1, d.SamplesPerPixel)
	require.Equal(t, "MONOCHROME2", d.PhotometricInterpretation)
}

func TestDescribeWithoutPatientName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IM0001")
	s := testutil.NewSlice(brain, make([]byte, 16))
	s.Omit = []tag.Tag{tag.PatientName}
	testutil.WriteDICOM(t, path, s)

	f, err := dicomio.OpenFile(path, false)
	require.NoError(t, err)

	_, err = f.ExtractAttributes()
	var missing *dicomio.MissingAttributeError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "PatientName", missing.Attribute)

	d, err := f.Describe()
	require.NoError(t, err)
	require.Empty(t, d.PatientName)
	require.Equal(t, 4, d.Width)
	require.Equal(t, 2, d.Height)
	require.Equal(t, 16, d.BitsAllocated)
	require.Equal(t, models.Signed, d.Signedness)
}

func TestDescribeMissingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IM0001")
	s := testutil.NewSlice(brain, make([]byte, 16))
	s.Omit = []tag.Tag{tag.Rows}
	testutil.WriteDICOM(t, path, s)

	f, err := dicomio.OpenFile(path, false)
	require.NoError(t, err)

	_, err = f.Describe()
	require.EqualError(t, err, path+": missing required attribute Rows")
}

func TestAttributesOnly(t *testing.T) {
	require.Equal(t, dicomio.FileOpener{SkipPixelData: true}, dicomio.AttributesOnly(dicomio.FileOpener{}))
	require.Equal(t, dicomio.FileOpener{SkipPixelData: true}, dicomio.AttributesOnly(&dicomio.FileOpener{}))

	fake := testutil.NewFakeOpener()
	require.Same(t, fake, dicomio.AttributesOnly(fake))

	path := filepath.Join(t.TempDir(), "IM0001")
	testutil.WriteDICOM(t, path, testutil.NewSlice(brain, make([]byte, 16)))
	src, err := dicomio.AttributesOnly(dicomio.FileOpener{}).Open(path)
	require.NoError(t, err)
	attrs, err := src.ExtractAttributes()
	require.NoError(t, err)
	require.Equal(t, brain, attrs)
	_, err = src.ReadPixelBuffer()
	require.Error(t, err)
}

func TestSkipPixelData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IM0001")
	testutil.WriteDICOM(t, path, testutil.NewSlice(brain, make([]byte, 16)))

	src, err := dicomio.FileOpener{SkipPixelData: true}.Open(path)
	require.NoError(t, err)

	attrs, err := src.ExtractAttributes()
	require.NoError(t, err)
	require.Equal(t, brain, attrs)

	_, err = src.ReadPixelBuffer()
	require.Error(t, err)
}

func TestMalformedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	testutil.WriteFile(t, path, []byte("this is not a DICOM file"))

	_, err := dicomio.FileOpener{}.Open(path)
	require.Error(t, err)

	var missing *dicomio.MissingAttributeError
	require.False(t, errors.As(err, &missing))
}

func TestMissingFile(t *testing.T) {
	_, err := dicomio.FileOpener{}.Open(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestMissingAttributeError(t *testing.T) {
	err := &dicomio.MissingAttributeError{Filename: "IM0001", Attribute: "Rows"}
	require.Equal(t, "IM0001: missing required attribute Rows", err.Error())

	err = &dicomio.MissingAttributeError{Attribute: "Rows"}
	require.Equal(t, "missing required attribute Rows", err.Error())
}

func TestOpenerFunc(t *testing.T) {
	called := ""
	var o dicomio.Opener = dicomio.OpenerFunc(func(name string) (dicomio.Source, error) {
		called = name
		return nil, errors.New("boom")
	})
	_, err := o.Open("x")
	require.EqualError(t, err, "boom")
	require.Equal(t, "x", called)
}
