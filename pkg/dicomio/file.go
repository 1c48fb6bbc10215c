package dicomio

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomcat/internal/models"
)

// FileOpener opens DICOM files from the local filesystem.
type FileOpener struct {
	// SkipPixelData parses attributes only. ReadPixelBuffer then fails.
	SkipPixelData bool
}

// Open parses the named file. Parser errors are returned unchanged.
func (o FileOpener) Open(name string) (Source, error) {
	return OpenFile(name, o.SkipPixelData)
}

// AttributesOnly returns an Opener for passes that only compare attributes.
// File openers stop reading before PixelData; other openers are returned
// as they are.
func AttributesOnly(o Opener) Opener {
	switch fo := o.(type) {
	case FileOpener:
		fo.SkipPixelData = true
		return fo
	case *FileOpener:
		return FileOpener{SkipPixelData: true}
	}
	return o
}

// File is a parsed DICOM file.
type File struct {
	name string
	ds   dicom.Dataset
}

var _ Describer = (*File)(nil)

// OpenFile parses the DICOM file at name. PixelData is kept unprocessed so
// that its bytes can be written out verbatim.
func OpenFile(name string, skipPixelData bool) (*File, error) {
	opt := dicom.SkipProcessingPixelDataValue()
	if skipPixelData {
		opt = dicom.SkipPixelData()
	}
	ds, err := dicom.ParseFile(name, nil, opt)
	if err != nil {
		return nil, err
	}
	return &File{name: name, ds: ds}, nil
}

// Name returns the path the file was opened from.
func (f *File) Name() string {
	return f.name
}

func (f *File) ExtractAttributes() (models.ImageAttributes, error) {
	var attrs models.ImageAttributes
	var err error
	if attrs.PatientName, err = f.str(tag.PatientName, "PatientName"); err != nil {
		return attrs, err
	}
	if attrs.Width, err = f.integer(tag.Columns, "Columns"); err != nil {
		return attrs, err
	}
	if attrs.Height, err = f.integer(tag.Rows, "Rows"); err != nil {
		return attrs, err
	}
	if attrs.BitsAllocated, err = f.integer(tag.BitsAllocated, "BitsAllocated"); err != nil {
		return attrs, err
	}
	rep, err := f.integer(tag.PixelRepresentation, "PixelRepresentation")
	if err != nil {
		return attrs, err
	}
	attrs.Signedness = models.Signedness(rep)
	return attrs, nil
}

func (f *File) ReadPixelBuffer() (models.PixelBuffer, error) {
	elem, err := f.ds.FindElementByTag(tag.PixelData)
	if err == dicom.ErrorElementNotFound {
		return nil, &MissingAttributeError{Filename: f.name, Attribute: "PixelData"}
	} else if err != nil {
		return nil, err
	}
	if elem.Value.ValueType() != dicom.PixelData {
		return nil, errors.Errorf("%s: PixelData has unexpected value type %v", f.name, elem.Value.ValueType())
	}
	info := dicom.MustGetPixelDataInfo(elem.Value)
	switch {
	case info.IntentionallySkipped:
		return nil, errors.Errorf("%s: PixelData was not read", f.name)
	case info.IntentionallyUnprocessed:
		return models.PixelBuffer(info.UnprocessedValueData), nil
	}

	// Encapsulated PixelData has no single stored value; its fragments are
	// returned back to back.
	var buf []byte
	for _, fr := range info.Frames {
		if !fr.Encapsulated {
			return nil, errors.Errorf("%s: PixelData was decoded, raw bytes unavailable", f.name)
		}
		buf = append(buf, fr.EncapsulatedData.Data...)
	}
	return models.PixelBuffer(buf), nil
}

// Describe returns the fields of the dump footer. Unlike ExtractAttributes
// it does not need PatientName, which is filled in only when present.
func (f *File) Describe() (models.Description, error) {
	var d models.Description
	var err error
	if d.Width, err = f.integer(tag.Columns, "Columns"); err != nil {
		return d, err
	}
	if d.Height, err = f.integer(tag.Rows, "Rows"); err != nil {
		return d, err
	}
	if d.BitsAllocated, err = f.integer(tag.BitsAllocated, "BitsAllocated"); err != nil {
		return d, err
	}
	rep, err := f.integer(tag.PixelRepresentation, "PixelRepresentation")
	if err != nil {
		return d, err
	}
	d.Signedness = models.Signedness(rep)
	if d.SamplesPerPixel, err = f.integer(tag.SamplesPerPixel, "SamplesPerPixel"); err != nil {
		return d, err
	}
	if d.PhotometricInterpretation, err = f.str(tag.PhotometricInterpretation, "PhotometricInterpretation"); err != nil {
		return d, err
	}

	d.PatientName, err = f.str(tag.PatientName, "PatientName")
	var missing *MissingAttributeError
	if errors.As(err, &missing) {
		err = nil
	}
	return d, err
}

func (f *File) find(t tag.Tag, name string, want dicom.ValueType) (*dicom.Element, error) {
	elem, err := f.ds.FindElementByTag(t)
	if err == dicom.ErrorElementNotFound {
		return nil, &MissingAttributeError{Filename: f.name, Attribute: name}
	} else if err != nil {
		return nil, err
	}
	if elem.Value == nil {
		return nil, &MissingAttributeError{Filename: f.name, Attribute: name}
	}
	if elem.Value.ValueType() != want {
		return nil, errors.Errorf("%s: %s has unexpected value type %v", f.name, name, elem.Value.ValueType())
	}
	return elem, nil
}

func (f *File) integer(t tag.Tag, name string) (int, error) {
	elem, err := f.find(t, name, dicom.Ints)
	if err != nil {
		return 0, err
	}
	v := dicom.MustGetInts(elem.Value)
	if len(v) == 0 {
		return 0, &MissingAttributeError{Filename: f.name, Attribute: name}
	}
	return v[0], nil
}

func (f *File) str(t tag.Tag, name string) (string, error) {
	elem, err := f.find(t, name, dicom.Strings)
	if err != nil {
		return "", err
	}
	v := dicom.MustGetStrings(elem.Value)
	if len(v) == 0 {
		return "", &MissingAttributeError{Filename: f.name, Attribute: name}
	}
	return strings.Join(v, `\`), nil
}
