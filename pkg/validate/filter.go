package validate

import (
	"dicomcat/internal/models"
	"dicomcat/pkg/dicomio"
)

// Attributes opens name and returns its attributes.
func Attributes(opener dicomio.Opener, name string) (models.ImageAttributes, error) {
	src, err := opener.Open(name)
	if err != nil {
		return models.ImageAttributes{}, err
	}
	return src.ExtractAttributes()
}

// Filter returns the files whose attributes match those of the first file,
// in their original order. The first file is read once for the reference
// and once more with the rest, so every file is opened at least once.
// Files that cannot be opened or parsed abort the whole filter.
func Filter(opener dicomio.Opener, filenames []string) ([]string, error) {
	if len(filenames) == 0 {
		return nil, ErrEmptyInput
	}

	ref, err := Attributes(opener, filenames[0])
	if err != nil {
		return nil, err
	}

	accepted := make([]string, 0, len(filenames))
	for _, name := range filenames {
		attrs, err := Attributes(opener, name)
		if err != nil {
			return nil, err
		}
		if IsConsistent(attrs, ref) {
			accepted = append(accepted, name)
		}
	}
	return accepted, nil
}
