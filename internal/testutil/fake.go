package testutil

import (
	"fmt"

	"dicomcat/internal/models"
	"dicomcat/pkg/dicomio"
)

// FakeOpener serves slices from memory and counts how often each name is
// opened.
type FakeOpener struct {
	Slices map[string]Slice
	Errs   map[string]error
	Opens  map[string]int
}

// NewFakeOpener returns an empty FakeOpener.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{
		Slices: make(map[string]Slice),
		Errs:   make(map[string]error),
		Opens:  make(map[string]int),
	}
}

// Add registers a slice under name.
func (o *FakeOpener) Add(name string, attrs models.ImageAttributes, pixels []byte) *FakeOpener {
	o.Slices[name] = NewSlice(attrs, pixels)
	return o
}

// Fail makes opening name return err.
func (o *FakeOpener) Fail(name string, err error) *FakeOpener {
	o.Errs[name] = err
	return o
}

// TotalOpens is the number of Open calls across all names.
func (o *FakeOpener) TotalOpens() int {
	n := 0
	for _, c := range o.Opens {
		n += c
	}
	return n
}

func (o *FakeOpener) Open(name string) (dicomio.Source, error) {
	o.Opens[name]++
	if err, ok := o.Errs[name]; ok {
		return nil, err
	}
	s, ok := o.Slices[name]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", name)
	}
	return fakeSource(s), nil
}

type fakeSource Slice

func (s fakeSource) ExtractAttributes() (models.ImageAttributes, error) {
	return s.Attributes, nil
}

func (s fakeSource) ReadPixelBuffer() (models.PixelBuffer, error) {
	return models.PixelBuffer(s.Pixels), nil
}

func (s fakeSource) Describe() (models.Description, error) {
	return models.Description{
		ImageAttributes:           s.Attributes,
		SamplesPerPixel:           s.Samples,
		PhotometricInterpretation: s.Photometric,
	}, nil
}
