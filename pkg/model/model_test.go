package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestTensorValidate(t *testing.T) {
	is := is.New(t)

	tt := NewTensor(1, 100, 128)
	is.Equal(len(tt.Data), 12800)
	is.NoErr(tt.Validate())

	bad := Tensor{Shape: []int64{2, 3}, Data: make([]float32, 5)}
	is.True(errors.Is(bad.Validate(), ErrShape))
}

func TestTensorInfoDims(t *testing.T) {
	is := is.New(t)
	info := TensorInfo{Name: "x", Shape: []int64{1, 100, 128}}
	is.Equal(info.LastDim(), 128)
	is.Equal(info.Dim(-2), 100)
	is.Equal(info.Dim(0), 1)
	is.Equal(info.Dim(5), 0)
	is.Equal(TensorInfo{}.LastDim(), 0)
}

func TestDescriptorExpect(t *testing.T) {
	is := is.New(t)
	d := Descriptor{
		Inputs:  []TensorInfo{{Name: "a"}, {Name: "b"}},
		Outputs: []TensorInfo{{Name: "c"}},
	}
	is.NoErr(d.Expect(2, 1))
	is.True(errors.Is(d.Expect(2, 2), ErrShape))
}

type stubModel struct{ runs int }

func (s *stubModel) Descriptor() Descriptor { return Descriptor{} }
func (s *stubModel) Run(...Tensor) ([]Tensor, error) {
	s.runs++
	return nil, nil
}
func (s *stubModel) Close() error { return nil }

type latencyLog map[string]int

func (l latencyLog) RecordInference(_ context.Context, name string, _ time.Duration) { l[name]++ }

func TestInstrument(t *testing.T) {
	is := is.New(t)
	inner := &stubModel{}
	is.Equal(Instrument(inner, "detect", nil), Model(inner))

	rec := latencyLog{}
	m := Instrument(inner, "detect", rec)
	_, err := m.Run()
	is.NoErr(err)
	is.Equal(inner.runs, 1)
	is.Equal(rec["detect"], 1)
}
