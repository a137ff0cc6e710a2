// Package model defines the inference boundary used by the detection stages.
//
// A model is an opaque, synchronous tensor function. Its input and output
// shapes are read from a Descriptor at construction time so stages never
// hardcode model geometry.
package model

import (
	"errors"
	"fmt"
)

// ErrShape reports a tensor that does not match a model's declared shape.
var ErrShape = errors.New("tensor shape mismatch")

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor allocates a zeroed tensor of the given shape.
func NewTensor(shape ...int64) Tensor {
	return Tensor{Shape: append([]int64(nil), shape...), Data: make([]float32, Elements(shape))}
}

// Elements returns the number of elements described by shape.
func Elements(shape []int64) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

// Validate checks that the data length matches the shape.
func (t Tensor) Validate() error {
	if want := Elements(t.Shape); len(t.Data) != want {
		return fmt.Errorf("%w: %d values for shape %v (want %d)", ErrShape, len(t.Data), t.Shape, want)
	}
	return nil
}

// Zero sets every element to 0.
func (t Tensor) Zero() {
	clear(t.Data)
}

// TensorInfo describes one named model input or output.
type TensorInfo struct {
	Name  string
	Shape []int64
}

// LastDim returns the innermost dimension, or 0 for a scalar.
func (i TensorInfo) LastDim() int {
	if len(i.Shape) == 0 {
		return 0
	}
	return int(i.Shape[len(i.Shape)-1])
}

// Dim returns dimension n, counting negative n from the end.
func (i TensorInfo) Dim(n int) int {
	if n < 0 {
		n += len(i.Shape)
	}
	if n < 0 || n >= len(i.Shape) {
		return 0
	}
	return int(i.Shape[n])
}

// Descriptor lists a model's inputs and outputs in call order.
type Descriptor struct {
	Inputs  []TensorInfo
	Outputs []TensorInfo
}

// Expect verifies the descriptor has at least the given number of inputs
// and outputs.
func (d Descriptor) Expect(inputs, outputs int) error {
	if len(d.Inputs) < inputs || len(d.Outputs) < outputs {
		return fmt.Errorf("%w: model has %d inputs and %d outputs, want %d and %d",
			ErrShape, len(d.Inputs), len(d.Outputs), inputs, outputs)
	}
	return nil
}

// Model is a synchronous tensor function.
type Model interface {
	// Descriptor returns the model's declared inputs and outputs.
	Descriptor() Descriptor
	// Run evaluates the model. Inputs are given in Descriptor().Inputs order
	// and outputs are returned in Descriptor().Outputs order.
	Run(inputs ...Tensor) ([]Tensor, error)
	// Close releases runtime resources.
	Close() error
}

// Loader opens models by path.
type Loader interface {
	Load(path string) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (Model, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (Model, error) { return f(path) }
