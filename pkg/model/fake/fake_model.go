// Package fake provides a scripted model.Model for tests.
package fake

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chriscow/speechstack-go/pkg/model"
)

// RunFunc computes outputs from inputs.
type RunFunc func(inputs []model.Tensor) ([]model.Tensor, error)

// Model is a model.Model whose outputs come from a RunFunc. With no RunFunc
// it returns zero tensors of the declared output shapes.
type Model struct {
	desc model.Descriptor
	run  RunFunc

	mu     sync.Mutex
	calls  int
	inputs [][]model.Tensor
	closed bool
}

// New creates a fake with the given descriptor.
func New(desc model.Descriptor, run RunFunc) *Model {
	return &Model{desc: desc, run: run}
}

// Constant returns a fake whose first output is always filled with values
// (repeated to fill the declared shape). Any other outputs echo zeros.
func Constant(desc model.Descriptor, values ...float32) *Model {
	return New(desc, func([]model.Tensor) ([]model.Tensor, error) {
		outs := zeros(desc.Outputs)
		if len(outs) > 0 && len(values) > 0 {
			for i := range outs[0].Data {
				outs[0].Data[i] = values[i%len(values)]
			}
		}
		return outs, nil
	})
}

// Descriptor returns the scripted descriptor.
func (m *Model) Descriptor() model.Descriptor { return m.desc }

// Run validates inputs against the descriptor and returns scripted outputs.
func (m *Model) Run(inputs ...model.Tensor) ([]model.Tensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("fake model closed")
	}
	if len(inputs) != len(m.desc.Inputs) {
		return nil, fmt.Errorf("%w: got %d inputs, want %d", model.ErrShape, len(inputs), len(m.desc.Inputs))
	}
	recorded := make([]model.Tensor, len(inputs))
	for i, in := range inputs {
		if model.Elements(in.Shape) != model.Elements(m.desc.Inputs[i].Shape) {
			return nil, fmt.Errorf("%w: input %s has shape %v, want %v",
				model.ErrShape, m.desc.Inputs[i].Name, in.Shape, m.desc.Inputs[i].Shape)
		}
		recorded[i] = model.Tensor{
			Shape: append([]int64(nil), in.Shape...),
			Data:  append([]float32(nil), in.Data...),
		}
	}
	m.calls++
	m.inputs = append(m.inputs, recorded)
	if m.run == nil {
		return zeros(m.desc.Outputs), nil
	}
	return m.run(inputs)
}

// Close marks the model closed.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Run succeeded its input checks.
func (m *Model) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastInputs returns copies of the inputs of the most recent Run.
func (m *Model) LastInputs() []model.Tensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}

// Closed reports whether Close was called.
func (m *Model) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func zeros(infos []model.TensorInfo) []model.Tensor {
	outs := make([]model.Tensor, len(infos))
	for i, info := range infos {
		outs[i] = model.NewTensor(info.Shape...)
	}
	return outs
}

// Loader serves fakes by path.
type Loader map[string]*Model

// Load returns the fake registered for path.
func (l Loader) Load(path string) (model.Model, error) {
	m, ok := l[path]
	if !ok {
		return nil, fmt.Errorf("fake loader: no model for %q", path)
	}
	return m, nil
}
