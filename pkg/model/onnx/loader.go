package onnx

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/chriscow/speechstack-go/pkg/model"
)

// Loader opens ONNX model files.
type Loader struct {
	// LibraryPath is the onnxruntime shared library. See EnsureEnvironment.
	LibraryPath string
	// IntraOpThreads bounds per-op parallelism. Zero uses half the CPUs.
	IntraOpThreads int
}

var _ model.Loader = (*Loader)(nil)

// Load reads the model's input/output metadata and opens a session.
func (l *Loader) Load(path string) (model.Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", path, err)
	}
	if err := EnsureEnvironment(l.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	desc, err := Describe(path)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	threads := l.IntraOpThreads
	if threads <= 0 {
		threads = max(1, runtime.NumCPU()/2)
	}
	if err := options.SetIntraOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("failed to set inter-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(path, names(desc.Inputs), names(desc.Outputs), options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", path, err)
	}
	return &sessionModel{path: path, desc: desc, session: session}, nil
}

// Describe reads the declared inputs and outputs of an ONNX file. Dynamic
// dimensions are reported as 1, matching the single-batch streaming use.
func Describe(path string) (model.Descriptor, error) {
	if err := EnsureEnvironment(""); err != nil {
		return model.Descriptor{}, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	ins, outs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return model.Descriptor{}, fmt.Errorf("failed to read model metadata %s: %w", path, err)
	}
	desc := model.Descriptor{
		Inputs:  make([]model.TensorInfo, 0, len(ins)),
		Outputs: make([]model.TensorInfo, 0, len(outs)),
	}
	for _, in := range ins {
		if in.DataType != ort.TensorElementDataTypeFloat {
			return model.Descriptor{}, fmt.Errorf("%w: input %s has type %v, want float", model.ErrShape, in.Name, in.DataType)
		}
		desc.Inputs = append(desc.Inputs, info(in))
	}
	for _, out := range outs {
		desc.Outputs = append(desc.Outputs, info(out))
	}
	return desc, nil
}

func info(io ort.InputOutputInfo) model.TensorInfo {
	shape := make([]int64, len(io.Dimensions))
	for i, d := range io.Dimensions {
		if d < 1 {
			d = 1
		}
		shape[i] = d
	}
	return model.TensorInfo{Name: io.Name, Shape: shape}
}

func names(infos []model.TensorInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

type sessionModel struct {
	path string
	desc model.Descriptor

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

func (m *sessionModel) Descriptor() model.Descriptor { return m.desc }

func (m *sessionModel) Run(inputs ...model.Tensor) ([]model.Tensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("model %s is closed", m.path)
	}
	if len(inputs) != len(m.desc.Inputs) {
		return nil, fmt.Errorf("%w: got %d inputs, want %d", model.ErrShape, len(inputs), len(m.desc.Inputs))
	}

	in := make([]ort.Value, len(inputs))
	out := make([]ort.Value, len(m.desc.Outputs))
	defer destroy(in)
	defer destroy(out)

	for i, t := range inputs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("input %s: %w", m.desc.Inputs[i].Name, err)
		}
		tensor, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to create input tensor %s: %w", m.desc.Inputs[i].Name, err)
		}
		in[i] = tensor
	}
	outTensors := make([]*ort.Tensor[float32], len(m.desc.Outputs))
	for i, o := range m.desc.Outputs {
		tensor, err := ort.NewEmptyTensor[float32](ort.NewShape(o.Shape...))
		if err != nil {
			return nil, fmt.Errorf("failed to create output tensor %s: %w", o.Name, err)
		}
		outTensors[i] = tensor
		out[i] = tensor
	}

	if err := m.session.Run(in, out); err != nil {
		return nil, fmt.Errorf("inference failed for %s: %w", m.path, err)
	}

	results := make([]model.Tensor, len(outTensors))
	for i, t := range outTensors {
		results[i] = model.Tensor{
			Shape: append([]int64(nil), m.desc.Outputs[i].Shape...),
			Data:  append([]float32(nil), t.GetData()...),
		}
	}
	return results, nil
}

func (m *sessionModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

func destroy(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Destroy()
		}
	}
}
