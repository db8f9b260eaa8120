package nativetest

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/tflite-micro/tflm-go/native"
)

const arenaAlignment = 16

// Interpreter ist die In-Memory-Implementierung von native.Interpreter.
type Interpreter struct {
	model *Model
	opts  native.Options

	arena   []byte
	buffers [][]byte

	// String-Tensoren liegen ausserhalb der Arena, ihre Groesse ist dynamisch
	strings map[int][]byte

	allocated bool
	closed    bool

	// Invocations zaehlt erfolgreiche Invoke-Aufrufe
	Invocations int
}

// New erzeugt einen Interpreter ohne Dateizugriff.
func New(m *Model, opts native.Options) *Interpreter {
	return &Interpreter{model: m, opts: opts}
}

func align(n int) int {
	return (n + arenaAlignment - 1) &^ (arenaAlignment - 1)
}

// ArenaUsed gibt die Anzahl Bytes zurueck, die AllocateTensors benoetigt
func (m *Model) ArenaUsed() int {
	used := 0
	for _, t := range m.Tensors {
		used += align(t.Bytes())
	}
	return used
}

func (in *Interpreter) check(i int) error {
	if in.closed {
		return fmt.Errorf("interpreter released")
	}
	if i < 0 || i >= len(in.model.Tensors) {
		return fmt.Errorf("%w: index %d, tensor count %d", native.ErrIndexOutOfRange, i, len(in.model.Tensors))
	}
	return nil
}

func (in *Interpreter) AllocateTensors() error {
	if in.closed {
		return fmt.Errorf("interpreter released")
	}

	needed := in.model.ArenaUsed()
	if needed > in.opts.ArenaSize {
		return fmt.Errorf("Arena size is too small for all buffers. Needed %d but only %d was available.", needed, in.opts.ArenaSize)
	}

	// eine neue Arena, alte Slices zeigen nicht mehr auf aktuellen Speicher
	in.arena = make([]byte, in.opts.ArenaSize)
	in.buffers = make([][]byte, len(in.model.Tensors))
	in.strings = make(map[int][]byte)

	offset := 0
	for i, t := range in.model.Tensors {
		n := t.Bytes()
		if t.Type == native.TypeString {
			in.strings[i] = slices.Clone(t.Data)
			continue
		}
		in.buffers[i] = in.arena[offset : offset+n : offset+n]
		copy(in.buffers[i], t.Data)
		offset += align(n)
	}

	in.allocated = true
	return nil
}

func (in *Interpreter) Invoke() error {
	if in.closed {
		return fmt.Errorf("interpreter released")
	}
	if !in.allocated {
		return fmt.Errorf("%w: Invoke() called before AllocateTensors()", native.ErrNotAllocated)
	}

	if in.model.Op != nil {
		bufs := make([][]byte, len(in.buffers))
		for i := range in.buffers {
			if s, ok := in.strings[i]; ok {
				bufs[i] = s
			} else {
				bufs[i] = in.buffers[i]
			}
		}
		if err := in.model.Op(bufs); err != nil {
			return fmt.Errorf("Node failed to invoke: %w", err)
		}
	}

	in.Invocations++
	return nil
}

func (in *Interpreter) ResetVariableTensors() error {
	if in.closed {
		return fmt.Errorf("interpreter released")
	}
	if !in.allocated {
		return fmt.Errorf("%w: ResetVariableTensors() called before AllocateTensors()", native.ErrNotAllocated)
	}

	for i, t := range in.model.Tensors {
		if t.Variable && in.buffers[i] != nil {
			clear(in.buffers[i])
		}
	}
	return nil
}

func (in *Interpreter) InputIndices() ([]int, error) {
	if in.closed {
		return nil, fmt.Errorf("interpreter released")
	}
	return slices.Clone(in.model.Inputs), nil
}

func (in *Interpreter) OutputIndices() ([]int, error) {
	if in.closed {
		return nil, fmt.Errorf("interpreter released")
	}
	return slices.Clone(in.model.Outputs), nil
}

func (in *Interpreter) NumTensors() int {
	if in.closed {
		return 0
	}
	return len(in.model.Tensors)
}

func (in *Interpreter) TensorName(i int) (string, error) {
	if err := in.check(i); err != nil {
		return "", err
	}
	return in.model.Tensors[i].Name, nil
}

func (in *Interpreter) TensorType(i int) (native.TensorType, error) {
	if err := in.check(i); err != nil {
		return native.TypeNoType, err
	}
	return in.model.Tensors[i].Type, nil
}

func (in *Interpreter) TensorShape(i int) ([]int, error) {
	if err := in.check(i); err != nil {
		return nil, err
	}
	return slices.Clone(in.model.Tensors[i].Shape), nil
}

func (in *Interpreter) TensorQuantization(i int) (native.QuantizationParams, error) {
	if err := in.check(i); err != nil {
		return native.QuantizationParams{}, err
	}
	q := in.model.Tensors[i].Quantization
	return native.QuantizationParams{
		Scales:             slices.Clone(q.Scales),
		ZeroPoints:         slices.Clone(q.ZeroPoints),
		QuantizedDimension: q.QuantizedDimension,
	}, nil
}

func (in *Interpreter) SetTensor(i int, data []byte) error {
	if err := in.check(i); err != nil {
		return err
	}
	if !in.allocated {
		return fmt.Errorf("%w: tensor %d has no buffer", native.ErrNotAllocated, i)
	}

	if _, ok := in.strings[i]; ok {
		in.strings[i] = slices.Clone(data)
		return nil
	}

	if len(data) != len(in.buffers[i]) {
		return fmt.Errorf("Tensor %d expects %d bytes, got %d", i, len(in.buffers[i]), len(data))
	}
	copy(in.buffers[i], data)
	return nil
}

func (in *Interpreter) TensorBytes(i int) ([]byte, error) {
	if err := in.check(i); err != nil {
		return nil, err
	}
	if !in.allocated {
		return nil, fmt.Errorf("%w: tensor %d has no buffer", native.ErrNotAllocated, i)
	}

	if s, ok := in.strings[i]; ok {
		return s, nil
	}
	return in.buffers[i], nil
}

func (in *Interpreter) Handle() uintptr {
	if in.closed {
		return 0
	}
	return uintptr(unsafe.Pointer(in))
}

// Closed meldet ob Close aufgerufen wurde
func (in *Interpreter) Closed() bool {
	return in.closed
}

func (in *Interpreter) Close() error {
	if in.closed {
		return fmt.Errorf("interpreter released twice")
	}
	in.closed = true
	in.arena = nil
	in.buffers = nil
	in.strings = nil
	return nil
}
