// Package interpreter ist die Binding-Fassade ueber einem nativen
// TFLite-Micro-Interpreter.
//
// Ein *Interpreter besitzt genau eine native Instanz samt Tensor-Arena und
// gibt sie mit Close genau einmal frei. Jeder fehlbare native Aufruf wird
// einheitlich in einen *OperationError umgewandelt, Konstruktionsfehler in
// einen *ConstructionError.
//
// Ein Interpreter ist nicht thread-sicher. Gleichzeitige Aufrufe auf
// derselben Instanz sind undefiniert, der Aufrufer muss sie serialisieren.
package interpreter

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"sync"

	"github.com/tflite-micro/tflm-go/envconfig"
	"github.com/tflite-micro/tflm-go/format"
	"github.com/tflite-micro/tflm-go/logutil"
	"github.com/tflite-micro/tflm-go/native"
)

// Interpreter ist das Handle auf eine native Interpreter-Instanz.
type Interpreter struct {
	native    native.Interpreter
	path      string
	backend   string
	arenaSize int
	logger    *slog.Logger

	// generation wird bei AllocateTensors und Close erhoeht und entwertet TensorViews
	generation uint64

	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// CreateFromFile laedt ein Modell mit einer festen Arena-Groesse.
// Schlaegt die native Factory fehl, wird ein *ConstructionError mit dem
// Diagnosetext der nativen Bibliothek zurueckgegeben.
func CreateFromFile(path string, arenaSize int) (*Interpreter, error) {
	return CreateFromFileWithOptions(path, WithArenaSize(arenaSize))
}

// CreateFromFileWithOptions ist CreateFromFile mit Optionen. Ohne
// WithArenaSize gilt TFLM_ARENA_SIZE oder das Zehnfache der Modellgroesse.
func CreateFromFileWithOptions(path string, opts ...Option) (*Interpreter, error) {
	o := options{
		backend:     envconfig.Backend(),
		preserveAll: envconfig.PreserveAllTensors(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	arenaSize, err := resolveArenaSize(path, o)
	if err != nil {
		return nil, &ConstructionError{Path: path, Backend: o.backend, Msg: err.Error(), Err: err}
	}

	n, err := native.NewInterpreter(o.backend, path, native.Options{
		ArenaSize:          arenaSize,
		PreserveAllTensors: o.preserveAll,
	})
	if err != nil {
		return nil, &ConstructionError{Path: path, Backend: o.backend, Msg: err.Error(), Err: err}
	}
	if n == nil {
		return nil, &ConstructionError{Path: path, Backend: o.backend, Msg: "native factory returned no interpreter"}
	}

	in := &Interpreter{
		native:    n,
		path:      path,
		backend:   o.backend,
		arenaSize: arenaSize,
		logger:    o.logger,
	}
	runtime.SetFinalizer(in, (*Interpreter).finalize)

	in.logger.Debug("interpreter created", "path", path, "backend", o.backend,
		"arena", format.HumanBytes2(uint64(arenaSize)), "tensors", n.NumTensors())
	return in, nil
}

func resolveArenaSize(path string, o options) (int, error) {
	if o.arenaSet {
		if o.arenaSize <= 0 {
			return 0, fmt.Errorf("invalid tensor arena size %d", o.arenaSize)
		}
		return o.arenaSize, nil
	}

	if n := envconfig.ArenaSize(); n > 0 {
		return int(n), nil
	}

	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if fi.Size() == 0 {
		return 0, fmt.Errorf("model file %s is empty", path)
	}
	return DefaultArenaMultiplier * int(fi.Size()), nil
}

func (in *Interpreter) finalize() {
	if !in.closed {
		in.logger.Debug("interpreter released by finalizer", "path", in.path)
	}
	in.Close()
}

// call fuehrt fn auf der nativen Instanz aus und wandelt das Ergebnis um
func call[T any](in *Interpreter, op string, index int, fn func(native.Interpreter) (T, error)) (T, error) {
	if in.closed {
		return fail[T](ErrClosed).get(op, index)
	}

	logutil.Trace("native call", "op", op, "index", index)
	v, err := fn(in.native)
	return result[T]{value: v, err: err}.get(op, index)
}

func callErr(in *Interpreter, op string, index int, fn func(native.Interpreter) error) error {
	_, err := call(in, op, index, func(n native.Interpreter) (struct{}, error) {
		return struct{}{}, fn(n)
	})
	return err
}

// AllocateTensors plant die Arena. Vorher ausgegebene TensorViews werden ungueltig.
func (in *Interpreter) AllocateTensors() error {
	if !in.closed {
		in.generation++
	}
	return callErr(in, "AllocateTensors", -1, native.Interpreter.AllocateTensors)
}

// Invoke fuehrt den Graphen einmal aus
func (in *Interpreter) Invoke() error {
	return callErr(in, "Invoke", -1, native.Interpreter.Invoke)
}

// ResetVariableTensors setzt alle Zustands-Tensoren auf null
func (in *Interpreter) ResetVariableTensors() error {
	return callErr(in, "ResetVariableTensors", -1, native.Interpreter.ResetVariableTensors)
}

// Reset ist ResetVariableTensors
func (in *Interpreter) Reset() error {
	return in.ResetVariableTensors()
}

// InputIndices gibt die Tensor-Indizes der Modell-Eingaenge in Reihenfolge zurueck
func (in *Interpreter) InputIndices() ([]int, error) {
	return call(in, "InputIndices", -1, native.Interpreter.InputIndices)
}

// OutputIndices gibt die Tensor-Indizes der Modell-Ausgaenge in Reihenfolge zurueck
func (in *Interpreter) OutputIndices() ([]int, error) {
	return call(in, "OutputIndices", -1, native.Interpreter.OutputIndices)
}

// NumTensors gibt die Groesse der Tensor-Tabelle zurueck, 0 nach Close
func (in *Interpreter) NumTensors() int {
	if in.closed {
		return 0
	}
	return in.native.NumTensors()
}

func (in *Interpreter) TensorName(i int) (string, error) {
	return call(in, "TensorName", i, func(n native.Interpreter) (string, error) {
		return n.TensorName(i)
	})
}

func (in *Interpreter) TensorType(i int) (native.TensorType, error) {
	return call(in, "TensorType", i, func(n native.Interpreter) (native.TensorType, error) {
		return n.TensorType(i)
	})
}

// TensorSize gibt die Form des Tensors zurueck
func (in *Interpreter) TensorSize(i int) ([]int, error) {
	return call(in, "TensorSize", i, func(n native.Interpreter) ([]int, error) {
		return n.TensorShape(i)
	})
}

// TensorQuantization gibt Skala und Nullpunkt des ersten Kanals zurueck.
//
// Deprecated: TensorQuantizationParameters liefert alle Kanaele.
func (in *Interpreter) TensorQuantization(i int) (Quantization, error) {
	return call(in, "TensorQuantization", i, func(n native.Interpreter) (Quantization, error) {
		q, err := n.TensorQuantization(i)
		if err != nil {
			return Quantization{}, err
		}
		return perTensor(q), nil
	})
}

func (in *Interpreter) TensorQuantizationParameters(i int) (QuantizationParameters, error) {
	return call(in, "TensorQuantizationParameters", i, func(n native.Interpreter) (QuantizationParameters, error) {
		q, err := n.TensorQuantization(i)
		if err != nil {
			return QuantizationParameters{}, err
		}
		return QuantizationParameters{
			Scales:             q.Scales,
			ZeroPoints:         q.ZeroPoints,
			QuantizedDimension: q.QuantizedDimension,
		}, nil
	})
}

// SetTensor kopiert v in den Tensor-Puffer. Typ und Form muessen passen,
// ein Skalar passt auf jeden Tensor mit genau einem Element.
//
// GetTensor liefert immer die Form des Tensors: ein Skalar, geschrieben in
// einen Tensor der Form [1], kommt als KindArray mit Shape [1] zurueck und
// ist damit nicht Equal zum geschriebenen Wert.
func (in *Interpreter) SetTensor(i int, v Value) error {
	return callErr(in, "SetTensor", i, func(n native.Interpreter) error {
		if err := v.Validate(); err != nil {
			return err
		}

		typ, err := n.TensorType(i)
		if err != nil {
			return err
		}
		shape, err := n.TensorShape(i)
		if err != nil {
			return err
		}

		if typ != v.Type {
			return fmt.Errorf("%w: tensor has type %s, got %s", ErrTypeMismatch, typ, v.Type)
		}
		switch {
		case v.Kind == KindScalar && native.NumElements(shape) == 1:
		case slices.Equal(shape, v.Shape):
		default:
			return fmt.Errorf("%w: tensor has shape %v, got %v", ErrShapeMismatch, shape, v.Shape)
		}

		if v.Kind == KindString {
			return n.SetTensor(i, encodeStrings(v.Strings))
		}
		return n.SetTensor(i, v.Data)
	})
}

// GetTensor gibt eine Kopie des Tensor-Inhalts zurueck
func (in *Interpreter) GetTensor(i int) (Value, error) {
	return call(in, "GetTensor", i, func(n native.Interpreter) (Value, error) {
		typ, err := n.TensorType(i)
		if err != nil {
			return Value{}, err
		}
		shape, err := n.TensorShape(i)
		if err != nil {
			return Value{}, err
		}
		b, err := n.TensorBytes(i)
		if err != nil {
			return Value{}, err
		}
		return valueFromBytes(typ, shape, b)
	})
}

func valueFromBytes(typ native.TensorType, shape []int, b []byte) (Value, error) {
	if typ == native.TypeString {
		s, err := decodeStrings(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, Type: typ, Shape: shape, Strings: s}, nil
	}

	if typ.Size() == 0 {
		return Value{}, fmt.Errorf("%w: cannot read tensor of type %s", ErrTypeMismatch, typ)
	}

	kind := KindArray
	if len(shape) == 0 {
		kind = KindScalar
	}
	return Value{Kind: kind, Type: typ, Shape: shape, Data: slices.Clone(b)}, nil
}

// Pointer gibt die rohe Adresse der nativen Instanz zurueck (0 nach Close).
//
// Die Adresse umgeht jede Besitzpruefung dieses Pakets. Sie ist nur fuer
// Debugging und Interop gedacht und darf nicht ueber Close hinaus benutzt werden.
func (in *Interpreter) Pointer() uintptr {
	if in.closed {
		return 0
	}
	return in.native.Handle()
}

// Close gibt die native Instanz frei. Weitere Aufrufe sind wirkungslos und
// liefern das Ergebnis des ersten Aufrufs.
func (in *Interpreter) Close() error {
	in.closeOnce.Do(func() {
		in.closed = true
		in.generation++
		runtime.SetFinalizer(in, nil)

		if err := in.native.Close(); err != nil {
			in.closeErr = &OperationError{Op: "Close", Index: -1, Err: err}
		}
		in.logger.Debug("interpreter closed", "path", in.path)
	})
	return in.closeErr
}

// Backend gibt den Namen des nativen Backends zurueck
func (in *Interpreter) Backend() string { return in.backend }

// ArenaSize gibt die Groesse der Tensor-Arena in Bytes zurueck
func (in *Interpreter) ArenaSize() int { return in.arenaSize }

// Path gibt den Pfad der Modelldatei zurueck
func (in *Interpreter) Path() string { return in.path }
