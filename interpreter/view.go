package interpreter

import (
	"fmt"
	"unsafe"

	"github.com/tflite-micro/tflm-go/native"
)

// TensorView ist eine Sicht ohne Kopie auf den Tensor-Speicher in der Arena.
//
// Die Sicht haelt ihr Interpreter-Handle erreichbar, leiht sich aber nur den
// Speicher. Nach AllocateTensors oder Close liefert jeder Zugriff ErrStaleView.
// Slices, die vorher aus Bytes oder ViewAs gewonnen wurden, duerfen danach
// nicht mehr benutzt werden.
type TensorView struct {
	owner      *Interpreter
	index      int
	generation uint64

	typ   native.TensorType
	shape []int
	data  []byte
}

// Tensor gibt eine Sicht auf Tensor i zurueck. Der Tensor muss allokiert sein.
func (in *Interpreter) Tensor(i int) (*TensorView, error) {
	return call(in, "Tensor", i, func(n native.Interpreter) (*TensorView, error) {
		typ, err := n.TensorType(i)
		if err != nil {
			return nil, err
		}
		shape, err := n.TensorShape(i)
		if err != nil {
			return nil, err
		}
		b, err := n.TensorBytes(i)
		if err != nil {
			return nil, err
		}
		return &TensorView{
			owner:      in,
			index:      i,
			generation: in.generation,
			typ:        typ,
			shape:      shape,
			data:       b,
		}, nil
	})
}

func (v *TensorView) check() error {
	if v.owner.closed || v.owner.generation != v.generation {
		return &OperationError{Op: "TensorView", Index: v.index, Err: ErrStaleView}
	}
	return nil
}

// Valid meldet ob die Sicht noch auf gueltigen Speicher zeigt
func (v *TensorView) Valid() bool {
	return v.check() == nil
}

func (v *TensorView) Index() int { return v.index }

func (v *TensorView) Type() native.TensorType { return v.typ }

func (v *TensorView) Shape() []int { return v.shape }

// Bytes gibt den Arena-Speicher des Tensors zurueck. Schreibzugriffe wirken direkt.
func (v *TensorView) Bytes() ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	return v.data, nil
}

// Value gibt eine Kopie des aktuellen Inhalts zurueck
func (v *TensorView) Value() (Value, error) {
	if err := v.check(); err != nil {
		return Value{}, err
	}
	val, err := valueFromBytes(v.typ, v.shape, v.data)
	if err != nil {
		return Value{}, &OperationError{Op: "TensorView", Index: v.index, Err: err}
	}
	return val, nil
}

// ViewAs interpretiert den Arena-Speicher als []T ohne Kopie.
func ViewAs[T Numeric](v *TensorView) ([]T, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	if want := TypeOf[T](); v.typ != want {
		return nil, &OperationError{
			Op:    "TensorView",
			Index: v.index,
			Err:   fmt.Errorf("%w: tensor has type %s, requested %s", ErrTypeMismatch, v.typ, want),
		}
	}
	if len(v.data) == 0 {
		return nil, nil
	}

	size := int(unsafe.Sizeof(*new(T)))
	return unsafe.Slice((*T)(unsafe.Pointer(&v.data[0])), len(v.data)/size), nil
}
