// value.go - Host-Werte fuer SetTensor/GetTensor
//
// Ein Value ist eine getaggte Variante {Array, Skalar, String} mit expliziter
// Form und Typ. Die native Schicht sieht nur die Byte-Darstellung.
package interpreter

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/tflite-micro/tflm-go/native"
)

// Kind unterscheidet die Varianten eines Value.
type Kind int

const (
	KindArray Kind = iota
	KindScalar
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindScalar:
		return "scalar"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Numeric umfasst alle Go-Typen mit fester Entsprechung in TensorType.
type Numeric interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64 |
		complex64 | complex128
}

// Value ist ein Tensor-Inhalt auf der Host-Seite.
type Value struct {
	Kind  Kind
	Type  native.TensorType
	Shape []int

	// Data haelt numerische Elemente little-endian, dicht gepackt
	Data []byte

	// Strings haelt die Elemente von KindString
	Strings []string
}

// TypeOf gibt den TensorType fuer T zurueck
func TypeOf[T Numeric]() native.TensorType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return native.TypeInt8
	case int16:
		return native.TypeInt16
	case int32:
		return native.TypeInt32
	case int64:
		return native.TypeInt64
	case uint8:
		return native.TypeUInt8
	case uint16:
		return native.TypeUInt16
	case uint32:
		return native.TypeUInt32
	case uint64:
		return native.TypeUInt64
	case float32:
		return native.TypeFloat32
	case float64:
		return native.TypeFloat64
	case complex64:
		return native.TypeComplex64
	case complex128:
		return native.TypeComplex128
	}
	return native.TypeNoType
}

// NewArray erzeugt ein Array. Ohne shape ist die Form eindimensional.
func NewArray[T Numeric](data []T, shape ...int) Value {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Value{
		Kind:  KindArray,
		Type:  TypeOf[T](),
		Shape: slices.Clone(shape),
		Data:  encode(data),
	}
}

// NewScalar erzeugt einen Skalar (Form [])
func NewScalar[T Numeric](v T) Value {
	return Value{
		Kind:  KindScalar,
		Type:  TypeOf[T](),
		Shape: []int{},
		Data:  encode([]T{v}),
	}
}

// NewBools erzeugt ein BOOL-Array (ein Byte pro Element)
func NewBools(data []bool, shape ...int) Value {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	b := make([]byte, len(data))
	for i, v := range data {
		if v {
			b[i] = 1
		}
	}
	return Value{Kind: KindArray, Type: native.TypeBool, Shape: slices.Clone(shape), Data: b}
}

// NewFloat16Array kodiert float32-Werte als FLOAT16
func NewFloat16Array(data []float32, shape ...int) Value {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	b := make([]byte, 2*len(data))
	for i, f := range data {
		binary.LittleEndian.PutUint16(b[2*i:], float16.Fromfloat32(f).Bits())
	}
	return Value{Kind: KindArray, Type: native.TypeFloat16, Shape: slices.Clone(shape), Data: b}
}

// NewBFloat16Array kodiert float32-Werte als BFLOAT16
func NewBFloat16Array(data []float32, shape ...int) Value {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Value{Kind: KindArray, Type: native.TypeBFloat16, Shape: slices.Clone(shape), Data: bfloat16.EncodeFloat32(data)}
}

// NewStrings erzeugt einen STRING-Wert
func NewStrings(data []string, shape ...int) Value {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Value{Kind: KindString, Type: native.TypeString, Shape: slices.Clone(shape), Strings: slices.Clone(data)}
}

// NumElements gibt die Anzahl Elemente laut Form zurueck
func (v Value) NumElements() int {
	return native.NumElements(v.Shape)
}

// Validate prueft ob Form, Typ und Daten zusammenpassen
func (v Value) Validate() error {
	n := v.NumElements()
	switch v.Kind {
	case KindString:
		if v.Type != native.TypeString {
			return fmt.Errorf("%w: string value with type %s", ErrTypeMismatch, v.Type)
		}
		if len(v.Strings) != n {
			return fmt.Errorf("%w: %d strings for shape %v", ErrShapeMismatch, len(v.Strings), v.Shape)
		}
	case KindScalar:
		if len(v.Shape) != 0 {
			return fmt.Errorf("%w: scalar with shape %v", ErrShapeMismatch, v.Shape)
		}
		fallthrough
	case KindArray:
		size := v.Type.Size()
		if size == 0 {
			return fmt.Errorf("%w: type %s has no fixed element size", ErrTypeMismatch, v.Type)
		}
		if len(v.Data) != n*size {
			return fmt.Errorf("%w: %d bytes for shape %v of %s", ErrShapeMismatch, len(v.Data), v.Shape, v.Type)
		}
	default:
		return fmt.Errorf("%w: unknown value kind %d", ErrInvalidArgument, int(v.Kind))
	}
	return nil
}

// As dekodiert die Elemente als []T. Der Typ muss exakt passen.
func As[T Numeric](v Value) ([]T, error) {
	if want := TypeOf[T](); v.Type != want {
		return nil, fmt.Errorf("%w: value has type %s, requested %s", ErrTypeMismatch, v.Type, want)
	}
	return decode[T](v.Data)
}

// Bools dekodiert ein BOOL-Array
func (v Value) Bools() ([]bool, error) {
	if v.Type != native.TypeBool {
		return nil, fmt.Errorf("%w: value has type %s, requested BOOL", ErrTypeMismatch, v.Type)
	}
	out := make([]bool, len(v.Data))
	for i, b := range v.Data {
		out[i] = b != 0
	}
	return out, nil
}

// Float32s konvertiert jeden numerischen Typ nach float32 (auch FLOAT16 und BFLOAT16)
func (v Value) Float32s() ([]float32, error) {
	switch v.Type {
	case native.TypeFloat32:
		return As[float32](v)
	case native.TypeFloat16:
		out := make([]float32, len(v.Data)/2)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(v.Data[2*i:])).Float32()
		}
		return out, nil
	case native.TypeBFloat16:
		return bfloat16.DecodeFloat32(v.Data), nil
	case native.TypeFloat64:
		return convert[float64](v)
	case native.TypeInt8:
		return convert[int8](v)
	case native.TypeUInt8:
		return convert[uint8](v)
	case native.TypeInt16:
		return convert[int16](v)
	case native.TypeUInt16:
		return convert[uint16](v)
	case native.TypeInt32:
		return convert[int32](v)
	case native.TypeUInt32:
		return convert[uint32](v)
	case native.TypeInt64:
		return convert[int64](v)
	case native.TypeUInt64:
		return convert[uint64](v)
	case native.TypeBool:
		out := make([]float32, len(v.Data))
		for i, b := range v.Data {
			if b != 0 {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %s to float32", ErrTypeMismatch, v.Type)
	}
}

// Dequantize wendet real = scale * (q - zero_point) an. Nur per-Tensor.
func (v Value) Dequantize(q Quantization) ([]float32, error) {
	f, err := v.Float32s()
	if err != nil {
		return nil, err
	}
	if q.Scale == 0 {
		return f, nil
	}
	for i := range f {
		f[i] = q.Scale * (f[i] - float32(q.ZeroPoint))
	}
	return f, nil
}

// Equal vergleicht Kind, Typ, Form und Inhalt
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind &&
		v.Type == o.Type &&
		slices.Equal(v.Shape, o.Shape) &&
		slices.Equal(v.Data, o.Data) &&
		slices.Equal(v.Strings, o.Strings)
}

type realNumber interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

func convert[T realNumber](v Value) ([]float32, error) {
	s, err := decode[T](v.Data)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(s))
	for i, e := range s {
		out[i] = float32(e)
	}
	return out, nil
}

func encode[T Numeric](data []T) []byte {
	b, err := binary.Append(nil, binary.LittleEndian, data)
	if err != nil {
		// feste Groessen, kann nicht fehlschlagen
		panic(err)
	}
	return b
}

func decode[T Numeric](b []byte) ([]T, error) {
	size := binary.Size(*new(T))
	if size <= 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrShapeMismatch, len(b), size)
	}
	s := make([]T, len(b)/size)
	if _, err := binary.Decode(b, binary.LittleEndian, s); err != nil {
		return nil, err
	}
	return s, nil
}

// String fuer Debug-Ausgaben
func (v Value) String() string {
	if v.Kind == KindString {
		return fmt.Sprintf("%s%v %q", v.Type, v.Shape, v.Strings)
	}
	return fmt.Sprintf("%s%v %d bytes", v.Type, v.Shape, len(v.Data))
}
