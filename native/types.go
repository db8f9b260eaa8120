// types.go - Tensor-Typen und Quantisierungsparameter der nativen Schicht
// Die Nummerierung von TensorType entspricht TfLiteType aus common.h.
package native

import (
	"fmt"
	"strings"
)

// TensorType ist das Typ-Tag eines Tensors.
type TensorType int

const (
	TypeNoType TensorType = iota
	TypeFloat32
	TypeInt32
	TypeUInt8
	TypeInt64
	TypeString
	TypeBool
	TypeInt16
	TypeComplex64
	TypeInt8
	TypeFloat16
	TypeFloat64
	TypeComplex128
	TypeUInt64
	TypeResource
	TypeVariant
	TypeUInt32
	TypeUInt16
	TypeInt4
	TypeBFloat16
)

var typeNames = [...]string{
	TypeNoType:     "NOTYPE",
	TypeFloat32:    "FLOAT32",
	TypeInt32:      "INT32",
	TypeUInt8:      "UINT8",
	TypeInt64:      "INT64",
	TypeString:     "STRING",
	TypeBool:       "BOOL",
	TypeInt16:      "INT16",
	TypeComplex64:  "COMPLEX64",
	TypeInt8:       "INT8",
	TypeFloat16:    "FLOAT16",
	TypeFloat64:    "FLOAT64",
	TypeComplex128: "COMPLEX128",
	TypeUInt64:     "UINT64",
	TypeResource:   "RESOURCE",
	TypeVariant:    "VARIANT",
	TypeUInt32:     "UINT32",
	TypeUInt16:     "UINT16",
	TypeInt4:       "INT4",
	TypeBFloat16:   "BFLOAT16",
}

// String gibt den Namen wie TfLiteTypeGetName zurueck
func (t TensorType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("TensorType(%d)", int(t))
	}
	return typeNames[t]
}

// Size gibt die Groesse eines Elements in Bytes zurueck.
// Typen ohne feste Elementgroesse (STRING, RESOURCE, VARIANT, INT4) liefern 0.
func (t TensorType) Size() int {
	switch t {
	case TypeBool, TypeInt8, TypeUInt8:
		return 1
	case TypeInt16, TypeUInt16, TypeFloat16, TypeBFloat16:
		return 2
	case TypeInt32, TypeUInt32, TypeFloat32:
		return 4
	case TypeInt64, TypeUInt64, TypeFloat64, TypeComplex64:
		return 8
	case TypeComplex128:
		return 16
	default:
		return 0
	}
}

// MarshalText implementiert encoding.TextMarshaler
func (t TensorType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implementiert encoding.TextUnmarshaler
func (t *TensorType) UnmarshalText(b []byte) error {
	parsed, err := ParseTensorType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTensorType parst einen Typnamen (case-insensitive, "float32" oder "FLOAT32").
func ParseTensorType(s string) (TensorType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range typeNames {
		if n == name {
			return TensorType(i), nil
		}
	}
	return TypeNoType, fmt.Errorf("native: unknown tensor type %q", s)
}

// QuantizationParams beschreibt die affine Quantisierung eines Tensors.
// real = scale * (quantized - zero_point), pro Kanal entlang QuantizedDimension.
type QuantizationParams struct {
	Scales             []float32
	ZeroPoints         []int32
	QuantizedDimension int
}

// IsQuantized meldet ob mindestens eine Skala gesetzt ist
func (q QuantizationParams) IsQuantized() bool {
	return len(q.Scales) > 0
}

// NumElements multipliziert die Dimensionen einer Form
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
