package interpreter

import (
	"fmt"
	"math"
	"slices"

	"github.com/x448/float16"

	"github.com/tflite-micro/tflm-go/native"
)

// NewFromFloat64s baut einen Wert vom Typ typ aus Zahlen, z.B. aus JSON.
// shape nil bedeutet eindimensional, eine leere Form einen Skalar.
func NewFromFloat64s(typ native.TensorType, shape []int, values []float64) (Value, error) {
	dims := shape
	if dims == nil {
		dims = []int{len(values)}
	}

	var v Value
	var err error
	switch typ {
	case native.TypeFloat32:
		v, err = arrayFrom[float32](values, dims)
	case native.TypeFloat64:
		v = NewArray(values, dims...)
	case native.TypeFloat16:
		var f []float32
		if f, err = castTo[float32](values); err == nil {
			err = fitsFloat16(f)
			v = NewFloat16Array(f, dims...)
		}
	case native.TypeBFloat16:
		var f []float32
		if f, err = castTo[float32](values); err == nil {
			v = NewBFloat16Array(f, dims...)
		}
	case native.TypeInt8:
		v, err = arrayFrom[int8](values, dims)
	case native.TypeUInt8:
		v, err = arrayFrom[uint8](values, dims)
	case native.TypeInt16:
		v, err = arrayFrom[int16](values, dims)
	case native.TypeUInt16:
		v, err = arrayFrom[uint16](values, dims)
	case native.TypeInt32:
		v, err = arrayFrom[int32](values, dims)
	case native.TypeUInt32:
		v, err = arrayFrom[uint32](values, dims)
	case native.TypeInt64:
		v, err = arrayFrom[int64](values, dims)
	case native.TypeUInt64:
		v, err = arrayFrom[uint64](values, dims)
	case native.TypeBool:
		b := make([]bool, len(values))
		for i, f := range values {
			b[i] = f != 0
		}
		v = NewBools(b, dims...)
	default:
		return Value{}, fmt.Errorf("%w: cannot build %s from numbers", ErrTypeMismatch, typ)
	}
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", typ, err)
	}

	if len(dims) == 0 {
		v.Kind = KindScalar
		v.Shape = []int{}
	}
	if err := v.Validate(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// FromBytes uebernimmt rohe little-endian Daten, z.B. aus einer Datei
func FromBytes(typ native.TensorType, shape []int, data []byte) (Value, error) {
	v, err := valueFromBytes(typ, slices.Clone(shape), data)
	if err != nil {
		return Value{}, err
	}
	if err := v.Validate(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Float64s konvertiert jeden numerischen Typ nach float64
func (v Value) Float64s() ([]float64, error) {
	switch v.Type {
	case native.TypeFloat64:
		return As[float64](v)
	case native.TypeInt64:
		return widen64[int64](v)
	case native.TypeUInt64:
		return widen64[uint64](v)
	case native.TypeInt32:
		return widen64[int32](v)
	case native.TypeUInt32:
		return widen64[uint32](v)
	}

	f, err := v.Float32s()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(f))
	for i, e := range f {
		out[i] = float64(e)
	}
	return out, nil
}

func widen64[T realNumber](v Value) ([]float64, error) {
	s, err := decode[T](v.Data)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(s))
	for i, e := range s {
		out[i] = float64(e)
	}
	return out, nil
}

func arrayFrom[T realNumber](values []float64, dims []int) (Value, error) {
	data, err := castTo[T](values)
	if err != nil {
		return Value{}, err
	}
	return NewArray(data, dims...), nil
}

// castTo konvertiert nur verlustfrei darstellbare Werte. Ganzzahltypen
// verlangen ganze Zahlen im Wertebereich, float32 endliche Werte im Bereich.
func castTo[T realNumber](values []float64) ([]T, error) {
	lo, hi, integral := limits[T]()

	out := make([]T, len(values))
	for i, f := range values {
		switch {
		case integral && (math.IsNaN(f) || f != math.Trunc(f)):
			return nil, fmt.Errorf("%w: value %d (%g) is not an integer", ErrTypeMismatch, i, f)
		case integral && !(f >= lo && f < hi):
			return nil, fmt.Errorf("%w: value %d (%g) out of range [%g, %g)", ErrTypeMismatch, i, f, lo, hi)
		case !integral && !math.IsInf(f, 0) && (f < lo || f > hi):
			return nil, fmt.Errorf("%w: value %d (%g) overflows", ErrTypeMismatch, i, f)
		}
		out[i] = T(f)
	}
	return out, nil
}

// limits liefert [lo, hi) fuer Ganzzahltypen und [lo, hi] fuer Gleitkomma
func limits[T realNumber]() (lo, hi float64, integral bool) {
	var zero T
	switch any(zero).(type) {
	case int8:
		return math.MinInt8, math.MaxInt8 + 1, true
	case int16:
		return math.MinInt16, math.MaxInt16 + 1, true
	case int32:
		return math.MinInt32, math.MaxInt32 + 1, true
	case int64:
		return math.MinInt64, 1 << 63, true
	case uint8:
		return 0, math.MaxUint8 + 1, true
	case uint16:
		return 0, math.MaxUint16 + 1, true
	case uint32:
		return 0, math.MaxUint32 + 1, true
	case uint64:
		return 0, 1 << 64, true
	case float32:
		return -math.MaxFloat32, math.MaxFloat32, false
	}
	return math.Inf(-1), math.Inf(1), false
}

func fitsFloat16(values []float32) error {
	for i, f := range values {
		if float16.Fromfloat32(f).IsInf(0) && !math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: value %d (%g) overflows", ErrTypeMismatch, i, f)
		}
	}
	return nil
}
