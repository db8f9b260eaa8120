// dump.go - Dump-Funktionen fuer Tensor-Debugging und Visualisierung
// Dieses Modul stellt Hilfsfunktionen zum Ausgeben von Tensor-Inhalten bereit.
package interpreter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tflite-micro/tflm-go/native"
)

func mul(s ...int) int {
	p := 1
	for _, v := range s {
		p *= v
	}

	return p
}

// DumpOptions configures value dump output format.
type DumpOptions func(*dumpOptions)

// DumpWithPrecision sets the number of decimal places to print. Applies to floating point types.
func DumpWithPrecision(n int) DumpOptions {
	return func(opts *dumpOptions) {
		opts.Precision = n
	}
}

// DumpWithThreshold sets the threshold for printing the entire value. If the number of elements
// is less than or equal to this value, everything is printed. Otherwise, only the
// beginning and end of each dimension will be printed.
func DumpWithThreshold(n int) DumpOptions {
	return func(opts *dumpOptions) {
		opts.Threshold = n
	}
}

// DumpWithEdgeItems sets the number of elements to print at the beginning and end of each dimension.
func DumpWithEdgeItems(n int) DumpOptions {
	return func(opts *dumpOptions) {
		opts.EdgeItems = n
	}
}

type dumpOptions struct {
	Precision, Threshold, EdgeItems int
}

// Dump converts a value to a human-readable string representation.
func Dump(v Value, optsFuncs ...DumpOptions) string {
	opts := dumpOptions{Precision: 4, Threshold: 1000, EdgeItems: 3}
	for _, optsFunc := range optsFuncs {
		optsFunc(&opts)
	}

	if mul(v.Shape...) <= opts.Threshold {
		opts.EdgeItems = math.MaxInt
	}

	texts, err := dumpTexts(v, opts.Precision)
	if err != nil {
		return "<unsupported>"
	}
	if len(texts) != mul(v.Shape...) {
		return "<invalid>"
	}

	if len(v.Shape) == 0 {
		return texts[0]
	}

	return dump(texts, v.Shape, opts.EdgeItems)
}

func dumpTexts(v Value, precision int) ([]string, error) {
	format := func(s []float32) []string {
		out := make([]string, len(s))
		for i, f := range s {
			out[i] = strconv.FormatFloat(float64(f), 'f', precision, 32)
		}
		return out
	}

	switch v.Type {
	case native.TypeFloat32, native.TypeFloat16, native.TypeBFloat16:
		f, err := v.Float32s()
		if err != nil {
			return nil, err
		}
		return format(f), nil
	case native.TypeFloat64:
		f, err := As[float64](v)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(f))
		for i, e := range f {
			out[i] = strconv.FormatFloat(e, 'f', precision, 64)
		}
		return out, nil
	case native.TypeInt8, native.TypeInt16, native.TypeInt32, native.TypeInt64,
		native.TypeUInt8, native.TypeUInt16, native.TypeUInt32:
		// ganzzahlig, float32 waere bei int32/int64 verlustbehaftet
		return dumpInts(v)
	case native.TypeUInt64:
		u, err := As[uint64](v)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(u))
		for i, e := range u {
			out[i] = strconv.FormatUint(e, 10)
		}
		return out, nil
	case native.TypeBool:
		b, err := v.Bools()
		if err != nil {
			return nil, err
		}
		out := make([]string, len(b))
		for i, e := range b {
			out[i] = strconv.FormatBool(e)
		}
		return out, nil
	case native.TypeComplex64:
		c, err := As[complex64](v)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(c))
		for i, e := range c {
			out[i] = strconv.FormatComplex(complex128(e), 'f', precision, 64)
		}
		return out, nil
	case native.TypeString:
		out := make([]string, len(v.Strings))
		for i, s := range v.Strings {
			out[i] = strconv.Quote(s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot dump %s", ErrTypeMismatch, v.Type)
	}
}

func dumpInts(v Value) ([]string, error) {
	var ints []int64
	switch v.Type {
	case native.TypeInt8:
		ints = widen[int8](v)
	case native.TypeInt16:
		ints = widen[int16](v)
	case native.TypeInt32:
		ints = widen[int32](v)
	case native.TypeInt64:
		ints = widen[int64](v)
	case native.TypeUInt8:
		ints = widen[uint8](v)
	case native.TypeUInt16:
		ints = widen[uint16](v)
	case native.TypeUInt32:
		ints = widen[uint32](v)
	}

	out := make([]string, len(ints))
	for i, e := range ints {
		out[i] = strconv.FormatInt(e, 10)
	}
	return out, nil
}

func widen[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32](v Value) []int64 {
	s, err := As[T](v)
	if err != nil {
		return nil
	}
	out := make([]int64, len(s))
	for i, e := range s {
		out[i] = int64(e)
	}
	return out
}

func dump(s []string, shape []int, items int) string {
	var sb strings.Builder
	var f func([]int, int)
	f = func(dims []int, stride int) {
		prefix := strings.Repeat(" ", len(shape)-len(dims)+1)
		sb.WriteString("[")
		defer func() { sb.WriteString("]") }()
		for i := 0; i < dims[0]; i++ {
			if i >= items && i < dims[0]-items {
				sb.WriteString("..., ")
				// skip to next printable element
				skip := dims[0] - 2*items
				if len(dims) > 1 {
					stride += mul(dims[1:]...) * skip
					fmt.Fprint(&sb, strings.Repeat("\n", len(dims)-1), prefix)
				}
				i += skip - 1
			} else if len(dims) > 1 {
				f(dims[1:], stride)
				stride += mul(dims[1:]...)
				if i < dims[0]-1 {
					fmt.Fprint(&sb, ",", strings.Repeat("\n", len(dims)-1), prefix)
				}
			} else {
				text := s[stride+i]
				if len(text) > 0 && text[0] != '-' {
					sb.WriteString(" ")
				}

				sb.WriteString(text)
				if i < dims[0]-1 {
					sb.WriteString(", ")
				}
			}
		}
	}
	f(shape, 0)

	return sb.String()
}
