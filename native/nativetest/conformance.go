package nativetest

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/tflite-micro/tflm-go/native"
)

// Conformance prueft den Vertrag von native.Interpreter gegen ein Backend.
// newInterp muss bei jedem Aufruf eine frische, nicht allokierte Instanz
// liefern. Die Suite schliesst die Instanzen selbst.
func Conformance(t *testing.T, newInterp func(t *testing.T) native.Interpreter) {
	t.Helper()

	t.Run("Metadata", func(t *testing.T) {
		in := newInterp(t)
		defer in.Close()

		n := in.NumTensors()
		if n <= 0 {
			t.Fatalf("NumTensors() = %d, erwartet > 0", n)
		}

		for i := range n {
			name1, err := in.TensorName(i)
			if err != nil {
				t.Fatalf("TensorName(%d): %v", i, err)
			}
			name2, _ := in.TensorName(i)
			if name1 != name2 {
				t.Errorf("TensorName(%d) nicht stabil: %q != %q", i, name1, name2)
			}

			typ1, err := in.TensorType(i)
			if err != nil {
				t.Fatalf("TensorType(%d): %v", i, err)
			}
			typ2, _ := in.TensorType(i)
			if typ1 != typ2 {
				t.Errorf("TensorType(%d) nicht stabil: %s != %s", i, typ1, typ2)
			}

			shape1, err := in.TensorShape(i)
			if err != nil {
				t.Fatalf("TensorShape(%d): %v", i, err)
			}
			shape2, _ := in.TensorShape(i)
			if !slices.Equal(shape1, shape2) {
				t.Errorf("TensorShape(%d) nicht stabil: %v != %v", i, shape1, shape2)
			}

			if _, err := in.TensorQuantization(i); err != nil {
				t.Fatalf("TensorQuantization(%d): %v", i, err)
			}
		}
	})

	t.Run("OutOfRange", func(t *testing.T) {
		in := newInterp(t)
		defer in.Close()

		for _, i := range []int{-1, in.NumTensors(), in.NumTensors() + 100} {
			if _, err := in.TensorName(i); !errors.Is(err, native.ErrIndexOutOfRange) {
				t.Errorf("TensorName(%d) = %v, erwartet ErrIndexOutOfRange", i, err)
			}
			if _, err := in.TensorType(i); !errors.Is(err, native.ErrIndexOutOfRange) {
				t.Errorf("TensorType(%d) = %v, erwartet ErrIndexOutOfRange", i, err)
			}
			if _, err := in.TensorShape(i); !errors.Is(err, native.ErrIndexOutOfRange) {
				t.Errorf("TensorShape(%d) = %v, erwartet ErrIndexOutOfRange", i, err)
			}
			if _, err := in.TensorQuantization(i); !errors.Is(err, native.ErrIndexOutOfRange) {
				t.Errorf("TensorQuantization(%d) = %v, erwartet ErrIndexOutOfRange", i, err)
			}
			if _, err := in.TensorBytes(i); err == nil {
				t.Errorf("TensorBytes(%d) erwartet Fehler", i)
			}
		}
	})

	t.Run("Indices", func(t *testing.T) {
		in := newInterp(t)
		defer in.Close()

		inputs, err := in.InputIndices()
		if err != nil {
			t.Fatal(err)
		}
		outputs, err := in.OutputIndices()
		if err != nil {
			t.Fatal(err)
		}
		if len(inputs) == 0 || len(outputs) == 0 {
			t.Fatalf("Eingaenge %v / Ausgaenge %v, erwartet mindestens je einen", inputs, outputs)
		}
		for _, i := range slices.Concat(inputs, outputs) {
			if i < 0 || i >= in.NumTensors() {
				t.Errorf("Index %d ausserhalb [0, %d)", i, in.NumTensors())
			}
		}
	})

	t.Run("SetTensorRoundTrip", func(t *testing.T) {
		in := newInterp(t)
		defer in.Close()

		if err := in.AllocateTensors(); err != nil {
			t.Fatalf("AllocateTensors: %v", err)
		}

		inputs, _ := in.InputIndices()
		for _, i := range inputs {
			typ, _ := in.TensorType(i)
			if typ.Size() == 0 {
				continue
			}

			buf, err := in.TensorBytes(i)
			if err != nil {
				t.Fatalf("TensorBytes(%d): %v", i, err)
			}

			data := make([]byte, len(buf))
			for k := range data {
				data[k] = byte(k*7 + 3)
			}
			if err := in.SetTensor(i, data); err != nil {
				t.Fatalf("SetTensor(%d): %v", i, err)
			}

			got, _ := in.TensorBytes(i)
			if !bytes.Equal(got, data) {
				t.Errorf("Tensor %d: Round-Trip fehlgeschlagen", i)
			}

			if err := in.SetTensor(i, data[:len(data)-1]); err == nil {
				t.Errorf("SetTensor(%d) mit falscher Laenge erwartet Fehler", i)
			}
		}

		if err := in.Invoke(); err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if err := in.ResetVariableTensors(); err != nil {
			t.Fatalf("ResetVariableTensors: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		in := newInterp(t)
		if in.Handle() == 0 {
			t.Error("Handle() = 0 vor Close")
		}
		if err := in.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if in.Handle() != 0 {
			t.Error("Handle() != 0 nach Close")
		}
		if n := in.NumTensors(); n != 0 {
			t.Errorf("NumTensors() nach Close = %d, erwartet 0", n)
		}
	})
}
