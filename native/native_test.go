package native

import (
	"errors"
	"strings"
	"testing"
)

func TestTensorTypeString(t *testing.T) {
	cases := []struct {
		typ  TensorType
		want string
		size int
	}{
		{TypeFloat32, "FLOAT32", 4},
		{TypeInt8, "INT8", 1},
		{TypeUInt8, "UINT8", 1},
		{TypeInt16, "INT16", 2},
		{TypeFloat16, "FLOAT16", 2},
		{TypeBFloat16, "BFLOAT16", 2},
		{TypeInt64, "INT64", 8},
		{TypeComplex128, "COMPLEX128", 16},
		{TypeString, "STRING", 0},
		{TensorType(99), "TensorType(99)", 0},
	}

	for _, tt := range cases {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String(%d) = %q, erwartet %q", int(tt.typ), got, tt.want)
		}
		if got := tt.typ.Size(); got != tt.size {
			t.Errorf("Size(%s) = %d, erwartet %d", tt.typ, got, tt.size)
		}
	}
}

func TestParseTensorType(t *testing.T) {
	for _, s := range []string{"float32", "FLOAT32", " Float32 "} {
		got, err := ParseTensorType(s)
		if err != nil {
			t.Fatalf("ParseTensorType(%q) error = %v", s, err)
		}
		if got != TypeFloat32 {
			t.Errorf("ParseTensorType(%q) = %s, erwartet FLOAT32", s, got)
		}
	}

	if _, err := ParseTensorType("float128"); err == nil {
		t.Error("Erwartet Fehler bei unbekanntem Typ")
	}
}

func TestTensorTypeText(t *testing.T) {
	b, err := TypeInt8.MarshalText()
	if err != nil || string(b) != "INT8" {
		t.Fatalf("MarshalText = %q, %v", b, err)
	}

	var typ TensorType
	if err := typ.UnmarshalText([]byte("uint16")); err != nil {
		t.Fatal(err)
	}
	if typ != TypeUInt16 {
		t.Errorf("UnmarshalText = %s, erwartet UINT16", typ)
	}
}

func TestRegistry(t *testing.T) {
	called := false
	RegisterBackend("registry-test", func(path string, opts Options) (Interpreter, error) {
		called = true
		return nil, errors.New("no model")
	})
	t.Cleanup(func() { UnregisterBackend("registry-test") })

	found := false
	for _, name := range Backends() {
		if name == "registry-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Backends() = %v, registry-test fehlt", Backends())
	}

	if _, err := NewInterpreter("registry-test", "model.tflite", Options{ArenaSize: 1024}); err == nil || !called {
		t.Errorf("Factory nicht aufgerufen oder Fehler verschluckt: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Erwartet panic bei doppelter Registrierung")
		}
	}()
	RegisterBackend("registry-test", nil)
}

func TestNewInterpreterUnknownBackend(t *testing.T) {
	RegisterBackend("suggest-me", func(string, Options) (Interpreter, error) { return nil, nil })
	t.Cleanup(func() { UnregisterBackend("suggest-me") })

	_, err := NewInterpreter("suggest-mi", "m.tflite", Options{})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("erwartet ErrUnknownBackend, bekommen %v", err)
	}
	if !strings.Contains(err.Error(), `did you mean "suggest-me"`) {
		t.Errorf("Vorschlag fehlt: %v", err)
	}

	_, err = NewInterpreter("completely-different-name", "m.tflite", Options{})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("kein Vorschlag erwartet: %v", err)
	}
}

func TestNumElements(t *testing.T) {
	if n := NumElements(nil); n != 1 {
		t.Errorf("NumElements(nil) = %d, erwartet 1", n)
	}
	if n := NumElements([]int{2, 3, 4}); n != 24 {
		t.Errorf("NumElements = %d, erwartet 24", n)
	}
}
