// Package tflm bindet TensorFlow Lite Micro als natives Backend ein.
//
// Die cgo-Implementierung wird mit -tags tflm und aktiviertem cgo gebaut.
// tflm_c.cc kapselt tflite::MicroInterpreter hinter der C-Schnittstelle aus
// tflm_c.h und wird gegen libtensorflow-microlite gelinkt. Header und
// Bibliothek kommen aus einem TFLM-Checkout, z.B.:
//
//	make -f tensorflow/lite/micro/tools/make/Makefile microlite
//	CGO_CXXFLAGS="-I$TFLM -I$TFLM/tensorflow/lite/micro/tools/make/downloads/flatbuffers/include" \
//	CGO_LDFLAGS="-L$TFLM/gen/linux_x86_64_default/lib" go build -tags tflm
//
// Registriert sind die gaengigen Builtin-Ops (Conv2D, FullyConnected,
// Softmax, ...), siehe register_ops in tflm_c.cc.
//
// Ohne diese Voraussetzungen registriert das Paket ein Backend, dessen
// Factory ErrUnavailable liefert.
//
// Import mit _ "github.com/tflite-micro/tflm-go/native/tflm"
package tflm

import "errors"

// BackendName ist der Registry-Name des Backends
const BackendName = "tflm"

// ErrUnavailable wird zurueckgegeben wenn das Binary ohne TFLM gebaut wurde
var ErrUnavailable = errors.New("tflm: backend not available (build with -tags tflm and cgo)")
