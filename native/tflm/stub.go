//go:build !tflm || !cgo

// stub.go
// Stub wenn TFLM oder CGO nicht verfuegbar ist. Das Backend bleibt sichtbar,
// damit Fehlermeldungen den Build-Tag nennen statt "unknown backend".

package tflm

import (
	"github.com/tflite-micro/tflm-go/native"
)

func init() {
	native.RegisterBackend(BackendName, New)
}

// New gibt immer ErrUnavailable zurueck
func New(path string, opts native.Options) (native.Interpreter, error) {
	return nil, ErrUnavailable
}
