//go:build tflm && cgo

// tflm.go
// CGo-Binding an die C-Schicht tflm_c.h/tflm_c.cc ueber tflite::MicroInterpreter.
// Jeder fehlbare C-Aufruf liefert einen Status und fuellt einen Fehlerpuffer,
// der hier sofort in einen Go error umgewandelt wird.

package tflm

/*
#cgo CFLAGS: -std=c11
#cgo CXXFLAGS: -std=c++17 -DTF_LITE_STATIC_MEMORY -fno-exceptions -fno-rtti
#cgo LDFLAGS: -ltensorflow-microlite -lstdc++ -lm

#include <stdlib.h>
#include "tflm_c.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"unsafe"

	"github.com/tflite-micro/tflm-go/logutil"
	"github.com/tflite-micro/tflm-go/native"
)

const errBufLen = 512

// Status-Codes der C-Schicht
const (
	statusOK          = C.TFLM_STATUS_OK
	statusError       = C.TFLM_STATUS_ERROR
	statusOutOfRange  = C.TFLM_STATUS_OUT_OF_RANGE
	statusUnallocated = C.TFLM_STATUS_UNALLOCATED
)

func init() {
	native.RegisterBackend(BackendName, New)
}

// Interpreter haelt eine native MicroInterpreter-Instanz.
type Interpreter struct {
	c   *C.tflm_interpreter
	err [errBufLen]C.char
}

// New laedt die Modelldatei und erzeugt die native Instanz.
func New(path string, opts native.Options) (native.Interpreter, error) {
	if opts.ArenaSize <= 0 {
		return nil, fmt.Errorf("Invalid tensor arena size %d", opts.ArenaSize)
	}

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	preserve := C.int(0)
	if opts.PreserveAllTensors {
		preserve = 1
	}

	in := &Interpreter{}
	in.c = C.tflm_interpreter_create(cpath, C.size_t(opts.ArenaSize), preserve, &in.err[0], errBufLen)
	if in.c == nil {
		msg := C.GoString(&in.err[0])
		if msg == "" {
			msg = "failed to create interpreter from " + path
		}
		return nil, errors.New(msg)
	}

	logutil.Trace("tflm: interpreter created", "path", path, "arena", opts.ArenaSize, "handle", in.Handle())
	return in, nil
}

// status wandelt Status und Fehlerpuffer in einen error um
func (in *Interpreter) status(rc C.int, i int) error {
	msg := C.GoString(&in.err[0])
	in.err[0] = 0

	switch int(rc) {
	case statusOK:
		return nil
	case statusOutOfRange:
		return fmt.Errorf("%w: index %d, tensor count %d", native.ErrIndexOutOfRange, i, in.NumTensors())
	case statusUnallocated:
		return fmt.Errorf("%w: %s", native.ErrNotAllocated, msg)
	default:
		if msg == "" {
			msg = fmt.Sprintf("tflm: call failed with status %d", int(rc))
		}
		return errors.New(msg)
	}
}

func (in *Interpreter) alive() error {
	if in.c == nil {
		return errors.New("tflm: interpreter released")
	}
	return nil
}

func (in *Interpreter) AllocateTensors() error {
	if err := in.alive(); err != nil {
		return err
	}
	return in.status(C.tflm_allocate_tensors(in.c, &in.err[0], errBufLen), -1)
}

func (in *Interpreter) Invoke() error {
	if err := in.alive(); err != nil {
		return err
	}
	return in.status(C.tflm_invoke(in.c, &in.err[0], errBufLen), -1)
}

func (in *Interpreter) ResetVariableTensors() error {
	if err := in.alive(); err != nil {
		return err
	}
	return in.status(C.tflm_reset_variable_tensors(in.c, &in.err[0], errBufLen), -1)
}

func (in *Interpreter) InputIndices() ([]int, error) {
	if err := in.alive(); err != nil {
		return nil, err
	}
	n := int(C.tflm_inputs_size(in.c))
	indices := make([]int, n)
	for k := range n {
		indices[k] = int(C.tflm_input_index(in.c, C.size_t(k)))
	}
	return indices, nil
}

func (in *Interpreter) OutputIndices() ([]int, error) {
	if err := in.alive(); err != nil {
		return nil, err
	}
	n := int(C.tflm_outputs_size(in.c))
	indices := make([]int, n)
	for k := range n {
		indices[k] = int(C.tflm_output_index(in.c, C.size_t(k)))
	}
	return indices, nil
}

func (in *Interpreter) NumTensors() int {
	if in.c == nil {
		return 0
	}
	return int(C.tflm_num_tensors(in.c))
}

func (in *Interpreter) TensorName(i int) (string, error) {
	if err := in.alive(); err != nil {
		return "", err
	}
	var name *C.char
	if err := in.status(C.tflm_tensor_name(in.c, C.int(i), &name, &in.err[0], errBufLen), i); err != nil {
		return "", err
	}
	if name == nil {
		return "", nil
	}
	return C.GoString(name), nil
}

func (in *Interpreter) TensorType(i int) (native.TensorType, error) {
	if err := in.alive(); err != nil {
		return native.TypeNoType, err
	}
	var typ C.int
	if err := in.status(C.tflm_tensor_type(in.c, C.int(i), &typ, &in.err[0], errBufLen), i); err != nil {
		return native.TypeNoType, err
	}
	return native.TensorType(typ), nil
}

func (in *Interpreter) TensorShape(i int) ([]int, error) {
	if err := in.alive(); err != nil {
		return nil, err
	}
	var dims *C.int
	var ndims C.int
	if err := in.status(C.tflm_tensor_dims(in.c, C.int(i), &dims, &ndims, &in.err[0], errBufLen), i); err != nil {
		return nil, err
	}

	shape := make([]int, int(ndims))
	if ndims > 0 {
		for k, d := range unsafe.Slice(dims, int(ndims)) {
			shape[k] = int(d)
		}
	}
	return shape, nil
}

func (in *Interpreter) TensorQuantization(i int) (native.QuantizationParams, error) {
	if err := in.alive(); err != nil {
		return native.QuantizationParams{}, err
	}
	var scales *C.float
	var zeroPoints *C.int32_t
	var n, dim C.int
	rc := C.tflm_tensor_quantization(in.c, C.int(i), &scales, &zeroPoints, &n, &dim, &in.err[0], errBufLen)
	if err := in.status(rc, i); err != nil {
		return native.QuantizationParams{}, err
	}

	q := native.QuantizationParams{QuantizedDimension: int(dim)}
	if n > 0 && scales != nil {
		q.Scales = slices.Clone(unsafe.Slice((*float32)(unsafe.Pointer(scales)), int(n)))
	}
	if n > 0 && zeroPoints != nil {
		q.ZeroPoints = slices.Clone(unsafe.Slice((*int32)(unsafe.Pointer(zeroPoints)), int(n)))
	}
	return q, nil
}

func (in *Interpreter) SetTensor(i int, data []byte) error {
	buf, err := in.TensorBytes(i)
	if err != nil {
		return err
	}
	if len(buf) != len(data) {
		return fmt.Errorf("Tensor %d expects %d bytes, got %d", i, len(buf), len(data))
	}
	copy(buf, data)
	return nil
}

// TensorBytes liefert den Puffer in der Arena ohne Kopie
func (in *Interpreter) TensorBytes(i int) ([]byte, error) {
	if err := in.alive(); err != nil {
		return nil, err
	}
	var data unsafe.Pointer
	var n C.size_t
	if err := in.status(C.tflm_tensor_data(in.c, C.int(i), &data, &n, &in.err[0], errBufLen), i); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: tensor %d has no buffer", native.ErrNotAllocated, i)
	}
	return unsafe.Slice((*byte)(data), int(n)), nil
}

func (in *Interpreter) Handle() uintptr {
	return uintptr(unsafe.Pointer(in.c))
}

func (in *Interpreter) Close() error {
	if in.c == nil {
		return errors.New("tflm: interpreter released twice")
	}
	slog.Debug("tflm: releasing interpreter", "handle", in.Handle())
	C.tflm_interpreter_destroy(in.c)
	in.c = nil
	return nil
}
