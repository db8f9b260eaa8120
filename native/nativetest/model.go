// Package nativetest stellt einen In-Memory-Interpreter bereit, der den
// Vertrag von native.Interpreter nachbildet, sowie eine Conformance-Suite,
// die gegen jedes Backend laufen kann.
//
// Der Interpreter fuehrt keinen Graphen aus. Invoke ruft lediglich die
// konfigurierte Op-Funktion auf den Tensor-Puffern auf.
package nativetest

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/tflite-micro/tflm-go/native"
)

// TensorSpec beschreibt einen Tensor des Test-Modells.
type TensorSpec struct {
	Name         string
	Type         native.TensorType
	Shape        []int
	Quantization native.QuantizationParams

	// Variable markiert Zustands-Tensoren, die ResetVariableTensors nullt
	Variable bool

	// Data wird bei AllocateTensors in den Puffer kopiert (Konstanten)
	Data []byte
}

// Bytes gibt die Puffergroesse des Tensors zurueck
func (s TensorSpec) Bytes() int {
	return native.NumElements(s.Shape) * s.Type.Size()
}

// Op wird von Invoke mit allen Tensor-Puffern (nach Index) aufgerufen.
type Op func(buffers [][]byte) error

// Model ist die Beschreibung eines Test-Modells.
type Model struct {
	Tensors []TensorSpec
	Inputs  []int
	Outputs []int
	Op      Op
}

// Factory gibt eine native.Factory fuer dieses Modell zurueck. Die
// Modelldatei muss existieren, ihr Inhalt wird nicht interpretiert.
func (m *Model) Factory() native.Factory {
	return func(path string, opts native.Options) (native.Interpreter, error) {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("Could not open model file %s: %w", path, err)
		}
		if opts.ArenaSize <= 0 {
			return nil, fmt.Errorf("Invalid tensor arena size %d", opts.ArenaSize)
		}
		return New(m, opts), nil
	}
}

// Register registriert das Modell als Backend unter name und gibt eine
// Funktion zum Entfernen zurueck.
func (m *Model) Register(name string) func() {
	native.RegisterBackend(name, m.Factory())
	return func() { native.UnregisterBackend(name) }
}

// CopyOp kopiert den Puffer von src nach dst
func CopyOp(src, dst int) Op {
	return func(buffers [][]byte) error {
		if len(buffers[src]) != len(buffers[dst]) {
			return fmt.Errorf("CopyOp: size mismatch %d != %d", len(buffers[src]), len(buffers[dst]))
		}
		copy(buffers[dst], buffers[src])
		return nil
	}
}

// AccumulateOp addiert den float32-Eingang auf den Zustand und schreibt den
// Zustand in den Ausgang.
func AccumulateOp(in, state, out int) Op {
	return func(buffers [][]byte) error {
		src, acc, dst := buffers[in], buffers[state], buffers[out]
		for off := 0; off+4 <= len(acc); off += 4 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(acc[off:])) +
				math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
			binary.LittleEndian.PutUint32(acc[off:], math.Float32bits(v))
		}
		copy(dst, acc)
		return nil
	}
}

// SingleOpModel erzeugt ein Modell mit einem Eingang, einem Ausgang und einer
// Kopier-Op zwischen beiden.
func SingleOpModel(typ native.TensorType, shape ...int) *Model {
	return &Model{
		Tensors: []TensorSpec{
			{Name: "input", Type: typ, Shape: shape},
			{Name: "output", Type: typ, Shape: shape},
		},
		Inputs:  []int{0},
		Outputs: []int{1},
		Op:      CopyOp(0, 1),
	}
}
