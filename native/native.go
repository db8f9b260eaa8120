// Package native beschreibt die Schnittstelle, die ein nativer Interpreter
// (TFLite Micro oder ein Test-Double) der Binding-Schicht zur Verfuegung stellt.
//
// Jeder fehlbare Aufruf liefert entweder einen Wert oder einen error mit dem
// Diagnosetext der nativen Bibliothek. Die Umwandlung in Host-Fehler passiert
// ausschliesslich im Paket interpreter.
package native

import (
	"errors"
)

var (
	// ErrIndexOutOfRange wird von Backends gewrappt wenn ein Tensor-Index ausserhalb der Tabelle liegt
	ErrIndexOutOfRange = errors.New("tensor index out of range")

	// ErrNotAllocated wird gewrappt wenn auf Tensor-Speicher vor AllocateTensors zugegriffen wird
	ErrNotAllocated = errors.New("tensors not allocated")

	// ErrUnknownBackend wird zurueckgegeben wenn kein Backend unter dem Namen registriert ist
	ErrUnknownBackend = errors.New("unknown backend")
)

// Options steuert wie ein Backend den Interpreter erzeugt.
type Options struct {
	// ArenaSize ist die feste Groesse der Tensor-Arena in Bytes
	ArenaSize int

	// PreserveAllTensors haelt Zwischen-Tensoren nach Invoke lesbar (nur fuer Debugging)
	PreserveAllTensors bool
}

// Interpreter ist eine native Interpreter-Instanz.
//
// Implementierungen sind nicht thread-sicher. Der Aufrufer serialisiert alle
// Aufrufe auf derselben Instanz.
type Interpreter interface {
	AllocateTensors() error
	Invoke() error
	ResetVariableTensors() error

	InputIndices() ([]int, error)
	OutputIndices() ([]int, error)

	// NumTensors liefert die Groesse der Tensor-Tabelle und schlaegt nie fehl
	NumTensors() int

	TensorName(i int) (string, error)
	TensorType(i int) (TensorType, error)
	TensorShape(i int) ([]int, error)
	TensorQuantization(i int) (QuantizationParams, error)

	// SetTensor kopiert data in den Tensor-Puffer. Die Laenge muss exakt passen.
	SetTensor(i int, data []byte) error

	// TensorBytes liefert den Tensor-Puffer ohne Kopie. Der Slice zeigt in die
	// Arena und ist nur bis zum naechsten AllocateTensors oder Close gueltig.
	TensorBytes(i int) ([]byte, error)

	// Handle liefert die rohe Adresse der nativen Instanz (0 wenn keine existiert)
	Handle() uintptr

	// Close gibt die native Instanz frei
	Close() error
}

// Factory erzeugt einen Interpreter aus einer Modelldatei. Ein Fehler traegt
// den Diagnosetext der nativen Bibliothek.
type Factory func(path string, opts Options) (Interpreter, error)
