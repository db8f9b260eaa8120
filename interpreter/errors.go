// errors.go - Fehlertypen und die zentrale Umwandlung nativer Ergebnisse
//
// Es gibt genau zwei Fehlerarten:
// - ConstructionError: die native Factory konnte keinen Interpreter bauen
// - OperationError: ein Aufruf auf einem bestehenden Interpreter schlug fehl
package interpreter

import (
	"errors"
	"fmt"

	"github.com/tflite-micro/tflm-go/native"
)

var (
	// ErrInvalidArgument kennzeichnet ungueltige Eingaben (auch jeden ConstructionError)
	ErrInvalidArgument = errors.New("interpreter: invalid argument")

	// ErrClosed wird nach Close fuer jede Operation zurueckgegeben
	ErrClosed = errors.New("interpreter: closed")

	// ErrStaleView wird zurueckgegeben wenn eine TensorView nach AllocateTensors oder Close benutzt wird
	ErrStaleView = errors.New("interpreter: tensor view is stale")

	ErrTypeMismatch  = errors.New("interpreter: type mismatch")
	ErrShapeMismatch = errors.New("interpreter: shape mismatch")

	// ErrIndexOutOfRange und ErrNotAllocated sind die Sentinels der nativen Schicht
	ErrIndexOutOfRange = native.ErrIndexOutOfRange
	ErrNotAllocated    = native.ErrNotAllocated
)

// ConstructionError wird von CreateFromFile zurueckgegeben wenn kein
// Interpreter entstanden ist. Msg ist der Diagnosetext der nativen Bibliothek.
type ConstructionError struct {
	Path    string
	Backend string
	Msg     string
	Err     error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("interpreter: cannot create %s interpreter from %s: %s", e.Backend, e.Path, e.Msg)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Is meldet einen ConstructionError immer auch als ErrInvalidArgument
func (e *ConstructionError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// OperationError wraps jeden Fehler eines Aufrufs nach der Konstruktion.
type OperationError struct {
	Op string

	// Index ist der Tensor-Index oder -1 fuer Aufrufe ohne Index
	Index int

	Err error
}

func (e *OperationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("interpreter: %s(%d): %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("interpreter: %s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// result traegt entweder einen Wert oder den nativen Fehler. get ist die
// einzige Stelle, an der daraus ein OperationError wird.
type result[T any] struct {
	value T
	err   error
}

func (r result[T]) get(op string, index int) (T, error) {
	if r.err != nil {
		var zero T
		return zero, &OperationError{Op: op, Index: index, Err: r.err}
	}
	return r.value, nil
}

func fail[T any](err error) result[T] {
	return result[T]{err: err}
}
