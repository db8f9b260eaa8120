// Package modelfile - Kopfdaten von TFLite-Flatbuffer-Modellen
//
// Dieses Modul liest nur die Wurzeltabelle und die Subgraph-Tabellen:
// - Info: Identifier, Schema-Version, Beschreibung, Zaehler
// - Subgraph: Name und Anzahl Tensoren, Ein- und Ausgaben, Operatoren
// - Inspect/Parse: Laedt die Kopfdaten aus Datei oder Bytes
//
// Der Graph selbst wird nicht interpretiert.
package modelfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	flatbuffers "github.com/google/flatbuffers/go"
)

// Identifier steht an Byte 4..8 jeder TFLite-Datei
const Identifier = "TFL3"

var (
	ErrNotTFLite = errors.New("modelfile: not a tflite flatbuffer")
	ErrCorrupt   = errors.New("modelfile: corrupt flatbuffer")
)

// vtable-Slots der Model-Tabelle
const (
	modelVersion       flatbuffers.VOffsetT = 4
	modelOperatorCodes flatbuffers.VOffsetT = 6
	modelSubgraphs     flatbuffers.VOffsetT = 8
	modelDescription   flatbuffers.VOffsetT = 10
	modelBuffers       flatbuffers.VOffsetT = 12
	modelMetadata      flatbuffers.VOffsetT = 16
)

// vtable-Slots der SubGraph-Tabelle
const (
	subgraphTensors   flatbuffers.VOffsetT = 4
	subgraphInputs    flatbuffers.VOffsetT = 6
	subgraphOutputs   flatbuffers.VOffsetT = 8
	subgraphOperators flatbuffers.VOffsetT = 10
	subgraphName      flatbuffers.VOffsetT = 12
)

// Metadata-Tabelle: name ist Slot 0
const metadataName flatbuffers.VOffsetT = 4

// Info enthaelt die Kopfdaten eines Modells
type Info struct {
	Path          string     `json:"path,omitempty"`
	Size          int64      `json:"size"`
	Identifier    string     `json:"identifier"`
	Version       uint32     `json:"version"`
	Description   string     `json:"description,omitempty"`
	OperatorCodes int        `json:"operator_codes"`
	Buffers       int        `json:"buffers"`
	Subgraphs     []Subgraph `json:"subgraphs"`
	Metadata      []string   `json:"metadata,omitempty"`
}

// Subgraph beschreibt einen Subgraphen ohne dessen Operatoren aufzuloesen
type Subgraph struct {
	Name      string `json:"name,omitempty"`
	Tensors   int    `json:"tensors"`
	Inputs    int    `json:"inputs"`
	Outputs   int    `json:"outputs"`
	Operators int    `json:"operators"`
}

// Inspect liest die Kopfdaten der Modelldatei unter path
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	info, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	info.Path = path
	return info, nil
}

// HasIdentifier prueft nur den Datei-Identifier
func HasIdentifier(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[4:8], []byte(Identifier))
}

// Parse liest die Kopfdaten aus einem Flatbuffer im Speicher
func Parse(data []byte) (info *Info, err error) {
	if !HasIdentifier(data) {
		return nil, ErrNotTFLite
	}

	// flatbuffers prueft keine Grenzen und panict bei kaputten Offsets
	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	root := flatbuffers.GetUOffsetT(data)
	if int(root) >= len(data) {
		return nil, fmt.Errorf("%w: root offset %d beyond %d bytes", ErrCorrupt, root, len(data))
	}

	t := &flatbuffers.Table{Bytes: data, Pos: root}

	info = &Info{
		Size:          int64(len(data)),
		Identifier:    Identifier,
		Version:       t.GetUint32Slot(modelVersion, 0),
		Description:   stringField(t, modelDescription),
		OperatorCodes: vectorLen(t, modelOperatorCodes),
		Buffers:       vectorLen(t, modelBuffers),
	}

	for i := range vectorLen(t, modelSubgraphs) {
		sg := table(t, modelSubgraphs, i)
		info.Subgraphs = append(info.Subgraphs, Subgraph{
			Name:      stringField(sg, subgraphName),
			Tensors:   vectorLen(sg, subgraphTensors),
			Inputs:    vectorLen(sg, subgraphInputs),
			Outputs:   vectorLen(sg, subgraphOutputs),
			Operators: vectorLen(sg, subgraphOperators),
		})
	}

	for i := range vectorLen(t, modelMetadata) {
		info.Metadata = append(info.Metadata, stringField(table(t, modelMetadata, i), metadataName))
	}

	return info, nil
}

func vectorLen(t *flatbuffers.Table, slot flatbuffers.VOffsetT) int {
	o := flatbuffers.UOffsetT(t.Offset(slot))
	if o == 0 {
		return 0
	}
	return t.VectorLen(o)
}

func stringField(t *flatbuffers.Table, slot flatbuffers.VOffsetT) string {
	o := flatbuffers.UOffsetT(t.Offset(slot))
	if o == 0 {
		return ""
	}
	return t.String(t.Pos + o)
}

// table gibt Element i eines Vektors von Tabellen zurueck
func table(t *flatbuffers.Table, slot flatbuffers.VOffsetT, i int) *flatbuffers.Table {
	o := flatbuffers.UOffsetT(t.Offset(slot))
	x := t.Vector(o) + flatbuffers.UOffsetT(i)*4
	return &flatbuffers.Table{Bytes: t.Bytes, Pos: t.Indirect(x)}
}

// Subgraph0 gibt den Hauptgraphen zurueck
func (i *Info) Subgraph0() (Subgraph, bool) {
	if len(i.Subgraphs) == 0 {
		return Subgraph{}, false
	}
	return i.Subgraphs[0], true
}
