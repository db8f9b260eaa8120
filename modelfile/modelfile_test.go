package modelfile

import (
	"os"
	"path/filepath"
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type testModel struct {
	version       uint32
	description   string
	operatorCodes int
	buffers       int
	subgraphs     []Subgraph
	metadata      []string
}

// tables legt n leere Tabellen an und gibt den Vektor darauf zurueck
func tables(b *flatbuffers.Builder, n int) flatbuffers.UOffsetT {
	offs := make([]flatbuffers.UOffsetT, n)
	for i := range offs {
		b.StartObject(0)
		offs[i] = b.EndObject()
	}
	return offsets(b, offs)
}

func offsets(b *flatbuffers.Builder, offs []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	b.StartVector(4, len(offs), 4)
	for i := len(offs) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offs[i])
	}
	return b.EndVector(len(offs))
}

func ints(b *flatbuffers.Builder, n int) flatbuffers.UOffsetT {
	b.StartVector(4, n, 4)
	for i := n - 1; i >= 0; i-- {
		b.PrependInt32(int32(i))
	}
	return b.EndVector(n)
}

func (m testModel) build() []byte {
	b := flatbuffers.NewBuilder(0)

	var subgraphs []flatbuffers.UOffsetT
	for _, sg := range m.subgraphs {
		name := b.CreateString(sg.Name)
		tensors := tables(b, sg.Tensors)
		inputs := ints(b, sg.Inputs)
		outputs := ints(b, sg.Outputs)
		operators := tables(b, sg.Operators)

		b.StartObject(5)
		b.PrependUOffsetTSlot(0, tensors, 0)
		b.PrependUOffsetTSlot(1, inputs, 0)
		b.PrependUOffsetTSlot(2, outputs, 0)
		b.PrependUOffsetTSlot(3, operators, 0)
		if sg.Name != "" {
			b.PrependUOffsetTSlot(4, name, 0)
		}
		subgraphs = append(subgraphs, b.EndObject())
	}

	var metadata []flatbuffers.UOffsetT
	for _, name := range m.metadata {
		s := b.CreateString(name)
		b.StartObject(2)
		b.PrependUOffsetTSlot(0, s, 0)
		b.PrependUint32Slot(1, 1, 0)
		metadata = append(metadata, b.EndObject())
	}

	opcodes := tables(b, m.operatorCodes)
	sgs := offsets(b, subgraphs)
	buffers := tables(b, m.buffers)
	meta := offsets(b, metadata)
	desc := b.CreateString(m.description)

	b.StartObject(8)
	b.PrependUint32Slot(0, m.version, 0)
	b.PrependUOffsetTSlot(1, opcodes, 0)
	b.PrependUOffsetTSlot(2, sgs, 0)
	b.PrependUOffsetTSlot(3, desc, 0)
	b.PrependUOffsetTSlot(4, buffers, 0)
	b.PrependUOffsetTSlot(6, meta, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, []byte(Identifier))
	return b.FinishedBytes()
}

func TestParse(t *testing.T) {
	m := testModel{
		version:       3,
		description:   "hello_world",
		operatorCodes: 2,
		buffers:       5,
		subgraphs: []Subgraph{
			{Name: "main", Tensors: 4, Inputs: 1, Outputs: 1, Operators: 3},
			{Tensors: 2, Inputs: 1, Outputs: 1, Operators: 1},
		},
		metadata: []string{"min_runtime_version", "CONVERSION_METADATA"},
	}

	data := m.build()
	info, err := Parse(data)
	require.NoError(t, err)

	want := &Info{
		Size:          int64(len(data)),
		Identifier:    "TFL3",
		Version:       3,
		Description:   "hello_world",
		OperatorCodes: 2,
		Buffers:       5,
		Subgraphs:     m.subgraphs,
		Metadata:      m.metadata,
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Parse (-want +got):\n%s", diff)
	}

	sg, ok := info.Subgraph0()
	require.True(t, ok)
	require.Equal(t, "main", sg.Name)
}

func TestParseEmptyModel(t *testing.T) {
	info, err := Parse(testModel{}.build())
	require.NoError(t, err)
	require.Equal(t, uint32(0), info.Version)
	require.Empty(t, info.Subgraphs)

	_, ok := info.Subgraph0()
	require.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(nil)
	require.ErrorIs(t, err, ErrNotTFLite)

	_, err = Parse([]byte("\x00\x00\x00\x00GGUF"))
	require.ErrorIs(t, err, ErrNotTFLite)

	// Wurzel zeigt hinter das Pufferende
	_, err = Parse([]byte("\xff\x00\x00\x00TFL3"))
	require.ErrorIs(t, err, ErrCorrupt)

	// abgeschnittener Puffer
	data := testModel{version: 3, description: "truncated", buffers: 2}.build()
	_, err = Parse(data[:12])
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.tflite")
	require.NoError(t, os.WriteFile(path, testModel{version: 3}.build(), 0o644))

	info, err := Inspect(path)
	require.NoError(t, err)
	require.Equal(t, path, info.Path)
	require.Equal(t, uint32(3), info.Version)

	_, err = Inspect(filepath.Join(t.TempDir(), "missing.tflite"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.tflite")
	require.NoError(t, os.WriteFile(bad, []byte("not a model"), 0o644))
	_, err = Inspect(bad)
	require.ErrorIs(t, err, ErrNotTFLite)
}
