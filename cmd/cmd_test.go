package cmd

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/stretchr/testify/require"

	"github.com/tflite-micro/tflm-go/imagetransform"
	"github.com/tflite-micro/tflm-go/interpreter"
	"github.com/tflite-micro/tflm-go/modelfile"
	"github.com/tflite-micro/tflm-go/native"
	"github.com/tflite-micro/tflm-go/native/nativetest"
	"github.com/tflite-micro/tflm-go/server"
	"github.com/tflite-micro/tflm-go/version"
)

// accumulator: output = state += input
func accumulator() *nativetest.Model {
	return &nativetest.Model{
		Tensors: []nativetest.TensorSpec{
			{Name: "input", Type: native.TypeFloat32, Shape: []int{1, 2}},
			{Name: "state", Type: native.TypeFloat32, Shape: []int{1, 2}, Variable: true},
			{Name: "output", Type: native.TypeFloat32, Shape: []int{1, 2}},
		},
		Inputs:  []int{0},
		Outputs: []int{2},
		Op:      nativetest.AccumulateOp(0, 1, 2),
	}
}

// writeModel schreibt ein minimales Flatbuffer-Modell und registriert das Test-Backend
func writeModel(t *testing.T) (path, backend string) {
	t.Helper()

	b := flatbuffers.NewBuilder(0)
	desc := b.CreateString("accumulator")
	b.StartObject(4)
	b.PrependUint32Slot(0, 3, 0)
	b.PrependUOffsetTSlot(3, desc, 0)
	b.FinishWithFileIdentifier(b.EndObject(), []byte(modelfile.Identifier))

	path = filepath.Join(t.TempDir(), "model.tflite")
	require.NoError(t, os.WriteFile(path, b.FinishedBytes(), 0o644))

	backend = "test/" + t.Name()
	t.Cleanup(accumulator().Register(backend))
	return path, backend
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cli := NewCLI()
	cli.SetOut(&out)
	cli.SetErr(&errOut)
	cli.SetArgs(args)
	err := cli.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	require.Contains(t, out, "tflm version is "+version.Version)
}

func TestShow(t *testing.T) {
	path, backend := writeModel(t)

	out, err := execute(t, "show", path)
	require.NoError(t, err)
	require.Contains(t, out, "TFL3")
	require.Contains(t, out, "accumulator")
	require.NotContains(t, out, "Tensors")

	out, err = execute(t, "show", path, "--tensors", "--backend", backend, "--arena-size", "4KiB")
	require.NoError(t, err)
	require.Contains(t, out, "Tensors")
	require.Contains(t, out, "state")
	require.Contains(t, out, "[1, 2]")
}

func TestShowJSON(t *testing.T) {
	path, backend := writeModel(t)

	out, err := execute(t, "show", path, "--json", "--tensors", "--backend", backend)
	require.NoError(t, err)

	var got showOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, uint32(3), got.Model.Version)
	require.Len(t, got.Tensors, 3)
	require.Equal(t, "output", got.Tensors[2].Name)
	require.Equal(t, native.TypeFloat32, got.Tensors[2].Type)
}

func TestShowErrors(t *testing.T) {
	path, _ := writeModel(t)

	_, err := execute(t, "show", filepath.Join(t.TempDir(), "missing.tflite"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "show", path, "--tensors", "--backend", "nope")
	var cerr *interpreter.ConstructionError
	require.ErrorAs(t, err, &cerr)

	_, err = execute(t, "show", path, "--tensors", "--arena-size", "lots")
	require.Error(t, err)

	_, err = execute(t, "show")
	require.Error(t, err, "MODEL fehlt")
}

func TestRun(t *testing.T) {
	path, backend := writeModel(t)

	out, err := execute(t, "run", path, "--backend", backend, "--values", "0=1,2", "--repeat", "3", "--json")
	require.NoError(t, err)

	var got []runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Equal(t, "output", got[0].Name)
	require.Equal(t, server.Numbers{3, 6}, got[0].Values)

	out, err = execute(t, "run", path, "--backend", backend, "--values", "0=0.5, 1", "--precision", "1")
	require.NoError(t, err)
	require.Equal(t, "output FLOAT32 [1, 2]\n[[ 0.5,  1.0]]\n", out)
}

func TestRunInputFile(t *testing.T) {
	path, backend := writeModel(t)

	input := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(input, interpreter.NewArray([]float32{4, -1}, 1, 2).Data, 0o644))

	out, err := execute(t, "run", path, "--backend", backend, "--input", "0="+input, "--json")
	require.NoError(t, err)

	var got []runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, server.Numbers{4, -1}, got[0].Values)
}

func TestRunNonFinite(t *testing.T) {
	path, backend := writeModel(t)

	out, err := execute(t, "run", path, "--backend", backend, "--values", "0=3e38,-3e38", "--repeat", "2", "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"Infinity"`)

	var got []runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.True(t, math.IsInf(got[0].Values[0], 1))
	require.True(t, math.IsInf(got[0].Values[1], -1))
}

func TestRunErrors(t *testing.T) {
	path, backend := writeModel(t)

	cases := []struct {
		name string
		args []string
		err  error
	}{
		{"input index", []string{"--values", "1=1,2"}, interpreter.ErrIndexOutOfRange},
		{"too few values", []string{"--values", "0=1"}, interpreter.ErrShapeMismatch},
		{"file size", []string{"--input", "0=" + path}, interpreter.ErrShapeMismatch},
		{"missing file", []string{"--input", "0=" + path + ".missing"}, os.ErrNotExist},
		{"no index", []string{"--values", "1,2"}, nil},
		{"bad number", []string{"--values", "0=1,x"}, nil},
		{"repeat", []string{"--repeat", "0"}, nil},
		{"float32 overflow", []string{"--values", "0=1e300,0"}, interpreter.ErrTypeMismatch},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", path, "--backend", backend}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestParseAssignment(t *testing.T) {
	cases := []struct {
		in    string
		index int
		rest  string
		ok    bool
	}{
		{"0=a.bin", 0, "a.bin", true},
		{" 2 =1,2", 2, "1,2", true},
		{"3=x=y", 3, "x=y", true},
		{"a.bin", 0, "", false},
		{"-1=a", 0, "", false},
		{"x=a", 0, "", false},
	}

	for _, tt := range cases {
		index, rest, err := parseAssignment(tt.in)
		if !tt.ok {
			if err == nil {
				t.Errorf("parseAssignment(%q) erwartet Fehler", tt.in)
			}
			continue
		}
		if err != nil || index != tt.index || rest != tt.rest {
			t.Errorf("parseAssignment(%q) = %d, %q, %v, erwartet %d, %q", tt.in, index, rest, err, tt.index, tt.rest)
		}
	}
}

func TestTruncateName(t *testing.T) {
	require.Equal(t, "-", truncateName(""))
	require.Equal(t, "input", truncateName("input"))

	long := strings.Repeat("x", 60)
	got := truncateName(long)
	require.Len(t, got, maxNameWidth)
	require.True(t, strings.HasSuffix(got, "..."))

	// Breite, nicht Bytes: 30 breite Zeichen sind 60 Spalten
	wide := strings.Repeat("漢", 30)
	require.Equal(t, strings.Repeat("漢", 18)+"...", truncateName(wide))
}

func TestTransformMatrix(t *testing.T) {
	out, err := execute(t, "transform", "matrix",
		"--src", "0,0,1,0,1,1,0,1",
		"--dst", "2,3,3,3,3,4,2,4")
	require.NoError(t, err)

	fields := strings.Split(strings.TrimSpace(out), ",")
	require.Len(t, fields, 9)

	want := imagetransform.Matrix{1, 0, 2, 0, 1, 3, 0, 0, 1}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		require.NoError(t, err)
		require.InDelta(t, want[i], v, 1e-4, "m%d", i)
	}

	_, err = execute(t, "transform", "matrix", "--src", "0,0,1,0,1,1")
	require.Error(t, err)

	_, err = execute(t, "transform", "matrix", "--src", "0,0,1,0,2,0,3,0", "--dst", "0,0,1,0,2,0,3,0")
	require.ErrorIs(t, err, imagetransform.ErrInvalidArgument)
}

func TestTransformWarp(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")

	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.SetGray(0, 0, color.Gray{Y: 0})
	src.SetGray(1, 0, color.Gray{Y: 255})
	src.SetGray(0, 1, color.Gray{Y: 255})
	src.SetGray(1, 1, color.Gray{Y: 0})

	f, err := os.Create(in)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	identity := "1,0,0,0,1,0,0,0,1"

	out := filepath.Join(dir, "out.png")
	_, err = execute(t, "transform", "warp", in, out, "--width", "2", "--height", "2", "--matrix", identity)
	require.NoError(t, err)

	img, err := imagetransform.Load(out)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 255, 255, 0}, img.Pix)

	raw := filepath.Join(dir, "out.bin")
	_, err = execute(t, "transform", "warp", in, raw, "--width", "2", "--height", "2", "--matrix", identity, "--standardize")
	require.NoError(t, err)

	data, err := os.ReadFile(raw)
	require.NoError(t, err)
	v, err := interpreter.FromBytes(native.TypeFloat32, []int{1, 2, 2, 1}, data)
	require.NoError(t, err)
	pix, err := interpreter.As[float32](v)
	require.NoError(t, err)
	require.Equal(t, []float32{-1, 1, 1, -1}, pix)

	_, err = execute(t, "transform", "warp", in, out, "--width", "2", "--height", "2", "--matrix", identity, "--standardize")
	require.Error(t, err, "standardisiert nur als .bin")

	_, err = execute(t, "transform", "warp", in, out, "--width", "2", "--height", "2", "--matrix", "1,0,0")
	require.Error(t, err)

	_, err = execute(t, "transform", "warp", in, out, "--width", "2", "--height", "2", "--matrix", "0,0,0,0,0,0,0,0,0")
	require.ErrorIs(t, err, imagetransform.ErrInvalidArgument)
}
