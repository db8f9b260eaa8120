package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tflite-micro/tflm-go/native"
	"github.com/tflite-micro/tflm-go/native/nativetest"
	"github.com/tflite-micro/tflm-go/version"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

type testServer struct {
	*Server
	handler http.Handler
	backend string
}

func setup(t *testing.T, limit int) *testServer {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.tflite"), make([]byte, 16), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := "test/" + t.Name()
	t.Cleanup(accumulator().Register(backend))

	s := New(dir, limit)
	t.Cleanup(s.Close)
	return &testServer{Server: s, handler: s.GenerateRoutes(), backend: backend}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	switch b := body.(type) {
	case nil:
		r = httptest.NewRequest(method, path, nil)
	case string:
		r = httptest.NewRequest(method, path, strings.NewReader(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
	}
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	require.Equal(t, code, decode[APIError](t, w).Code)
}

func (ts *testServer) create(t *testing.T) SessionResponse {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/interpreters", CreateRequest{Model: "model.tflite", Backend: ts.backend})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[SessionResponse](t, w)
}

func TestVersion(t *testing.T) {
	ts := setup(t, 0)

	w := ts.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "tflm is running", w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, version.Version, decode[map[string]string](t, w)["version"])
}

func TestInterpreterLifecycle(t *testing.T) {
	ts := setup(t, 0)

	sess := ts.create(t)
	require.NoError(t, uuid.Validate(sess.ID))
	require.Equal(t, "model.tflite", sess.Model)
	require.Equal(t, ts.backend, sess.Backend)
	require.Equal(t, 160, sess.ArenaSize, "Default: 10x Modellgroesse")
	require.Equal(t, []int{0}, sess.Inputs)
	require.Equal(t, []int{2}, sess.Outputs)
	require.Equal(t, 3, sess.NumTensors)
	require.False(t, sess.Allocated)

	base := "/api/interpreters/" + sess.ID

	w := ts.do(t, http.MethodGet, "/api/interpreters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[ListResponse](t, w).Interpreters, 1)

	w = ts.do(t, http.MethodPost, base+"/allocate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, decode[SessionResponse](t, w).Allocated)

	w = ts.do(t, http.MethodPut, base+"/tensors/0", SetTensorRequest{Values: []float64{1, 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, Numbers{1, 2}, decode[TensorResponse](t, w).Values)

	for range 2 {
		w = ts.do(t, http.MethodPost, base+"/invoke", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.Equal(t, 2, decode[SessionResponse](t, w).Invocations)

	w = ts.do(t, http.MethodGet, base+"/tensors/2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[TensorResponse](t, w)
	require.Equal(t, "output", out.Name)
	require.Equal(t, native.TypeFloat32, out.Type)
	require.Equal(t, []int{1, 2}, out.Shape)
	require.Equal(t, Numbers{2, 4}, out.Values)

	w = ts.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, base+"/invoke", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, base+"/tensors/2", nil)
	require.Equal(t, Numbers{1, 2}, decode[TensorResponse](t, w).Values)

	w = ts.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, ts.sessions.len())

	w = ts.do(t, http.MethodGet, base, nil)
	requireError(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestTensorsOrdered(t *testing.T) {
	ts := setup(t, 0)
	sess := ts.create(t)

	w := ts.do(t, http.MethodGet, "/api/interpreters/"+sess.ID+"/tensors", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	in, state, out := strings.Index(body, `"input"`), strings.Index(body, `"state"`), strings.Index(body, `"output"`)
	require.True(t, in >= 0 && in < state && state < out, "Tensoren in Index-Reihenfolge: %s", body)

	resp := decode[struct {
		Tensors map[string]struct {
			Index int    `json:"index"`
			Type  string `json:"dtype"`
		} `json:"tensors"`
	}](t, w)
	require.Equal(t, 1, resp.Tensors["state"].Index)
	require.Equal(t, "FLOAT32", resp.Tensors["state"].Type)
}

func TestCreateErrors(t *testing.T) {
	ts := setup(t, 0)

	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing body", "", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"bad json", "{", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"no model", CreateRequest{Backend: ts.backend}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"traversal", CreateRequest{Model: "../model.tflite", Backend: ts.backend}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"absolute", CreateRequest{Model: "/etc/passwd", Backend: ts.backend}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"missing model", CreateRequest{Model: "missing.tflite", Backend: ts.backend}, http.StatusNotFound, "MODEL_NOT_FOUND"},
		{"unknown backend", CreateRequest{Model: "model.tflite", Backend: "nope"}, http.StatusBadRequest, "INVALID_MODEL"},
		{"negative arena", CreateRequest{Model: "model.tflite", Backend: ts.backend, ArenaSize: -1}, http.StatusBadRequest, "INVALID_ARGUMENT"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			requireError(t, ts.do(t, http.MethodPost, "/api/interpreters", tt.body), tt.status, tt.code)
		})
	}

	require.Equal(t, 0, ts.sessions.len())
}

func TestArenaTooSmall(t *testing.T) {
	ts := setup(t, 0)

	w := ts.do(t, http.MethodPost, "/api/interpreters", CreateRequest{Model: "model.tflite", Backend: ts.backend, ArenaSize: 8})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sess := decode[SessionResponse](t, w)

	w = ts.do(t, http.MethodPost, "/api/interpreters/"+sess.ID+"/allocate", nil)
	requireError(t, w, http.StatusUnprocessableEntity, "OPERATION_FAILED")
	require.Contains(t, decode[APIError](t, w).Message, "Arena size is too small")
}

func TestInterpreterLimit(t *testing.T) {
	ts := setup(t, 2)

	first := ts.create(t)
	ts.create(t)

	w := ts.do(t, http.MethodPost, "/api/interpreters", CreateRequest{Model: "model.tflite", Backend: ts.backend})
	requireError(t, w, http.StatusTooManyRequests, "TOO_MANY_INTERPRETERS")

	// fehlgeschlagene Erstellung belegt keinen Platz
	w = ts.do(t, http.MethodDelete, "/api/interpreters/"+first.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/api/interpreters", CreateRequest{Model: "model.tflite", Backend: "nope"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	ts.create(t)

	w = ts.do(t, http.MethodPost, "/api/interpreters", CreateRequest{Model: "model.tflite", Backend: ts.backend})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestTensorErrors(t *testing.T) {
	ts := setup(t, 0)
	sess := ts.create(t)
	base := "/api/interpreters/" + sess.ID

	// vor AllocateTensors
	requireError(t, ts.do(t, http.MethodGet, base+"/tensors/0", nil), http.StatusUnprocessableEntity, "OPERATION_FAILED")

	w := ts.do(t, http.MethodPost, base+"/allocate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"out of range", http.MethodGet, base + "/tensors/99", nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"negative", http.MethodGet, base + "/tensors/-1", nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"not a number", http.MethodGet, base + "/tensors/abc", nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown session", http.MethodGet, "/api/interpreters/" + uuid.NewString(), nil, http.StatusNotFound, "NOT_FOUND"},
		{"malformed session", http.MethodPost, "/api/interpreters/xyz/invoke", nil, http.StatusNotFound, "NOT_FOUND"},
		{"wrong count", http.MethodPut, base + "/tensors/0", SetTensorRequest{Values: []float64{1, 2, 3}}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"wrong type", http.MethodPut, base + "/tensors/0", SetTensorRequest{Type: "INT8", Values: []float64{1, 2}}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown type", http.MethodPut, base + "/tensors/0", SetTensorRequest{Type: "FLOAT128", Values: []float64{1, 2}}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"wrong shape", http.MethodPut, base + "/tensors/0", SetTensorRequest{Shape: []int{2, 1}, Values: []float64{1, 2}}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"strings into float", http.MethodPut, base + "/tensors/0", SetTensorRequest{Strings: []string{"a", "b"}}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"set out of range", http.MethodPut, base + "/tensors/7", SetTensorRequest{Values: []float64{1}}, http.StatusBadRequest, "INVALID_ARGUMENT"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			requireError(t, ts.do(t, tt.method, tt.path, tt.body), tt.status, tt.code)
		})
	}
}

func TestNonFiniteTensorValues(t *testing.T) {
	ts := setup(t, 0)
	sess := ts.create(t)
	base := "/api/interpreters/" + sess.ID

	w := ts.do(t, http.MethodPost, base+"/allocate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 3e38 + 3e38 laeuft in float32 nach +Inf
	w = ts.do(t, http.MethodPut, base+"/tensors/0", SetTensorRequest{Values: []float64{3e38, -3e38}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for range 2 {
		w = ts.do(t, http.MethodPost, base+"/invoke", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, base+"/tensors/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Body.String())
	require.Contains(t, w.Body.String(), `"values":["Infinity","-Infinity"]`)
	out := decode[TensorResponse](t, w)
	require.True(t, math.IsInf(out.Values[0], 1))
	require.True(t, math.IsInf(out.Values[1], -1))

	// Strings werden auch beim Schreiben akzeptiert
	w = ts.do(t, http.MethodPut, base+"/tensors/0", `{"values":["NaN",1.5]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	in := decode[TensorResponse](t, w)
	require.True(t, math.IsNaN(in.Values[0]))
	require.Equal(t, 1.5, in.Values[1])

	// nicht darstellbar statt still +Inf
	requireError(t, ts.do(t, http.MethodPut, base+"/tensors/0", `{"values":[1e300,0]}`), http.StatusBadRequest, "INVALID_ARGUMENT")
	requireError(t, ts.do(t, http.MethodPut, base+"/tensors/0", `{"values":["lots",0]}`), http.StatusBadRequest, "INVALID_ARGUMENT")
}

func TestWriteJSONEncodeError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeJSON(c, map[string]float64{"x": math.Inf(1)})
	requireError(t, w, http.StatusUnprocessableEntity, "OPERATION_FAILED")
}

func TestBackends(t *testing.T) {
	ts := setup(t, 0)

	w := ts.do(t, http.MethodGet, "/api/backends", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, decode[map[string][]string](t, w)["backends"], ts.backend)
}

func TestAllowedHosts(t *testing.T) {
	ts := setup(t, 0)
	ts.addr = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8089}
	h := ts.GenerateRoutes()

	cases := []struct {
		host   string
		status int
	}{
		{"localhost:8089", http.StatusOK},
		{"127.0.0.1:8089", http.StatusOK},
		{"10.0.0.2", http.StatusOK},
		{"box.local", http.StatusOK},
		{"example.com", http.StatusForbidden},
	}

	for _, tt := range cases {
		t.Run(tt.host, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/version", nil)
			r.Host = tt.host
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			require.Equal(t, tt.status, w.Code)
		})
	}
}
