package server

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/stretchr/testify/require"

	"github.com/tflite-micro/tflm-go/imagetransform"
	"github.com/tflite-micro/tflm-go/modelfile"
)

func pngBase64(t *testing.T) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 10})
	img.SetGray(1, 0, color.Gray{Y: 20})
	img.SetGray(0, 1, color.Gray{Y: 30})
	img.SetGray(1, 1, color.Gray{Y: 40})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestMatrixHandler(t *testing.T) {
	ts := setup(t, 0)

	pts := []float32{0, 0, 10, 0, 10, 10, 0, 10}
	w := ts.do(t, http.MethodPost, "/api/transform/matrix", MatrixRequest{Src: pts, Dst: pts})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	m := decode[MatrixResponse](t, w).Matrix
	for i, v := range imagetransform.Identity() {
		require.InDelta(t, v, m[i], 1e-5)
	}

	w = ts.do(t, http.MethodPost, "/api/transform/matrix", MatrixRequest{Src: pts[:6], Dst: pts[:6]})
	requireError(t, w, http.StatusBadRequest, "INVALID_ARGUMENT")
}

func TestWarpHandler(t *testing.T) {
	ts := setup(t, 0)
	identity := imagetransform.Identity()

	w := ts.do(t, http.MethodPost, "/api/transform/warp", WarpRequest{Image: pngBase64(t), Width: 2, Height: 2, Matrix: &identity})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[WarpResponse](t, w)
	require.Equal(t, WarpResponse{Width: 2, Height: 2, Channels: 1, Pixels: []float32{10, 20, 30, 40}}, got)

	w = ts.do(t, http.MethodPost, "/api/transform/warp", WarpRequest{Image: "data:image/png;base64," + pngBase64(t), Width: 1, Height: 1, Matrix: &identity, Standardize: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.InDelta(t, 10/127.5-1, decode[WarpResponse](t, w).Pixels[0], 1e-6)

	singular := imagetransform.Matrix{}
	cases := []struct {
		name string
		req  WarpRequest
		code string
	}{
		{"no matrix", WarpRequest{Image: pngBase64(t), Width: 2, Height: 2}, "INVALID_ARGUMENT"},
		{"no image", WarpRequest{Width: 2, Height: 2, Matrix: &identity}, "INVALID_ARGUMENT"},
		{"bad base64", WarpRequest{Image: "!!!", Width: 2, Height: 2, Matrix: &identity}, "INVALID_BASE64"},
		{"not an image", WarpRequest{Image: base64.StdEncoding.EncodeToString([]byte("hello world")), Width: 2, Height: 2, Matrix: &identity}, "UNSUPPORTED_FORMAT"},
		{"zero size", WarpRequest{Image: pngBase64(t), Width: 0, Height: 2, Matrix: &identity}, "INVALID_ARGUMENT"},
		{"singular", WarpRequest{Image: pngBase64(t), Width: 2, Height: 2, Matrix: &singular}, "INVALID_ARGUMENT"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			requireError(t, ts.do(t, http.MethodPost, "/api/transform/warp", tt.req), http.StatusBadRequest, tt.code)
		})
	}
}

func TestWarpBatchHandler(t *testing.T) {
	ts := setup(t, 0)
	shift := imagetransform.Matrix{1, 0, 1, 0, 1, 0, 0, 0, 1}

	img := pngBase64(t)
	w := ts.do(t, http.MethodPost, "/api/transform/warp/batch", WarpBatchRequest{Images: []string{img, img}, Width: 2, Height: 2, Matrix: &shift})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[WarpBatchResponse](t, w)
	require.Len(t, got.Images, 2)
	for _, r := range got.Images {
		require.Equal(t, []float32{0, 10, 0, 30}, r.Pixels)
	}

	w = ts.do(t, http.MethodPost, "/api/transform/warp/batch", WarpBatchRequest{Width: 2, Height: 2, Matrix: &shift})
	requireError(t, w, http.StatusBadRequest, "INVALID_ARGUMENT")

	w = ts.do(t, http.MethodPost, "/api/transform/warp/batch", WarpBatchRequest{Images: []string{img, "###"}, Width: 2, Height: 2, Matrix: &shift})
	requireError(t, w, http.StatusBadRequest, "INVALID_BASE64")
}

func TestWarpLimits(t *testing.T) {
	ts := setup(t, 0)
	identity := imagetransform.Identity()
	img := pngBase64(t)

	w := ts.do(t, http.MethodPost, "/api/transform/warp", WarpRequest{Image: img, Width: 1_000_000, Height: 1_000_000, Matrix: &identity})
	requireError(t, w, http.StatusBadRequest, "INVALID_ARGUMENT")

	w = ts.do(t, http.MethodPost, "/api/transform/warp/batch", WarpBatchRequest{Images: []string{img}, Width: 1 << 40, Height: 1 << 40, Matrix: &identity})
	requireError(t, w, http.StatusBadRequest, "INVALID_ARGUMENT")

	// Inverse nicht als float32 darstellbar
	tiny := imagetransform.Matrix{1e-39, 0, 0, 0, 1e-39, 0, 0, 0, 1e-39}
	w = ts.do(t, http.MethodPost, "/api/transform/warp", WarpRequest{Image: img, Width: 2, Height: 2, Matrix: &tiny})
	requireError(t, w, http.StatusBadRequest, "INVALID_ARGUMENT")

	// Quellbild 2x2 ueber dem Limit, Ziel 1x1 darunter
	t.Setenv("TFLM_MAX_PIXELS", "3")
	w = ts.do(t, http.MethodPost, "/api/transform/warp", WarpRequest{Image: img, Width: 1, Height: 1, Matrix: &identity})
	requireError(t, w, http.StatusBadRequest, "INVALID_ARGUMENT")
	require.Contains(t, decode[APIError](t, w).Message, "image 2x2")

	t.Setenv("TFLM_MAX_PIXELS", "0")
	w = ts.do(t, http.MethodPost, "/api/transform/warp", WarpRequest{Image: img, Width: 1, Height: 1, Matrix: &identity})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func tfliteModel(t *testing.T, version uint32, description string) []byte {
	t.Helper()

	b := flatbuffers.NewBuilder(0)
	desc := b.CreateString(description)
	b.StartObject(4)
	b.PrependUint32Slot(0, version, 0)
	b.PrependUOffsetTSlot(3, desc, 0)
	b.FinishWithFileIdentifier(b.EndObject(), []byte(modelfile.Identifier))
	return b.FinishedBytes()
}

func TestModelsHandler(t *testing.T) {
	ts := setup(t, 0)

	require.NoError(t, os.WriteFile(filepath.Join(ts.modelDir, "real.tflite"), tfliteModel(t, 3, "converted"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ts.modelDir, "notes.txt"), []byte("ignored"), 0o644))

	w := ts.do(t, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// model.tflite aus setup ist kein Flatbuffer und wird uebersprungen
	models := decode[ModelsResponse](t, w).Models
	require.Len(t, models, 1)
	require.Equal(t, "real.tflite", models[0].Path)
	require.Equal(t, uint32(3), models[0].Version)
	require.Equal(t, "converted", models[0].Description)

	w = ts.do(t, http.MethodGet, "/api/models/real.tflite", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "TFL3", decode[modelfile.Info](t, w).Identifier)

	requireError(t, ts.do(t, http.MethodGet, "/api/models/model.tflite", nil), http.StatusBadRequest, "INVALID_MODEL")
	requireError(t, ts.do(t, http.MethodGet, "/api/models/missing.tflite", nil), http.StatusNotFound, "MODEL_NOT_FOUND")
}
