// MODUL: handlers_transform
// ZWECK: HTTP-Handler fuer Perspektiv-Matrix und Perspektiv-Warp
// INPUT: JSON mit Punktlisten bzw. Base64-Bildern, Zielgroesse und Matrix
// OUTPUT: MatrixResponse, WarpResponse, WarpBatchResponse
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: gin-gonic/gin, imagetransform, envconfig (TFLM_MAX_PIXELS)
// HINWEISE: Transformationen sind zustandslos und laufen ohne Session

package server

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tflite-micro/tflm-go/envconfig"
	"github.com/tflite-micro/tflm-go/imagetransform"
)

// checkPixels lehnt Groessen ueber TFLM_MAX_PIXELS ab
func checkPixels(what string, width, height int) error {
	limit := envconfig.MaxPixels()
	if limit == 0 || width <= 0 || height <= 0 {
		return nil
	}
	if uint64(width) > limit/uint64(height) {
		return fmt.Errorf("%w: %s %dx%d exceeds the limit of %d pixels", ErrInvalidRequest, what, width, height, limit)
	}
	return nil
}

// decodeBase64Image dekodiert Standard- oder URL-safe Base64, auch als data-URL
func decodeBase64Image(b64 string) ([]byte, error) {
	if i := strings.Index(b64, ";base64,"); strings.HasPrefix(b64, "data:") && i >= 0 {
		b64 = b64[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err == nil {
		return data, nil
	}

	data, err = base64.URLEncoding.DecodeString(b64)
	if err != nil {
		return nil, ErrInvalidBase64
	}
	return data, nil
}

func decodeImage(b64 string) (imagetransform.Image, error) {
	if b64 == "" {
		return imagetransform.Image{}, fmt.Errorf("%w: image is required", ErrInvalidRequest)
	}
	data, err := decodeBase64Image(b64)
	if err != nil {
		return imagetransform.Image{}, err
	}

	// Groesse aus dem Header, bevor Pixel dekodiert werden
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if err := checkPixels("image", cfg.Width, cfg.Height); err != nil {
			return imagetransform.Image{}, err
		}
	}
	return imagetransform.DecodeBytes(data)
}

func warpResponse(img imagetransform.Image) WarpResponse {
	return WarpResponse{
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Pixels:   img.Pix,
	}
}

// MatrixHandler verarbeitet POST /api/transform/matrix
func (s *Server) MatrixHandler(c *gin.Context) {
	var req MatrixRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	m, err := imagetransform.GetPerspectiveTransformMatrix(req.Src, req.Dst)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, MatrixResponse{Matrix: m})
}

// WarpHandler verarbeitet POST /api/transform/warp
func (s *Server) WarpHandler(c *gin.Context) {
	var req WarpRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if req.Matrix == nil {
		writeError(c, fmt.Errorf("%w: matrix is required", ErrInvalidRequest))
		return
	}
	if err := checkPixels("output", req.Width, req.Height); err != nil {
		writeError(c, err)
		return
	}

	img, err := decodeImage(req.Image)
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := imagetransform.ApplyPerspectiveTransform(img, req.Width, req.Height, *req.Matrix, req.Standardize)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, warpResponse(out))
}

// WarpBatchHandler verarbeitet POST /api/transform/warp/batch
func (s *Server) WarpBatchHandler(c *gin.Context) {
	var req WarpBatchRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if req.Matrix == nil {
		writeError(c, fmt.Errorf("%w: matrix is required", ErrInvalidRequest))
		return
	}
	if len(req.Images) == 0 {
		writeError(c, fmt.Errorf("%w: images are required", ErrInvalidRequest))
		return
	}
	if err := checkPixels("output", req.Width, req.Height); err != nil {
		writeError(c, err)
		return
	}

	imgs := make([]imagetransform.Image, len(req.Images))
	for i, b64 := range req.Images {
		img, err := decodeImage(b64)
		if err != nil {
			writeError(c, fmt.Errorf("image %d: %w", i, err))
			return
		}
		imgs[i] = img
	}

	out, err := imagetransform.ApplyBatch(c.Request.Context(), imgs, req.Width, req.Height, *req.Matrix, req.Standardize)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := WarpBatchResponse{Images: make([]WarpResponse, len(out))}
	for i, img := range out {
		resp.Images[i] = warpResponse(img)
	}
	writeJSON(c, resp)
}
