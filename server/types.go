// MODUL: types
// ZWECK: Request- und Response-Typen der HTTP-API
// INPUT: Keine (Type-Definitionen)
// OUTPUT: Strukturierte Request/Response Types
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: interpreter, modelfile, go-ordered-map
// HINWEISE: Verwendet fuer /api/interpreters/*, /api/models/* und /api/transform/*

package server

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tflite-micro/tflm-go/imagetransform"
	"github.com/tflite-micro/tflm-go/interpreter"
	"github.com/tflite-micro/tflm-go/modelfile"
)

// ============================================================================
// Interpreter Sessions
// ============================================================================

// CreateRequest - Anfrage fuer einen neuen Interpreter.
// Endpoint: POST /api/interpreters
type CreateRequest struct {
	// Model ist der Dateiname relativ zu TFLM_MODELS
	Model string `json:"model"`

	// ArenaSize in Bytes, 0 = Default
	ArenaSize int `json:"arena_size,omitempty"`

	// Backend ist das native Backend, leer = TFLM_BACKEND
	Backend string `json:"backend,omitempty"`

	PreserveAllTensors bool `json:"preserve_all_tensors,omitempty"`
}

// SessionResponse beschreibt eine Interpreter-Session.
type SessionResponse struct {
	ID          string    `json:"id"`
	Model       string    `json:"model"`
	Backend     string    `json:"backend"`
	ArenaSize   int       `json:"arena_size"`
	Inputs      []int     `json:"inputs"`
	Outputs     []int     `json:"outputs"`
	NumTensors  int       `json:"num_tensors"`
	Allocated   bool      `json:"allocated"`
	Invocations int       `json:"invocations"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListResponse - Antwort fuer GET /api/interpreters
type ListResponse struct {
	Interpreters []SessionResponse `json:"interpreters"`
}

// TensorsResponse - alle Tensor-Details, nach Index sortiert und nach Name adressierbar.
type TensorsResponse struct {
	Tensors *orderedmap.OrderedMap[string, interpreter.TensorDetails] `json:"tensors"`
}

// TensorResponse - Details und Inhalt eines Tensors.
type TensorResponse struct {
	interpreter.TensorDetails

	Values  Numbers  `json:"values,omitempty"`
	Strings []string `json:"strings,omitempty"`
}

// SetTensorRequest - neuer Inhalt fuer einen Tensor.
// Endpoint: PUT /api/interpreters/:id/tensors/:index
type SetTensorRequest struct {
	// Type ist optional, Default ist der Typ des Tensors
	Type string `json:"type,omitempty"`

	// Shape ist optional, Default ist die Form des Tensors. [] bedeutet Skalar.
	Shape []int `json:"shape"`

	Values  Numbers  `json:"values,omitempty"`
	Strings []string `json:"strings,omitempty"`
}

// ============================================================================
// Modelle
// ============================================================================

// ModelsResponse - Antwort fuer GET /api/models
type ModelsResponse struct {
	Models []*modelfile.Info `json:"models"`
}

// ============================================================================
// Transformationen
// ============================================================================

// MatrixRequest - Endpoint: POST /api/transform/matrix
type MatrixRequest struct {
	Src []float32 `json:"src"`
	Dst []float32 `json:"dst"`
}

// MatrixResponse enthaelt die 3x3-Matrix zeilenweise
type MatrixResponse struct {
	Matrix imagetransform.Matrix `json:"matrix"`
}

// WarpRequest - Endpoint: POST /api/transform/warp
type WarpRequest struct {
	// Image ist das Base64-kodierte Bild (PNG, JPEG oder WebP)
	Image string `json:"image"`

	Width       int                    `json:"width"`
	Height      int                    `json:"height"`
	Matrix      *imagetransform.Matrix `json:"matrix"`
	Standardize bool                   `json:"standardize,omitempty"`
}

// WarpResponse enthaelt das Ergebnis im HWC-Layout
type WarpResponse struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Channels int       `json:"channels"`
	Pixels   []float32 `json:"pixels"`
}

// WarpBatchRequest - Endpoint: POST /api/transform/warp/batch
type WarpBatchRequest struct {
	Images      []string               `json:"images"`
	Width       int                    `json:"width"`
	Height      int                    `json:"height"`
	Matrix      *imagetransform.Matrix `json:"matrix"`
	Standardize bool                   `json:"standardize,omitempty"`
}

// WarpBatchResponse - Ergebnisse in Reihenfolge der Eingabe
type WarpBatchResponse struct {
	Images []WarpResponse `json:"images"`
}
