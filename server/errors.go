// MODUL: errors
// ZWECK: Fehler-Definitionen und Fehler-Antworten der HTTP-API
// INPUT: Fehler aus Handlern, Interpreter und Bildtransformation
// OUTPUT: JSON-Fehler {code, message} mit passendem HTTP-Status
// NEBENEFFEKTE: HTTP-Responses schreiben
// ABHAENGIGKEITEN: gin-gonic/gin, interpreter, imagetransform, modelfile
// HINWEISE: Reihenfolge der Regeln ist relevant, die erste passende gewinnt

package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tflite-micro/tflm-go/imagetransform"
	"github.com/tflite-micro/tflm-go/interpreter"
	"github.com/tflite-micro/tflm-go/modelfile"
	"github.com/tflite-micro/tflm-go/native"
)

// ============================================================================
// Fehler-Definitionen
// ============================================================================

var (
	// ErrSessionNotFound wird geworfen wenn keine Session mit der ID existiert
	ErrSessionNotFound = errors.New("interpreter session not found")

	// ErrTooManyInterpreters wird geworfen wenn TFLM_MAX_INTERPRETERS erreicht ist
	ErrTooManyInterpreters = errors.New("too many interpreters")

	// ErrModelNotFound wird geworfen wenn die Modelldatei nicht existiert
	ErrModelNotFound = errors.New("model not found")

	// ErrInvalidRequest wird geworfen bei ungueltigem Request-Body oder Parametern
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidBase64 wird geworfen bei ungueltiger Base64-Kodierung
	ErrInvalidBase64 = errors.New("invalid base64 encoding")

	// ErrEncodeResponse wird geworfen wenn ein Ergebnis nicht als JSON kodierbar ist
	ErrEncodeResponse = errors.New("cannot encode response")
)

// ============================================================================
// Strukturierter API-Fehler
// ============================================================================

// APIError ist der JSON-Body jeder Fehler-Antwort.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e APIError) Error() string {
	return e.Message
}

// ============================================================================
// Fehler-Code Mapping
// ============================================================================

type errorRule struct {
	err    error
	status int
	code   string
}

var errorRules = []errorRule{
	{ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
	{interpreter.ErrClosed, http.StatusNotFound, "NOT_FOUND"},
	{ErrModelNotFound, http.StatusNotFound, "MODEL_NOT_FOUND"},
	{ErrTooManyInterpreters, http.StatusTooManyRequests, "TOO_MANY_INTERPRETERS"},
	{ErrInvalidRequest, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{ErrInvalidBase64, http.StatusBadRequest, "INVALID_BASE64"},
	{ErrEncodeResponse, http.StatusUnprocessableEntity, "OPERATION_FAILED"},
	{native.ErrUnknownBackend, http.StatusBadRequest, "INVALID_MODEL"},
	{modelfile.ErrNotTFLite, http.StatusBadRequest, "INVALID_MODEL"},
	{interpreter.ErrIndexOutOfRange, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{interpreter.ErrTypeMismatch, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{interpreter.ErrShapeMismatch, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{interpreter.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{imagetransform.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{imagetransform.ErrUnknownFormat, http.StatusBadRequest, "UNSUPPORTED_FORMAT"},
	{imagetransform.ErrUnsupportedFormat, http.StatusBadRequest, "UNSUPPORTED_FORMAT"},
}

// classify gibt HTTP-Status und API-Code fuer einen Fehler zurueck.
func classify(err error) (int, string) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadRequest, apiErr.Code
	}

	var cerr *interpreter.ConstructionError
	if errors.As(err, &cerr) {
		return http.StatusBadRequest, "INVALID_MODEL"
	}

	for _, r := range errorRules {
		if errors.Is(err, r.err) {
			return r.status, r.code
		}
	}

	var operr *interpreter.OperationError
	if errors.As(err, &operr) {
		return http.StatusUnprocessableEntity, "OPERATION_FAILED"
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// ============================================================================
// HTTP Response Helper
// ============================================================================

// writeError bricht die Anfrage mit einem JSON-Fehler ab.
func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, APIError{Code: code, Message: err.Error()})
}
