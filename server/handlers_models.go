// MODUL: handlers_models
// ZWECK: HTTP-Handler fuer Modelldateien und native Backends
// INPUT: gin.Context, Modellverzeichnis (TFLM_MODELS)
// OUTPUT: ModelsResponse, modelfile.Info, Backend-Liste
// NEBENEFFEKTE: Dateisystem-Lesezugriff
// ABHAENGIGKEITEN: gin-gonic/gin, modelfile, native
// HINWEISE: Nur Dateien mit Endung .tflite werden gelistet

package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tflite-micro/tflm-go/modelfile"
	"github.com/tflite-micro/tflm-go/native"
)

// ModelsHandler verarbeitet GET /api/models
func (s *Server) ModelsHandler(c *gin.Context) {
	entries, err := os.ReadDir(s.modelDir)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ModelsResponse{Models: []*modelfile.Info{}}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".tflite") {
			continue
		}

		info, err := modelfile.Inspect(filepath.Join(s.modelDir, e.Name()))
		if err != nil {
			slog.Warn("skipping model", "name", e.Name(), "error", err)
			continue
		}
		info.Path = e.Name()
		resp.Models = append(resp.Models, info)
	}
	c.JSON(http.StatusOK, resp)
}

// ModelHandler verarbeitet GET /api/models/:name
func (s *Server) ModelHandler(c *gin.Context) {
	path, err := s.resolveModel(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	info, err := modelfile.Inspect(path)
	if err != nil {
		writeError(c, err)
		return
	}
	info.Path = c.Param("name")
	c.JSON(http.StatusOK, info)
}

// BackendsHandler verarbeitet GET /api/backends
func (s *Server) BackendsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"backends": native.Backends()})
}
