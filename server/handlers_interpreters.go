// MODUL: handlers_interpreters
// ZWECK: HTTP-Handler fuer Interpreter-Sessions (anlegen, auflisten, ausfuehren, schliessen)
// INPUT: gin.Context mit JSON-Body und Pfad-Parametern
// OUTPUT: SessionResponse bzw. APIError
// NEBENEFFEKTE: Erzeugt, benutzt und schliesst native Interpreter
// ABHAENGIGKEITEN: gin-gonic/gin, interpreter
// HINWEISE: Alle Aufrufe auf einer Session laufen unter session.mu

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/tflite-micro/tflm-go/interpreter"
)

// bindJSON dekodiert den Body und wandelt Fehler in ErrInvalidRequest
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: missing request body", ErrInvalidRequest)
	} else if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// resolveModel bildet einen Modellnamen auf eine Datei unter modelDir ab
func (s *Server) resolveModel(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: model is required", ErrInvalidRequest)
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: model %q must be a path inside the model directory", ErrInvalidRequest, name)
	}

	path := filepath.Join(s.modelDir, name)
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrModelNotFound, name)
	} else if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidRequest, name)
	}
	return path, nil
}

// CreateHandler verarbeitet POST /api/interpreters
func (s *Server) CreateHandler(c *gin.Context) {
	var req CreateRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if req.ArenaSize < 0 {
		writeError(c, fmt.Errorf("%w: arena_size must not be negative", ErrInvalidRequest))
		return
	}

	path, err := s.resolveModel(req.Model)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.sessions.reserve(); err != nil {
		writeError(c, err)
		return
	}

	var opts []interpreter.Option
	if req.ArenaSize > 0 {
		opts = append(opts, interpreter.WithArenaSize(req.ArenaSize))
	}
	if req.Backend != "" {
		opts = append(opts, interpreter.WithBackend(req.Backend))
	}
	if req.PreserveAllTensors {
		opts = append(opts, interpreter.WithPreserveAllTensors(true))
	}

	interp, err := interpreter.CreateFromFileWithOptions(path, opts...)
	if err != nil {
		s.sessions.release()
		writeError(c, err)
		return
	}

	sess := s.sessions.add(req.Model, interp)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	resp, err := sess.info()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListHandler verarbeitet GET /api/interpreters
func (s *Server) ListHandler(c *gin.Context) {
	resp := ListResponse{Interpreters: []SessionResponse{}}
	for _, sess := range s.sessions.list() {
		sess.mu.Lock()
		info, err := sess.info()
		sess.mu.Unlock()
		if err != nil {
			// zwischen list und Lock geschlossen
			continue
		}
		resp.Interpreters = append(resp.Interpreters, info)
	}
	c.JSON(http.StatusOK, resp)
}

// withSession fuehrt fn unter dem Lock der Session aus :id aus und schreibt
// das Ergebnis als JSON
func (s *Server) withSession(c *gin.Context, fn func(*session) (any, error)) {
	sess, err := s.sessions.get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	resp, err := fn(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, resp)
}

// writeJSON kodiert vor dem Schreiben, damit ein Kodierfehler als Fehler-Antwort
// statt als leerer 200-Body ankommt
func writeJSON(c *gin.Context, resp any) {
	data, err := json.Marshal(resp)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", ErrEncodeResponse, err))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ShowHandler verarbeitet GET /api/interpreters/:id
func (s *Server) ShowHandler(c *gin.Context) {
	s.withSession(c, func(sess *session) (any, error) {
		return sess.info()
	})
}

// DeleteHandler verarbeitet DELETE /api/interpreters/:id
func (s *Server) DeleteHandler(c *gin.Context) {
	if err := s.sessions.remove(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// AllocateHandler verarbeitet POST /api/interpreters/:id/allocate
func (s *Server) AllocateHandler(c *gin.Context) {
	s.withSession(c, func(sess *session) (any, error) {
		if err := sess.interp.AllocateTensors(); err != nil {
			return nil, err
		}
		sess.allocated = true
		return sess.info()
	})
}

// InvokeHandler verarbeitet POST /api/interpreters/:id/invoke
func (s *Server) InvokeHandler(c *gin.Context) {
	s.withSession(c, func(sess *session) (any, error) {
		if err := sess.interp.Invoke(); err != nil {
			return nil, err
		}
		sess.invocations++
		return sess.info()
	})
}

// ResetHandler verarbeitet POST /api/interpreters/:id/reset
func (s *Server) ResetHandler(c *gin.Context) {
	s.withSession(c, func(sess *session) (any, error) {
		if err := sess.interp.ResetVariableTensors(); err != nil {
			return nil, err
		}
		return sess.info()
	})
}
