// MODUL: handlers_tensors
// ZWECK: HTTP-Handler fuer Tensor-Details und Tensor-Inhalte einer Session
// INPUT: gin.Context mit Session-ID, Tensor-Index und optionalem JSON-Body
// OUTPUT: TensorsResponse, TensorResponse bzw. APIError
// NEBENEFFEKTE: Schreibt Tensor-Puffer bei PUT
// ABHAENGIGKEITEN: gin-gonic/gin, go-ordered-map, interpreter, native
// HINWEISE: Werte werden als float64 bzw. Strings uebertragen

package server

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tflite-micro/tflm-go/interpreter"
	"github.com/tflite-micro/tflm-go/native"
)

func tensorIndex(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, fmt.Errorf("%w: tensor index %q is not a number", ErrInvalidRequest, c.Param("index"))
	}
	return i, nil
}

// TensorsHandler verarbeitet GET /api/interpreters/:id/tensors
func (s *Server) TensorsHandler(c *gin.Context) {
	s.withSession(c, func(sess *session) (any, error) {
		tensors := orderedmap.New[string, interpreter.TensorDetails]()
		for i := range sess.interp.NumTensors() {
			d, err := sess.interp.TensorDetails(i)
			if err != nil {
				return nil, err
			}

			key := d.Name
			if key == "" {
				key = "tensor_" + strconv.Itoa(i)
			}
			if _, dup := tensors.Get(key); dup {
				key = fmt.Sprintf("%s_%d", key, i)
			}
			tensors.Set(key, d)
		}
		return TensorsResponse{Tensors: tensors}, nil
	})
}

// TensorHandler verarbeitet GET /api/interpreters/:id/tensors/:index
func (s *Server) TensorHandler(c *gin.Context) {
	i, err := tensorIndex(c)
	if err != nil {
		writeError(c, err)
		return
	}

	s.withSession(c, func(sess *session) (any, error) {
		return readTensor(sess.interp, i)
	})
}

// SetTensorHandler verarbeitet PUT /api/interpreters/:id/tensors/:index
func (s *Server) SetTensorHandler(c *gin.Context) {
	i, err := tensorIndex(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req SetTensorRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	s.withSession(c, func(sess *session) (any, error) {
		d, err := sess.interp.TensorDetails(i)
		if err != nil {
			return nil, err
		}

		v, err := valueFromRequest(req, d)
		if err != nil {
			return nil, err
		}
		if err := sess.interp.SetTensor(i, v); err != nil {
			return nil, err
		}
		return readTensor(sess.interp, i)
	})
}

// valueFromRequest baut den Wert, fehlende Angaben kommen aus den Tensor-Details
func valueFromRequest(req SetTensorRequest, d interpreter.TensorDetails) (interpreter.Value, error) {
	typ := d.Type
	if req.Type != "" {
		t, err := native.ParseTensorType(req.Type)
		if err != nil {
			return interpreter.Value{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		typ = t
	}

	shape := req.Shape
	if shape == nil {
		shape = d.Shape
	}

	if req.Strings != nil {
		if req.Values != nil {
			return interpreter.Value{}, fmt.Errorf("%w: values and strings are exclusive", ErrInvalidRequest)
		}
		return interpreter.NewStrings(req.Strings, shape...), nil
	}

	return interpreter.NewFromFloat64s(typ, shape, req.Values)
}

func readTensor(interp *interpreter.Interpreter, i int) (TensorResponse, error) {
	d, err := interp.TensorDetails(i)
	if err != nil {
		return TensorResponse{}, err
	}
	v, err := interp.GetTensor(i)
	if err != nil {
		return TensorResponse{}, err
	}

	resp := TensorResponse{TensorDetails: d}
	if v.Kind == interpreter.KindString {
		resp.Strings = v.Strings
		return resp, nil
	}

	resp.Values, err = v.Float64s()
	if err != nil {
		return TensorResponse{}, err
	}
	return resp, nil
}
