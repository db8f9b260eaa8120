package interpreter

import (
	"fmt"

	"github.com/tflite-micro/tflm-go/native"
)

// Quantization ist die per-Tensor Quantisierung (veraltete Form).
type Quantization struct {
	Scale     float32 `json:"scale"`
	ZeroPoint int32   `json:"zero_point"`
}

// QuantizationParameters ist die per-Kanal Quantisierung.
type QuantizationParameters struct {
	Scales             []float32 `json:"scales"`
	ZeroPoints         []int32   `json:"zero_points"`
	QuantizedDimension int       `json:"quantized_dimension"`
}

func perTensor(q native.QuantizationParams) Quantization {
	var out Quantization
	if len(q.Scales) > 0 {
		out.Scale = q.Scales[0]
	}
	if len(q.ZeroPoints) > 0 {
		out.ZeroPoint = q.ZeroPoints[0]
	}
	return out
}

// TensorDetails fasst die Metadaten eines Tensors zusammen.
type TensorDetails struct {
	Index                  int                    `json:"index"`
	Name                   string                 `json:"name"`
	Type                   native.TensorType      `json:"dtype"`
	Shape                  []int                  `json:"shape"`
	Quantization           Quantization           `json:"quantization"`
	QuantizationParameters QuantizationParameters `json:"quantization_parameters"`
}

// TensorDetails liest Name, Typ, Form und Quantisierung von Tensor i
func (in *Interpreter) TensorDetails(i int) (TensorDetails, error) {
	name, err := in.TensorName(i)
	if err != nil {
		return TensorDetails{}, err
	}
	typ, err := in.TensorType(i)
	if err != nil {
		return TensorDetails{}, err
	}
	shape, err := in.TensorSize(i)
	if err != nil {
		return TensorDetails{}, err
	}
	q, err := in.TensorQuantizationParameters(i)
	if err != nil {
		return TensorDetails{}, err
	}

	return TensorDetails{
		Index: i,
		Name:  name,
		Type:  typ,
		Shape: shape,
		Quantization: perTensor(native.QuantizationParams{
			Scales:     q.Scales,
			ZeroPoints: q.ZeroPoints,
		}),
		QuantizationParameters: q,
	}, nil
}

// InputDetails gibt die Details des k-ten Modell-Eingangs zurueck
func (in *Interpreter) InputDetails(k int) (TensorDetails, error) {
	i, err := in.inputIndex("InputDetails", k)
	if err != nil {
		return TensorDetails{}, err
	}
	return in.TensorDetails(i)
}

// OutputDetails gibt die Details des k-ten Modell-Ausgangs zurueck
func (in *Interpreter) OutputDetails(k int) (TensorDetails, error) {
	i, err := in.outputIndex("OutputDetails", k)
	if err != nil {
		return TensorDetails{}, err
	}
	return in.TensorDetails(i)
}

// SetInput schreibt v in den k-ten Modell-Eingang
func (in *Interpreter) SetInput(k int, v Value) error {
	i, err := in.inputIndex("SetInput", k)
	if err != nil {
		return err
	}
	return in.SetTensor(i, v)
}

// GetOutput liest den k-ten Modell-Ausgang
func (in *Interpreter) GetOutput(k int) (Value, error) {
	i, err := in.outputIndex("GetOutput", k)
	if err != nil {
		return Value{}, err
	}
	return in.GetTensor(i)
}

func (in *Interpreter) inputIndex(op string, k int) (int, error) {
	return call(in, op, k, func(n native.Interpreter) (int, error) {
		indices, err := n.InputIndices()
		if err != nil {
			return 0, err
		}
		return pick(indices, k, "input")
	})
}

func (in *Interpreter) outputIndex(op string, k int) (int, error) {
	return call(in, op, k, func(n native.Interpreter) (int, error) {
		indices, err := n.OutputIndices()
		if err != nil {
			return 0, err
		}
		return pick(indices, k, "output")
	})
}

func pick(indices []int, k int, what string) (int, error) {
	if k < 0 || k >= len(indices) {
		return 0, fmt.Errorf("%w: %s %d, model has %d", ErrIndexOutOfRange, what, k, len(indices))
	}
	return indices[k], nil
}
