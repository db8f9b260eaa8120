// MODUL: types_utils
// ZWECK: JSON-Hilfstypen fuer Tensor-Werte
// INPUT: float64-Listen aus Tensoren bzw. JSON-Bodies
// OUTPUT: JSON-Arrays, nicht endliche Werte als Strings
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: encoding/json, strconv
// HINWEISE: "NaN", "Infinity" und "-Infinity" werden in beide Richtungen akzeptiert

package server

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Numbers ist eine float64-Liste, die auch NaN und +-Inf nach JSON schreiben kann.
type Numbers []float64

// MarshalJSON serialisiert Numbers, nicht endliche Werte als String
func (n Numbers) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}

	b := make([]byte, 0, 2+8*len(n))
	b = append(b, '[')
	for i, f := range n {
		if i > 0 {
			b = append(b, ',')
		}
		switch {
		case math.IsNaN(f):
			b = append(b, `"NaN"`...)
		case math.IsInf(f, 1):
			b = append(b, `"Infinity"`...)
		case math.IsInf(f, -1):
			b = append(b, `"-Infinity"`...)
		default:
			b = strconv.AppendFloat(b, f, 'g', -1, 64)
		}
	}
	return append(b, ']'), nil
}

// UnmarshalJSON deserialisiert Zahlen und die Strings NaN, Infinity, -Infinity
func (n *Numbers) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*n = nil
		return nil
	}

	out := make(Numbers, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &out[i]); err == nil {
			continue
		}

		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return fmt.Errorf("value %d: expected a number, got %s", i, r)
		}
		switch s {
		case "NaN":
			out[i] = math.NaN()
		case "Infinity", "+Infinity", "Inf", "+Inf":
			out[i] = math.Inf(1)
		case "-Infinity", "-Inf":
			out[i] = math.Inf(-1)
		default:
			return fmt.Errorf("value %d: %q is not a number", i, s)
		}
	}
	*n = out
	return nil
}
