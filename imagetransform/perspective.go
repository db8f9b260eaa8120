// MODUL: perspective
// ZWECK: Perspektivische 3x3-Matrix aus Punktpaaren berechnen und invertieren
// INPUT: Quell- und Zielpunkte als flache Listen {x0, y0, x1, y1, ...}
// OUTPUT: Matrix (zeilenweise, h33 = 1)
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: gonum.org/v1/gonum/mat
// HINWEISE: 4 Punkte werden exakt geloest, mehr Punkte per kleinster Quadrate

// Package imagetransform stellt zustandslose perspektivische Bildtransformationen
// bereit. Alle Funktionen sind referenziell transparent und duerfen parallel
// aufgerufen werden.
package imagetransform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidArgument wird bei ungueltigen Punkten, Groessen oder Matrizen zurueckgegeben
var ErrInvalidArgument = errors.New("imagetransform: invalid argument")

// MinPoints ist die Mindestanzahl Punktpaare fuer eine Perspektive
const MinPoints = 4

// Matrix ist eine 3x3 Perspektiv-Matrix, zeilenweise.
type Matrix [9]float32

// Identity gibt die Einheitsmatrix zurueck
func Identity() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func (m Matrix) dense() *mat.Dense {
	d := make([]float64, 9)
	for i, v := range m {
		d[i] = float64(v)
	}
	return mat.NewDense(3, 3, d)
}

// fromDense verengt auf float32. ok ist false wenn ein Eintrag dabei nicht
// endlich bleibt.
func fromDense(d mat.Matrix) (Matrix, bool) {
	var m Matrix
	for r := range 3 {
		for c := range 3 {
			v := float32(d.At(r, c))
			if !finite(float64(v)) {
				return Matrix{}, false
			}
			m[3*r+c] = v
		}
	}
	return m, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Apply bildet (x, y) ab. ok ist false wenn der Punkt ins Unendliche faellt
// oder das Ergebnis nicht endlich ist.
func (m Matrix) Apply(x, y float32) (float32, float32, bool) {
	px, py, ok := m.apply64(float64(x), float64(y))
	return float32(px), float32(py), ok
}

func (m Matrix) apply64(x, y float64) (float64, float64, bool) {
	w := float64(m[6])*x + float64(m[7])*y + float64(m[8])
	if w == 0 {
		return 0, 0, false
	}
	px := (float64(m[0])*x + float64(m[1])*y + float64(m[2])) / w
	py := (float64(m[3])*x + float64(m[4])*y + float64(m[5])) / w
	if !finite(px) || !finite(py) {
		return 0, 0, false
	}
	return px, py, true
}

// Invert gibt die inverse Matrix zurueck
func (m Matrix) Invert() (Matrix, error) {
	for _, v := range m {
		if !finite(float64(v)) {
			return Matrix{}, fmt.Errorf("%w: warp matrix contains non-finite values", ErrInvalidArgument)
		}
	}

	d := m.dense()
	if det := mat.Det(d); det == 0 || !finite(det) {
		return Matrix{}, fmt.Errorf("%w: warp matrix is not invertible", ErrInvalidArgument)
	}

	var inv mat.Dense
	if err := inv.Inverse(d); err != nil {
		return Matrix{}, fmt.Errorf("%w: warp matrix is not invertible: %v", ErrInvalidArgument, err)
	}
	out, ok := fromDense(&inv)
	if !ok {
		return Matrix{}, fmt.Errorf("%w: inverse of warp matrix is not representable as float32", ErrInvalidArgument)
	}
	return out, nil
}

// GetPerspectiveTransformMatrix berechnet die Matrix, die src auf dst abbildet.
// src und dst sind flache Punktlisten gleicher Laenge mit mindestens 4 Punkten.
func GetPerspectiveTransformMatrix(src, dst []float32) (Matrix, error) {
	switch {
	case len(src)%2 != 0 || len(dst)%2 != 0:
		return Matrix{}, fmt.Errorf("%w: point lists must hold x,y pairs (got %d and %d values)", ErrInvalidArgument, len(src), len(dst))
	case len(src) != len(dst):
		return Matrix{}, fmt.Errorf("%w: %d source points but %d destination points", ErrInvalidArgument, len(src)/2, len(dst)/2)
	case len(src)/2 < MinPoints:
		return Matrix{}, fmt.Errorf("%w: need at least %d point pairs, got %d", ErrInvalidArgument, MinPoints, len(src)/2)
	}

	n := len(src) / 2
	ts, err := normalization(src)
	if err != nil {
		return Matrix{}, err
	}
	td, err := normalization(dst)
	if err != nil {
		return Matrix{}, err
	}

	a := mat.NewDense(2*n, 8, nil)
	b := mat.NewVecDense(2*n, nil)

	for i := range n {
		x, y, _ := ts.apply64(float64(src[2*i]), float64(src[2*i+1]))
		u, v, _ := td.apply64(float64(dst[2*i]), float64(dst[2*i+1]))

		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	// Rang pruefen, Solve meldet bei kleinsten Quadraten keinen Rangverlust
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return Matrix{}, fmt.Errorf("%w: cannot factorize point system", ErrInvalidArgument)
	}
	if svd.Rank(1e-10) < 8 {
		return Matrix{}, fmt.Errorf("%w: points are degenerate (collinear or repeated)", ErrInvalidArgument)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	hn := mat.NewDense(3, 3, []float64{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	})

	// H = Td^-1 * Hn * Ts
	var tdInv mat.Dense
	if err := tdInv.Inverse(td.dense()); err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	var full mat.Dense
	full.Product(&tdInv, hn, ts.dense())

	scale := full.At(2, 2)
	if scale == 0 || math.IsNaN(scale) {
		return Matrix{}, fmt.Errorf("%w: points are degenerate", ErrInvalidArgument)
	}

	var m Matrix
	for r := range 3 {
		for c := range 3 {
			f := float32(full.At(r, c) / scale)
			if !finite(float64(f)) {
				return Matrix{}, fmt.Errorf("%w: points are degenerate", ErrInvalidArgument)
			}
			m[3*r+c] = f
		}
	}
	return m, nil
}

// normalization verschiebt den Schwerpunkt in den Ursprung und skaliert den
// mittleren Abstand auf sqrt(2)
func normalization(points []float32) (Matrix, error) {
	n := float64(len(points) / 2)

	var cx, cy float64
	for i := 0; i < len(points); i += 2 {
		cx += float64(points[i])
		cy += float64(points[i+1])
	}
	cx /= n
	cy /= n

	var dist float64
	for i := 0; i < len(points); i += 2 {
		dist += math.Hypot(float64(points[i])-cx, float64(points[i+1])-cy)
	}
	dist /= n

	if dist == 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return Matrix{}, fmt.Errorf("%w: points are degenerate (all equal or non-finite)", ErrInvalidArgument)
	}

	s := math.Sqrt2 / dist
	return Matrix{
		float32(s), 0, float32(-s * cx),
		0, float32(s), float32(-s * cy),
		0, 0, 1,
	}, nil
}
