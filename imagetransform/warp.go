// MODUL: warp
// ZWECK: Perspektivische Entzerrung eines Bildes mit einer 3x3-Matrix
// INPUT: Quellbild (HWC float32), Zielgroesse, Warp-Matrix, Standardisierungs-Flag
// OUTPUT: Neues Bild der Zielgroesse mit gleicher Kanalzahl
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: perspective.go (Invert, apply64)
// HINWEISE: Inverse Abbildung mit bilinearer Interpolation, ausserhalb der Quelle 0

package imagetransform

import (
	"fmt"
	"math"
)

// edgeTolerance erlaubt Rundungsfehler an den Bildraendern
const edgeTolerance = 1e-6

// ApplyPerspectiveTransform entzerrt img auf dstWidth x dstHeight. Jeder
// Zielpunkt wird ueber warp^-1 in die Quelle zurueckgerechnet. Mit standardize
// werden Werte aus [0, 255] nach [-1, 1] skaliert.
func ApplyPerspectiveTransform(img Image, dstWidth, dstHeight int, warp Matrix, standardize bool) (Image, error) {
	if err := checkWarpArgs(img, dstWidth, dstHeight); err != nil {
		return Image{}, err
	}

	inv, err := warp.Invert()
	if err != nil {
		return Image{}, err
	}

	return warpInverse(img, dstWidth, dstHeight, inv, standardize), nil
}

func checkWarpArgs(img Image, dstWidth, dstHeight int) error {
	if dstWidth <= 0 || dstHeight <= 0 {
		return fmt.Errorf("%w: destination size must be positive, got %dx%d", ErrInvalidArgument, dstWidth, dstHeight)
	}
	return img.validate()
}

// warpInverse erwartet die bereits invertierte Matrix
func warpInverse(img Image, dstWidth, dstHeight int, inv Matrix, standardize bool) Image {
	out := NewImage(dstWidth, dstHeight, img.Channels)
	c := img.Channels

	maxX := float64(img.Width - 1)
	maxY := float64(img.Height - 1)

	for y := range dstHeight {
		for x := range dstWidth {
			dst := out.Pix[(y*dstWidth+x)*c : (y*dstWidth+x+1)*c]

			sx, sy, ok := inv.apply64(float64(x), float64(y))
			if !ok || sx < -edgeTolerance || sy < -edgeTolerance || sx > maxX+edgeTolerance || sy > maxY+edgeTolerance {
				if standardize {
					for i := range dst {
						dst[i] = scale(0)
					}
				}
				continue
			}

			img.bilinear(clamp(sx, maxX), clamp(sy, maxY), dst)
			if standardize {
				for i, v := range dst {
					dst[i] = scale(v)
				}
			}
		}
	}

	return out
}

// bilinear interpoliert alle Kanaele an (x, y) nach dst
func (img Image) bilinear(x, y float64, dst []float32) {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := min(x0+1, img.Width-1), min(y0+1, img.Height-1)
	fx, fy := float32(x-float64(x0)), float32(y-float64(y0))

	c := img.Channels
	p00 := img.Pix[(y0*img.Width+x0)*c:]
	p01 := img.Pix[(y0*img.Width+x1)*c:]
	p10 := img.Pix[(y1*img.Width+x0)*c:]
	p11 := img.Pix[(y1*img.Width+x1)*c:]

	for i := range dst {
		top := p00[i] + (p01[i]-p00[i])*fx
		bottom := p10[i] + (p11[i]-p10[i])*fx
		dst[i] = top + (bottom-top)*fy
	}
}

func clamp(v, hi float64) float64 {
	return math.Min(math.Max(v, 0), hi)
}

func scale(v float32) float32 {
	return v/127.5 - 1
}
