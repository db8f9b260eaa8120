package imagetransform

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tflite-micro/tflm-go/envconfig"
)

// ApplyBatch entzerrt alle Bilder mit derselben Matrix. Die Matrix wird nur
// einmal invertiert, die Bilder werden parallel verarbeitet. Die Reihenfolge
// der Ergebnisse entspricht der Eingabe.
func ApplyBatch(ctx context.Context, imgs []Image, dstWidth, dstHeight int, warp Matrix, standardize bool) ([]Image, error) {
	inv, err := warp.Invert()
	if err != nil {
		return nil, err
	}

	for i, img := range imgs {
		if err := checkWarpArgs(img, dstWidth, dstHeight); err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
	}

	out := make([]Image, len(imgs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers())
	for i, img := range imgs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = warpInverse(img, dstWidth, dstHeight, inv, standardize)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func workers() int {
	if n := envconfig.WarpWorkers(); n > 0 {
		return int(n)
	}
	return runtime.NumCPU()
}
