// cmd_transform.go - Perspektiv-Transformationen auf der Kommandozeile
// Hauptfunktionen: MatrixHandler, WarpHandler, parseFloats
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tflite-micro/tflm-go/imagetransform"
	"github.com/tflite-micro/tflm-go/interpreter"
)

// parseFloats - Komma-separierte float32-Liste
func parseFloats(s string) ([]float32, error) {
	numbers, err := parseNumbers(s)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(numbers))
	for i, v := range numbers {
		out[i] = float32(v)
	}
	return out, nil
}

// formatMatrix - Eine Zeile, neun Werte, wieder mit --matrix lesbar
func formatMatrix(m imagetransform.Matrix) string {
	parts := make([]string, len(m))
	for i, v := range m {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

// matrixFromFlags - --matrix direkt oder aus --src/--dst berechnet
func matrixFromFlags(cmd *cobra.Command) (imagetransform.Matrix, error) {
	if s, _ := cmd.Flags().GetString("matrix"); s != "" {
		values, err := parseFloats(s)
		if err != nil {
			return imagetransform.Matrix{}, err
		}
		if len(values) != 9 {
			return imagetransform.Matrix{}, fmt.Errorf("--matrix needs 9 values, got %d", len(values))
		}
		return imagetransform.Matrix(values), nil
	}

	src, _ := cmd.Flags().GetString("src")
	dst, _ := cmd.Flags().GetString("dst")
	if src == "" || dst == "" {
		return imagetransform.Matrix{}, fmt.Errorf("either --matrix or both --src and --dst are required")
	}

	srcPoints, err := parseFloats(src)
	if err != nil {
		return imagetransform.Matrix{}, err
	}
	dstPoints, err := parseFloats(dst)
	if err != nil {
		return imagetransform.Matrix{}, err
	}
	return imagetransform.GetPerspectiveTransformMatrix(srcPoints, dstPoints)
}

// MatrixHandler - Berechnet die Perspektiv-Matrix aus Punktpaaren
func MatrixHandler(cmd *cobra.Command, _ []string) error {
	m, err := matrixFromFlags(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatMatrix(m))
	return nil
}

// WarpHandler - Entzerrt ein Bild. Ausgabe mit Endung .bin ist roher float32-Tensor.
func WarpHandler(cmd *cobra.Command, args []string) error {
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	standardize, _ := cmd.Flags().GetBool("standardize")

	raw := strings.EqualFold(filepath.Ext(args[1]), ".bin")
	if standardize && !raw {
		return fmt.Errorf("standardized output can only be written as .bin")
	}

	m, err := matrixFromFlags(cmd)
	if err != nil {
		return err
	}

	img, err := imagetransform.Load(args[0])
	if err != nil {
		return err
	}

	out, err := imagetransform.ApplyPerspectiveTransform(img, width, height, m, standardize)
	if err != nil {
		return err
	}

	if raw {
		v := interpreter.NewArray(out.Pix, 1, out.Height, out.Width, out.Channels)
		return os.WriteFile(args[1], v.Data, 0o644)
	}
	return out.Save(args[1])
}

// newTransformCmd - Erstellt den transform Command mit matrix und warp
func newTransformCmd() *cobra.Command {
	transformCmd := &cobra.Command{
		Use:   "transform",
		Short: "Perspective transforms for model inputs",
		Args:  cobra.ExactArgs(0),
	}

	matrixCmd := &cobra.Command{
		Use:   "matrix",
		Short: "Compute the perspective matrix mapping --src onto --dst",
		Args:  cobra.ExactArgs(0),
		RunE:  MatrixHandler,
	}
	matrixCmd.Flags().String("src", "", "Source points x0,y0,x1,y1,... (at least 4 points)")
	matrixCmd.Flags().String("dst", "", "Destination points x0,y0,x1,y1,...")

	warpCmd := &cobra.Command{
		Use:   "warp IN OUT",
		Short: "Warp an image (png, jpeg, webp) into a width x height output",
		Args:  cobra.ExactArgs(2),
		RunE:  WarpHandler,
	}
	warpCmd.Flags().Int("width", 0, "Output width")
	warpCmd.Flags().Int("height", 0, "Output height")
	warpCmd.Flags().String("matrix", "", "Perspective matrix m0,...,m8 (row major)")
	warpCmd.Flags().String("src", "", "Source points, used with --dst instead of --matrix")
	warpCmd.Flags().String("dst", "", "Destination points, used with --src instead of --matrix")
	warpCmd.Flags().Bool("standardize", false, "Scale pixels to [-1, 1] (requires a .bin output)")
	warpCmd.MarkFlagRequired("width")  //nolint:errcheck
	warpCmd.MarkFlagRequired("height") //nolint:errcheck

	transformCmd.AddCommand(matrixCmd, warpCmd)
	return transformCmd
}
