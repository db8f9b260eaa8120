// cmd_run.go - Run Command: Modell laden, Eingaben setzen, Invoke, Ausgaben zeigen
// Hauptfunktionen: RunHandler, parseAssignment, setInputs, printOutputs
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tflite-micro/tflm-go/interpreter"
	"github.com/tflite-micro/tflm-go/server"
)

// runOutput ist die JSON-Form eines Ausgangs von run --json
type runOutput struct {
	interpreter.TensorDetails
	Values  server.Numbers `json:"values,omitempty"`
	Strings []string       `json:"strings,omitempty"`
}

// RunHandler - Fuehrt ein Modell einmal (oder --repeat mal) aus
func RunHandler(cmd *cobra.Command, args []string) error {
	opts, err := interpreterOptions(cmd)
	if err != nil {
		return err
	}

	files, _ := cmd.Flags().GetStringArray("input")
	values, _ := cmd.Flags().GetStringArray("values")
	repeat, _ := cmd.Flags().GetInt("repeat")
	asJSON, _ := cmd.Flags().GetBool("json")
	precision, _ := cmd.Flags().GetInt("precision")

	if repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", repeat)
	}

	in, err := interpreter.CreateFromFileWithOptions(args[0], opts...)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := in.AllocateTensors(); err != nil {
		return err
	}

	if err := setInputs(in, files, values); err != nil {
		return err
	}

	start := time.Now()
	for range repeat {
		if err := in.Invoke(); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)
	slog.Debug("invoke finished", "repeat", repeat, "elapsed", elapsed, "per_invoke", elapsed/time.Duration(repeat))

	if asJSON {
		return printOutputsJSON(in, cmd.OutOrStdout())
	}
	if err := printOutputs(in, cmd.OutOrStdout(), precision); err != nil {
		return err
	}
	if repeat > 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d invocations in %s (%s each)\n", repeat, elapsed, elapsed/time.Duration(repeat))
	}
	return nil
}

// parseAssignment - Zerlegt "K=REST" in Eingangsnummer und Rest
func parseAssignment(s string) (int, string, error) {
	k, rest, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid input %q, expected INDEX=VALUE", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(k))
	if err != nil || n < 0 {
		return 0, "", fmt.Errorf("invalid input index %q", k)
	}
	return n, rest, nil
}

// parseNumbers - Komma-separierte Zahlenliste
func parseNumbers(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// setInputs - Schreibt Dateien (roh, little-endian) und Zahlenlisten in die Eingaenge
func setInputs(in *interpreter.Interpreter, files, values []string) error {
	for _, s := range files {
		k, path, err := parseAssignment(s)
		if err != nil {
			return err
		}
		d, err := in.InputDetails(k)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		v, err := interpreter.FromBytes(d.Type, d.Shape, data)
		if err != nil {
			return fmt.Errorf("input %d from %s: %w", k, path, err)
		}
		if err := in.SetInput(k, v); err != nil {
			return err
		}
	}

	for _, s := range values {
		k, list, err := parseAssignment(s)
		if err != nil {
			return err
		}
		d, err := in.InputDetails(k)
		if err != nil {
			return err
		}
		numbers, err := parseNumbers(list)
		if err != nil {
			return err
		}
		v, err := interpreter.NewFromFloat64s(d.Type, d.Shape, numbers)
		if err != nil {
			return fmt.Errorf("input %d: %w", k, err)
		}
		if err := in.SetInput(k, v); err != nil {
			return err
		}
	}
	return nil
}

// printOutputs - Gibt alle Ausgaenge mit Dump aus
func printOutputs(in *interpreter.Interpreter, w io.Writer, precision int) error {
	indices, err := in.OutputIndices()
	if err != nil {
		return err
	}

	for k := range indices {
		d, err := in.OutputDetails(k)
		if err != nil {
			return err
		}
		v, err := in.GetOutput(k)
		if err != nil {
			return err
		}

		name := d.Name
		if name == "" {
			name = fmt.Sprintf("output_%d", k)
		}
		fmt.Fprintf(w, "%s %s %s\n", name, d.Type, formatShape(d.Shape))
		fmt.Fprintln(w, interpreter.Dump(v, interpreter.DumpWithPrecision(precision)))
	}
	return nil
}

func printOutputsJSON(in *interpreter.Interpreter, w io.Writer) error {
	indices, err := in.OutputIndices()
	if err != nil {
		return err
	}

	out := make([]runOutput, 0, len(indices))
	for k := range indices {
		d, err := in.OutputDetails(k)
		if err != nil {
			return err
		}
		v, err := in.GetOutput(k)
		if err != nil {
			return err
		}

		o := runOutput{TensorDetails: d}
		if v.Kind == interpreter.KindString {
			o.Strings = v.Strings
		} else if o.Values, err = v.Float64s(); err != nil {
			return err
		}
		out = append(out, o)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// newRunCmd - Erstellt den run Command
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run MODEL",
		Short: "Run a model once and print its outputs",
		Args:  cobra.ExactArgs(1),
		RunE:  RunHandler,
	}

	runCmd.Flags().StringArray("input", nil, "Raw little-endian input file as INDEX=FILE (repeatable)")
	runCmd.Flags().StringArray("values", nil, "Comma separated input values as INDEX=v0,v1,... (repeatable)")
	runCmd.Flags().Int("repeat", 1, "Number of invocations")
	runCmd.Flags().Int("precision", 4, "Decimal places for floating point outputs")
	runCmd.Flags().Bool("json", false, "Print the outputs as JSON")
	runCmd.Flags().String("arena-size", "", "Tensor arena size (e.g. 64KiB, default: 10x model size)")
	runCmd.Flags().String("backend", "", "Native backend (default: TFLM_BACKEND)")
	return runCmd
}
