// cmd_show.go - Show Command und Modell-Info Anzeige
// Hauptfunktionen: ShowHandler, showInfo, showTensors
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tflite-micro/tflm-go/format"
	"github.com/tflite-micro/tflm-go/interpreter"
	"github.com/tflite-micro/tflm-go/modelfile"
)

// maxNameWidth begrenzt die Spaltenbreite von Tensor-Namen
const maxNameWidth = 40

// showOutput ist die JSON-Form von show --json
type showOutput struct {
	Model   *modelfile.Info             `json:"model"`
	Tensors []interpreter.TensorDetails `json:"tensors,omitempty"`
}

// ShowHandler - Zeigt Kopfdaten und optional Tensor-Details eines Modells an
func ShowHandler(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	withTensors, _ := cmd.Flags().GetBool("tensors")

	info, err := modelfile.Inspect(args[0])
	if err != nil {
		return err
	}

	var details []interpreter.TensorDetails
	if withTensors {
		details, err = loadTensorDetails(cmd, args[0])
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(showOutput{Model: info, Tensors: details})
	}

	showInfo(info, w)
	if withTensors {
		showTensors(details, w)
	}
	return nil
}

// loadTensorDetails - Erstellt einen Interpreter und liest alle Tensor-Details
func loadTensorDetails(cmd *cobra.Command, path string) ([]interpreter.TensorDetails, error) {
	opts, err := interpreterOptions(cmd)
	if err != nil {
		return nil, err
	}

	in, err := interpreter.CreateFromFileWithOptions(path, opts...)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	details := make([]interpreter.TensorDetails, 0, in.NumTensors())
	for i := range in.NumTensors() {
		d, err := in.TensorDetails(i)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// interpreterOptions - Liest --arena-size und --backend
func interpreterOptions(cmd *cobra.Command) ([]interpreter.Option, error) {
	var opts []interpreter.Option

	if s, _ := cmd.Flags().GetString("arena-size"); s != "" {
		n, err := format.ParseBytes(s)
		if err != nil {
			return nil, err
		}
		opts = append(opts, interpreter.WithArenaSize(int(n)))
	}

	if s, _ := cmd.Flags().GetString("backend"); s != "" {
		opts = append(opts, interpreter.WithBackend(s))
	}

	return opts, nil
}

// newTable - Tabelle im Stil von "tflm show"
func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

// showInfo - Gibt die Kopfdaten des Modells aus
func showInfo(info *modelfile.Info, w io.Writer) {
	fmt.Fprintln(w, " ", "Model")
	table := newTable(w)

	rows := [][]string{
		{"", "identifier", info.Identifier},
		{"", "version", strconv.FormatUint(uint64(info.Version), 10)},
		{"", "size", format.HumanBytes2(uint64(info.Size))},
	}
	if info.Description != "" {
		rows = append(rows, []string{"", "description", info.Description})
	}
	rows = append(rows,
		[]string{"", "operator codes", strconv.Itoa(info.OperatorCodes)},
		[]string{"", "buffers", strconv.Itoa(info.Buffers)},
	)
	if len(info.Metadata) > 0 {
		rows = append(rows, []string{"", "metadata", strings.Join(info.Metadata, ", ")})
	}

	table.AppendBulk(rows)
	table.Render()
	fmt.Fprintln(w)

	if len(info.Subgraphs) == 0 {
		return
	}

	fmt.Fprintln(w, " ", "Subgraphs")
	table = newTable(w)
	table.SetHeader([]string{"", "NAME", "TENSORS", "INPUTS", "OUTPUTS", "OPERATORS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetAutoFormatHeaders(false)
	for i, sg := range info.Subgraphs {
		name := sg.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		table.Append([]string{
			"",
			truncateName(name),
			strconv.Itoa(sg.Tensors),
			strconv.Itoa(sg.Inputs),
			strconv.Itoa(sg.Outputs),
			strconv.Itoa(sg.Operators),
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

// showTensors - Gibt Index, Name, Typ, Form und Quantisierung aller Tensoren aus
func showTensors(details []interpreter.TensorDetails, w io.Writer) {
	fmt.Fprintln(w, " ", "Tensors")
	table := newTable(w)
	table.SetHeader([]string{"", "INDEX", "NAME", "TYPE", "SHAPE", "QUANTIZATION"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetAutoFormatHeaders(false)

	for _, d := range details {
		table.Append([]string{
			"",
			strconv.Itoa(d.Index),
			truncateName(d.Name),
			d.Type.String(),
			formatShape(d.Shape),
			formatQuantization(d.Quantization),
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

// truncateName - Kuerzt nach Anzeigebreite, nicht nach Bytes
func truncateName(s string) string {
	if s == "" {
		return "-"
	}
	return runewidth.Truncate(s, maxNameWidth, "...")
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatQuantization(q interpreter.Quantization) string {
	if q.Scale == 0 && q.ZeroPoint == 0 {
		return "-"
	}
	return fmt.Sprintf("scale=%g zero_point=%d", q.Scale, q.ZeroPoint)
}

// newShowCmd - Erstellt den show Command
func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show MODEL",
		Short: "Show information for a .tflite model",
		Args:  cobra.ExactArgs(1),
		RunE:  ShowHandler,
	}

	showCmd.Flags().Bool("json", false, "Print the information as JSON")
	showCmd.Flags().Bool("tensors", false, "Create an interpreter and list all tensors")
	showCmd.Flags().String("arena-size", "", "Tensor arena size (e.g. 64KiB, default: 10x model size)")
	showCmd.Flags().String("backend", "", "Native backend (default: TFLM_BACKEND)")
	return showCmd
}
