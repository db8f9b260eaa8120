// cmd_serve.go - Server-Start und Versionsanzeige
// Hauptfunktionen: RunServer, versionHandler
package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tflite-micro/tflm-go/envconfig"
	"github.com/tflite-micro/tflm-go/native"
	"github.com/tflite-micro/tflm-go/server"
	"github.com/tflite-micro/tflm-go/version"
)

// RunServer - Startet den HTTP-Server auf TFLM_HOST
func RunServer(_ *cobra.Command, _ []string) error {
	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	err = server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// versionHandler - Zeigt Version und registrierte Backends an
func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "tflm version is %s\n", version.Version)
	if backends := native.Backends(); len(backends) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "backends: %v\n", backends)
	}
}

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the interpreter server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
}
