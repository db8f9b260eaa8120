// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tflite-micro/tflm-go/envconfig"
	"github.com/tflite-micro/tflm-go/logutil"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-26s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "tflm",
		Short:         "TensorFlow Lite Micro interpreter and image transforms",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	vars := envconfig.AsMap()
	envs := func(names ...string) []envconfig.EnvVar {
		out := make([]envconfig.EnvVar, len(names))
		for i, name := range names {
			out[i] = vars[name]
		}
		return out
	}

	interpreterEnvs := envs("TFLM_BACKEND", "TFLM_ARENA_SIZE", "TFLM_PRESERVE_ALL_TENSORS", "TFLM_DEBUG")
	commands := []struct {
		cmd  *cobra.Command
		envs []envconfig.EnvVar
	}{
		{newServeCmd(), envs(
			"TFLM_DEBUG",
			"TFLM_HOST",
			"TFLM_ORIGINS",
			"TFLM_MODELS",
			"TFLM_BACKEND",
			"TFLM_ARENA_SIZE",
			"TFLM_PRESERVE_ALL_TENSORS",
			"TFLM_MAX_INTERPRETERS",
			"TFLM_WARP_WORKERS",
			"TFLM_MAX_PIXELS",
		)},
		{newShowCmd(), interpreterEnvs},
		{newRunCmd(), interpreterEnvs},
		{newTransformCmd(), envs("TFLM_WARP_WORKERS")},
	}

	for _, c := range commands {
		appendEnvDocs(c.cmd, c.envs)
		rootCmd.AddCommand(c.cmd)
	}

	return rootCmd
}
