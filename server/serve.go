// serve.go - Server-Start und Lifecycle-Management
// Enthaelt: Serve() - Hauptfunktion zum Starten des HTTP-Servers

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tflite-micro/tflm-go/envconfig"
	"github.com/tflite-micro/tflm-go/logutil"
	"github.com/tflite-micro/tflm-go/native"
	"github.com/tflite-micro/tflm-go/version"
)

// Serve startet den HTTP-Server auf ln und blockiert bis SIGINT/SIGTERM
func Serve(ln net.Listener) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	s := New(envconfig.Models(), int(envconfig.MaxInterpreters()))
	s.addr = ln.Addr()

	srvr := &http.Server{
		Handler: s.GenerateRoutes(),
	}

	ctx, done := context.WithCancel(context.Background())

	// bei ctrl+c alle Interpreter freigeben
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		srvr.Close()
		s.Close()
		done()
	}()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version),
		"models", s.modelDir, "backends", native.Backends())

	err := srvr.Serve(ln)
	// vom Signal-Handler geschlossen: auf das Aufraeumen warten
	if !errors.Is(err, http.ErrServerClosed) {
		s.Close()
		return err
	}
	<-ctx.Done()
	return nil
}
