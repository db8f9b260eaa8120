package interpreter

import (
	"log/slog"
)

// DefaultArenaMultiplier bestimmt die Arena-Groesse relativ zur Modelldatei,
// wenn weder eine Groesse angegeben noch TFLM_ARENA_SIZE gesetzt ist.
const DefaultArenaMultiplier = 10

// Option konfiguriert CreateFromFileWithOptions.
type Option func(*options)

type options struct {
	arenaSize   int
	arenaSet    bool
	backend     string
	preserveAll bool
	logger      *slog.Logger
}

// WithArenaSize setzt die Groesse der Tensor-Arena in Bytes. Werte <= 0 sind ungueltig.
func WithArenaSize(n int) Option {
	return func(o *options) {
		o.arenaSize = n
		o.arenaSet = true
	}
}

// WithBackend waehlt das native Backend (Default: TFLM_BACKEND bzw. "tflm").
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithPreserveAllTensors haelt Zwischen-Tensoren nach Invoke lesbar.
func WithPreserveAllTensors(preserve bool) Option {
	return func(o *options) {
		o.preserveAll = preserve
	}
}

// WithLogger setzt den Logger des Interpreters (Default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
