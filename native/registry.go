// registry.go - Registrierung der nativen Backends
// Backends registrieren sich per init() unter einem Namen (z.B. "tflm").
package native

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"
)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// RegisterBackend registriert eine Factory. Doppelte Namen sind ein Programmierfehler.
func RegisterBackend(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if _, ok := backends[name]; ok {
		panic("native: backend already registered: " + name)
	}

	backends[name] = f
}

// UnregisterBackend entfernt ein Backend. Gibt true zurueck wenn es existierte.
func UnregisterBackend(name string) bool {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	_, ok := backends[name]
	delete(backends, name)
	return ok
}

// Backends gibt die registrierten Namen sortiert zurueck
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewInterpreter erzeugt einen Interpreter mit dem angegebenen Backend.
func NewInterpreter(backend, path string, opts Options) (Interpreter, error) {
	backendsMu.RLock()
	f, ok := backends[backend]
	backendsMu.RUnlock()

	if !ok {
		if suggestion := closestBackend(backend); suggestion != "" {
			return nil, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownBackend, backend, suggestion)
		}
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, backend)
	}

	return f(path, opts)
}

// closestBackend sucht den aehnlichsten registrierten Namen
func closestBackend(name string) string {
	best := ""
	score := math.MaxInt
	for _, candidate := range Backends() {
		if d := levenshtein.ComputeDistance(name, candidate); d < score {
			score = d
			best = candidate
		}
	}

	// nur naheliegende Tippfehler vorschlagen
	if score > 3 {
		return ""
	}
	return best
}
