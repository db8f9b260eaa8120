// config_utils.go - Getter-Fabriken und Export der TFLM_* Konfiguration
//
// Dieses Modul enthaelt:
// - Bool, Uint, Size: Getter-Fabriken fuer Environment-Variablen
// - EnvVar, AsMap, Values: Export fuer Usage-Texte und Server-Log
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tflite-micro/tflm-go/format"
)

// =============================================================================
// Getter-Fabriken
// =============================================================================

// Bool liest key als Bool. Gesetzte, aber nicht parsebare Werte zaehlen als true.
func Bool(key string) func() bool {
	return func() bool {
		s := Var(key)
		if s == "" {
			return false
		}
		b, err := strconv.ParseBool(s)
		return b || err != nil
	}
}

// Uint liest key als vorzeichenlose Zahl, ungueltige Werte ergeben defaultValue
func Uint[T ~uint | ~uint64](key string, defaultValue T) func() T {
	return func() T {
		s := Var(key)
		if s == "" {
			return defaultValue
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			return defaultValue
		}
		return T(n)
	}
}

// Size liest key als Groesse in Bytes, Einheiten wie "64KiB" oder "1MB" sind erlaubt
func Size(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		s := Var(key)
		if s == "" {
			return defaultValue
		}
		n, err := format.ParseBytes(s)
		if err != nil {
			slog.Warn("invalid size, using default", "key", key, "value", s, "default", defaultValue, "error", err)
			return defaultValue
		}
		return n
	}
}

// =============================================================================
// Export
// =============================================================================

// EnvVar beschreibt eine Variable fuer Usage-Texte
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle TFLM_* Variablen mit aktuellem Wert und Beschreibung zurueck
func AsMap() map[string]EnvVar {
	vars := []EnvVar{
		{"TFLM_DEBUG", LogLevel(), "Show additional debug information (e.g. TFLM_DEBUG=1, 2 for trace)"},
		{"TFLM_HOST", Host(), "IP Address for the tflm server (default 127.0.0.1:8089)"},
		{"TFLM_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		{"TFLM_MODELS", Models(), "The directory the server loads models from"},
		{"TFLM_BACKEND", Backend(), "Native interpreter backend (default \"tflm\")"},
		{"TFLM_ARENA_SIZE", ArenaSize(), "Tensor arena size, e.g. 65536 or 64KiB (default: 10x model size)"},
		{"TFLM_PRESERVE_ALL_TENSORS", PreserveAllTensors(), "Keep intermediate tensors readable after invoke"},
		{"TFLM_MAX_INTERPRETERS", MaxInterpreters(), "Maximum number of open interpreters in the server (default: 8)"},
		{"TFLM_WARP_WORKERS", WarpWorkers(), "Parallel perspective warps in batch mode (default: number of CPUs)"},
		{"TFLM_MAX_PIXELS", MaxPixels(), "Maximum width x height of images handled by the server (default: 16777216, 0 = no limit)"},
	}

	m := make(map[string]EnvVar, len(vars))
	for _, v := range vars {
		m[v.Name] = v
	}
	return m
}

// Values gibt die aktuellen Werte als Strings zurueck, z.B. fuer das Server-Log
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprint(v.Value)
	}
	return vals
}
