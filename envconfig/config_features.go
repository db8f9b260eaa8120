// config_features.go - Arena-, Limit- und Debug-Einstellungen
//
// Dieses Modul enthaelt:
// - Tensor-Arena Groesse
// - Server-Limits
// - Parallelitaet der Bildtransformationen
package envconfig

// =============================================================================
// Interpreter-Einstellungen
// =============================================================================

var (
	// ArenaSize ueberschreibt die Groesse der Tensor-Arena (Bytes oder mit Einheit)
	// 0 = aus der Modellgroesse ableiten
	ArenaSize = Size("TFLM_ARENA_SIZE", 0)

	// PreserveAllTensors haelt Zwischen-Tensoren nach Invoke lesbar
	PreserveAllTensors = Bool("TFLM_PRESERVE_ALL_TENSORS")
)

// =============================================================================
// Server-Limits
// =============================================================================

var (
	// MaxInterpreters begrenzt die Anzahl gleichzeitig offener Interpreter im Server
	// Konfigurierbar via TFLM_MAX_INTERPRETERS
	MaxInterpreters = Uint("TFLM_MAX_INTERPRETERS", uint(8))

	// MaxPixels begrenzt Breite x Hoehe von Bildern und Warp-Zielen pro Request
	// Konfigurierbar via TFLM_MAX_PIXELS, 0 = unbegrenzt
	MaxPixels = Uint("TFLM_MAX_PIXELS", uint64(4096*4096))
)

// =============================================================================
// Parallelitaets-Einstellungen
// =============================================================================

var (
	// WarpWorkers setzt die Anzahl paralleler Warp-Jobs bei Batch-Transformationen
	// 0 = Anzahl CPUs
	WarpWorkers = Uint("TFLM_WARP_WORKERS", uint(0))
)
