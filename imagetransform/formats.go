// MODUL: formats
// ZWECK: Bildformate der Transformations-Ein- und Ausgaben
// INPUT: Bild-Bytes, Dateiendungen oder Format-Namen
// OUTPUT: ImageFormat, Fehler bei unbekanntem oder nicht unterstuetztem Format
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: keine
// HINWEISE: Erkennung ueber Magic-Bytes, WebP kann nur gelesen werden

package imagetransform

import (
	"bytes"
	"errors"
	"slices"
	"strings"
)

// ImageFormat ist der Name eines Bildformats
type ImageFormat string

const (
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatWebP    ImageFormat = "webp"
	FormatUnknown ImageFormat = "unknown"
)

var (
	ErrUnknownFormat     = errors.New("imagetransform: unknown image format")
	ErrUnsupportedFormat = errors.New("imagetransform: unsupported image format")
)

// formatInfo beschreibt ein Format: Signatur an offset, MIME-Type, Endungen
type formatInfo struct {
	format     ImageFormat
	magic      []byte
	offset     int
	riff       bool
	mime       string
	extensions []string
	encode     bool
}

var formats = []formatInfo{
	{format: FormatJPEG, magic: []byte{0xFF, 0xD8, 0xFF}, mime: "image/jpeg", extensions: []string{".jpg", ".jpeg"}, encode: true},
	{format: FormatPNG, magic: []byte{0x89, 'P', 'N', 'G'}, mime: "image/png", extensions: []string{".png"}, encode: true},
	{format: FormatWebP, magic: []byte("WEBP"), offset: 8, riff: true, mime: "image/webp", extensions: []string{".webp"}},
}

func lookup(f ImageFormat) (formatInfo, bool) {
	i := slices.IndexFunc(formats, func(info formatInfo) bool { return info.format == f })
	if i < 0 {
		return formatInfo{}, false
	}
	return formats[i], true
}

// DetectFormat erkennt das Format anhand der Magic-Bytes
func DetectFormat(data []byte) ImageFormat {
	for _, info := range formats {
		if info.riff && !bytes.HasPrefix(data, []byte("RIFF")) {
			continue
		}
		if len(data) >= info.offset && bytes.HasPrefix(data[info.offset:], info.magic) {
			return info.format
		}
	}
	return FormatUnknown
}

// ValidateFormat prueft ob das Format dekodiert werden kann
func ValidateFormat(format ImageFormat) error {
	if format == FormatUnknown {
		return ErrUnknownFormat
	}
	if _, ok := lookup(format); !ok {
		return ErrUnsupportedFormat
	}
	return nil
}

// CanEncode meldet ob Encode das Format schreiben kann
func (f ImageFormat) CanEncode() bool {
	info, ok := lookup(f)
	return ok && info.encode
}

// MimeType gibt den MIME-Type zurueck, application/octet-stream fuer Unbekanntes
func (f ImageFormat) MimeType() string {
	if info, ok := lookup(f); ok {
		return info.mime
	}
	return "application/octet-stream"
}

func (f ImageFormat) String() string {
	return string(f)
}

// FormatFromExtension bildet eine Dateiendung (mit Punkt) auf ein Format ab
func FormatFromExtension(ext string) ImageFormat {
	ext = strings.ToLower(ext)
	for _, info := range formats {
		if slices.Contains(info.extensions, ext) {
			return info.format
		}
	}
	return FormatUnknown
}
