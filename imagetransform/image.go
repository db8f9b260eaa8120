// MODUL: image
// ZWECK: Float-Bildpuffer fuer Transformationen, Konvertierung von und nach image.Image
// INPUT: Dateipfad, Bytes, io.Reader oder image.Image
// OUTPUT: Image (HWC float32, Werte 0..255)
// NEBENEFFEKTE: Dateisystem-Zugriff bei Load und Save
// ABHAENGIGKEITEN: golang.org/x/image/draw, golang.org/x/image/webp, image/jpeg, image/png
// HINWEISE: Graustufen haben 1 Kanal, Farbbilder 3 (RGB) oder 4 (RGBA)

package imagetransform

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Image ist ein Bild im HWC-Layout mit float32-Werten.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// NewImage legt ein schwarzes Bild an
func NewImage(width, height, channels int) Image {
	return Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}
}

func (img Image) validate() error {
	switch {
	case img.Width <= 0 || img.Height <= 0:
		return fmt.Errorf("%w: image size must be positive, got %dx%d", ErrInvalidArgument, img.Width, img.Height)
	case img.Channels <= 0:
		return fmt.Errorf("%w: image needs at least one channel", ErrInvalidArgument)
	case len(img.Pix) != img.Width*img.Height*img.Channels:
		return fmt.Errorf("%w: image has %d values, want %dx%dx%d", ErrInvalidArgument, len(img.Pix), img.Width, img.Height, img.Channels)
	}
	return nil
}

// At gibt die Kanalwerte an (x, y) zurueck
func (img Image) At(x, y int) []float32 {
	i := (y*img.Width + x) * img.Channels
	return img.Pix[i : i+img.Channels]
}

// Set schreibt die Kanalwerte an (x, y)
func (img Image) Set(x, y int, v ...float32) {
	copy(img.At(x, y), v)
}

// FromImage konvertiert src nach RGB (3 Kanaele) oder bei Graustufen nach 1 Kanal
func FromImage(src image.Image) Image {
	bounds := src.Bounds()

	if g, ok := src.(*image.Gray); ok {
		out := NewImage(bounds.Dx(), bounds.Dy(), 1)
		for y := range out.Height {
			for x := range out.Width {
				out.Pix[y*out.Width+x] = float32(g.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return out
	}

	rgba := toRGBA(src)
	out := NewImage(bounds.Dx(), bounds.Dy(), 3)
	for y := range out.Height {
		for x := range out.Width {
			c := rgba.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			out.Set(x, y, float32(c.R), float32(c.G), float32(c.B))
		}
	}
	return out
}

// toRGBA konvertiert ein beliebiges image.Image zu *image.RGBA
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// ToImage konvertiert zurueck nach image.Image. Werte werden auf 0..255 begrenzt.
func (img Image) ToImage() (image.Image, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, img.Width, img.Height)
	switch img.Channels {
	case 1:
		out := image.NewGray(rect)
		for y := range img.Height {
			for x := range img.Width {
				out.SetGray(x, y, color.Gray{Y: toByte(img.At(x, y)[0])})
			}
		}
		return out, nil
	case 3, 4:
		out := image.NewRGBA(rect)
		for y := range img.Height {
			for x := range img.Width {
				p := img.At(x, y)
				c := color.RGBA{R: toByte(p[0]), G: toByte(p[1]), B: toByte(p[2]), A: 255}
				if img.Channels == 4 {
					c.A = toByte(p[3])
				}
				out.SetRGBA(x, y, c)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %d channels to an image", ErrInvalidArgument, img.Channels)
	}
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0 || math.IsNaN(float64(v)):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// Load laedt ein Bild von einem Dateipfad
func Load(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("datei lesen fehlgeschlagen: %w", err)
	}
	return DecodeBytes(data)
}

// Decode dekodiert ein Bild aus einem io.Reader
func Decode(r io.Reader) (Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Image{}, fmt.Errorf("daten lesen fehlgeschlagen: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes dekodiert PNG, JPEG oder WebP
func DecodeBytes(data []byte) (Image, error) {
	if err := ValidateFormat(DetectFormat(data)); err != nil {
		return Image{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("imagetransform: decode image: %w", err)
	}
	return FromImage(img), nil
}

// Encode schreibt das Bild im angegebenen Format. WebP kann nur gelesen werden.
func (img Image) Encode(w io.Writer, format ImageFormat) error {
	out, err := img.ToImage()
	if err != nil {
		return err
	}

	switch format {
	case FormatPNG:
		return png.Encode(w, out)
	case FormatJPEG:
		return jpeg.Encode(w, out, &jpeg.Options{Quality: 95})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Save schreibt das Bild, das Format folgt der Dateiendung
func (img Image) Save(path string) error {
	format := FormatFromExtension(filepath.Ext(path))
	if !format.CanEncode() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := img.Encode(f, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
