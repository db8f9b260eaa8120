package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	Byte = 1

	KiloByte = Byte * 1000
	MegaByte = KiloByte * 1000
	GigaByte = MegaByte * 1000

	KibiByte = Byte * 1024
	MebiByte = KibiByte * 1024
	GibiByte = MebiByte * 1024
)

// HumanBytes2 formatiert mit binaeren Einheiten (KiB, MiB, GiB)
func HumanBytes2(b uint64) string {
	switch {
	case b >= GibiByte:
		return fmt.Sprintf("%.1f GiB", float64(b)/GibiByte)
	case b >= MebiByte:
		return fmt.Sprintf("%.1f MiB", float64(b)/MebiByte)
	case b >= KibiByte:
		return fmt.Sprintf("%.1f KiB", float64(b)/KibiByte)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

var units = map[string]float64{
	"":    Byte,
	"B":   Byte,
	"K":   KibiByte,
	"KB":  KiloByte,
	"KIB": KibiByte,
	"M":   MebiByte,
	"MB":  MegaByte,
	"MIB": MebiByte,
	"G":   GibiByte,
	"GB":  GigaByte,
	"GIB": GibiByte,
}

// ParseBytes parst Groessenangaben wie "512", "64KiB", "1.5 MB" oder "2M"
func ParseBytes(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if i < 0 {
		i = len(s)
	}

	n, err := strconv.ParseFloat(s[:i], 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	unit, ok := units[strings.ToUpper(strings.TrimSpace(s[i:]))]
	if !ok {
		return 0, fmt.Errorf("invalid size unit in %q", s)
	}

	v := n * unit
	if v > math.MaxInt32*float64(GibiByte) {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return uint64(v), nil
}
