package interpreter

import (
	"encoding/binary"
	"fmt"
)

// Layout eines STRING-Tensors (DynamicBuffer in string_util.h):
//
//	int32 count
//	int32 offsets[count+1]  absolut ab Pufferbeginn
//	bytes
func encodeStrings(s []string) []byte {
	header := 4 * (len(s) + 2)
	size := header
	for _, e := range s {
		size += len(e)
	}

	b := make([]byte, header, size)
	binary.LittleEndian.PutUint32(b, uint32(len(s)))

	offset := header
	for i, e := range s {
		binary.LittleEndian.PutUint32(b[4*(i+1):], uint32(offset))
		offset += len(e)
	}
	binary.LittleEndian.PutUint32(b[4*(len(s)+1):], uint32(offset))

	for _, e := range s {
		b = append(b, e...)
	}
	return b
}

func decodeStrings(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b) < 4 {
		return nil, fmt.Errorf("interpreter: string buffer too short (%d bytes)", len(b))
	}

	count := int(int32(binary.LittleEndian.Uint32(b)))
	if count < 0 || 4*(count+2) > len(b) {
		return nil, fmt.Errorf("interpreter: string buffer with %d entries does not fit %d bytes", count, len(b))
	}

	out := make([]string, count)
	for i := range count {
		start := int(binary.LittleEndian.Uint32(b[4*(i+1):]))
		end := int(binary.LittleEndian.Uint32(b[4*(i+2):]))
		if start > end || end > len(b) {
			return nil, fmt.Errorf("interpreter: string %d has invalid offsets [%d, %d)", i, start, end)
		}
		out[i] = string(b[start:end])
	}
	return out, nil
}
