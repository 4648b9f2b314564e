package exporter

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// NPY serialization for sequence tensors. The format is the NumPy
// v1.0 file layout: a fixed magic, a padded ASCII header describing
// dtype and shape, then the raw buffer in C order. Only little-endian
// float32 output is needed here. No third-party module in the
// ecosystem we build against covers this format, so it is implemented
// directly against the published layout.

var npyMagic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y', 0x01, 0x00}

// WriteNPY writes data as a float32 ndarray of the given shape. The
// element count of data must equal the product of the shape.
func WriteNPY(filePath string, shape []int, data []float32) error {
	elements := 1
	for _, dim := range shape {
		elements *= dim
	}
	if elements != len(data) {
		return fmt.Errorf("shape %v holds %d elements, got %d values", shape, elements, len(data))
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create npy file: %w", err)
	}
	defer file.Close()

	header := npyHeader(shape)
	if _, err := file.Write(header); err != nil {
		return fmt.Errorf("write npy header: %w", err)
	}

	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	if _, err := file.Write(buf); err != nil {
		return fmt.Errorf("write npy payload: %w", err)
	}
	return nil
}

// npyHeader builds the magic plus the padded header line so the
// payload starts at a 64-byte boundary.
func npyHeader(shape []int) []byte {
	dims := make([]string, len(shape))
	for i, dim := range shape {
		dims[i] = fmt.Sprintf("%d", dim)
	}
	shapeRepr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeRepr += ","
	}
	descr := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%s), }", shapeRepr)

	// magic(8) + header length field(2) + dict + '\n', padded to 64.
	total := len(npyMagic) + 2 + len(descr) + 1
	padding := (64 - total%64) % 64

	out := make([]byte, 0, total+padding)
	out = append(out, npyMagic...)
	headerLen := len(descr) + padding + 1
	out = append(out, byte(headerLen), byte(headerLen>>8))
	out = append(out, descr...)
	out = append(out, strings.Repeat(" ", padding)...)
	out = append(out, '\n')
	return out
}
