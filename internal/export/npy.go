// Minimal NumPy .npy (format version 1.0) writer for 2D float64 arrays
package export

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

var npyMagic = []byte("\x93NUMPY")

// WriteNPY writes rows as a little-endian float64 array in npy v1.0 layout.
// All rows must have equal length.
func WriteNPY(w io.Writer, rows [][]float64) error {
	height := len(rows)
	width := 0
	if height > 0 {
		width = len(rows[0])
	}
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
	}

	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d), }", height, width)
	// Total header length (magic + version + length field + dict) must be a
	// multiple of 64, dict padded with spaces and terminated by newline.
	unpadded := len(npyMagic) + 2 + 2 + len(header) + 1
	padding := (64 - unpadded%64) % 64
	for i := 0; i < padding; i++ {
		header += " "
	}
	header += "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	buf := make([]byte, 8*width)
	for _, row := range rows {
		for i, v := range row {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// WriteNPYFile writes rows to path, creating or truncating the file.
func WriteNPYFile(path string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteNPY(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
