package export

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteNPYLayout(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]float64{
		{1.0, 2.0, 3.0},
		{4.0, 5.0, 6.0},
	}
	require.NoError(t, WriteNPY(&buf, rows))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte("\x93NUMPY")))
	assert.Equal(t, byte(1), data[6], "major version")
	assert.Equal(t, byte(0), data[7], "minor version")

	headerLen := binary.LittleEndian.Uint16(data[8:10])
	total := 10 + int(headerLen)
	assert.Zero(t, total%64, "header block must pad to a 64-byte boundary")

	header := string(data[10:total])
	assert.Contains(t, header, "'descr': '<f8'")
	assert.Contains(t, header, "'fortran_order': False")
	assert.Contains(t, header, "'shape': (2, 3)")
	assert.Equal(t, byte('\n'), header[len(header)-1])

	payload := data[total:]
	require.Len(t, payload, 2*3*8)
	for i, want := range []float64{1, 2, 3, 4, 5, 6} {
		got := math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
		assert.Equal(t, want, got)
	}
}

func TestWriteNPYPreservesNaN(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNPY(&buf, [][]float64{{math.NaN()}}))

	data := buf.Bytes()
	headerLen := binary.LittleEndian.Uint16(data[8:10])
	payload := data[10+int(headerLen):]
	got := math.Float64frombits(binary.LittleEndian.Uint64(payload))
	assert.True(t, math.IsNaN(got))
}

func TestWriteNPYRejectsRaggedRows(t *testing.T) {
	var buf bytes.Buffer
	err := WriteNPY(&buf, [][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestWriteNPYEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNPY(&buf, nil))
	assert.Contains(t, buf.String(), "'shape': (0, 0)")
}
