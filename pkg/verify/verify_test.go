package verify

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pjavanrood/csrbench/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(vs ...int64) *Reference { return &Reference{Values: vs} }

func TestVerifyOrderSensitive(t *testing.T) {
	tests := []struct {
		name      string
		actual    []int64
		expected  []int64
		ok        bool
		firstDiff int
	}{
		{"identical", []int64{1, 2, 3, 4}, []int64{1, 2, 3, 4}, true, -1},
		{"swapped", []int64{1, 3, 2, 4}, []int64{1, 2, 3, 4}, false, 1},
		{"shorter", []int64{1, 2}, []int64{1, 2, 3}, false, 2},
		{"longer", []int64{1, 2, 3, 9}, []int64{1, 2, 3}, false, 3},
		{"both empty", nil, nil, true, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Verify(tt.actual, ref(tt.expected...), OrderSensitive)
			assert.Equal(t, tt.ok, rep.OK)
			assert.Equal(t, tt.firstDiff, rep.FirstDiff)
			assert.Equal(t, len(tt.expected), rep.Expected)
			assert.Equal(t, len(tt.actual), rep.Actual)
		})
	}
}

func TestVerifyOrderInsensitive(t *testing.T) {
	rep := Verify([]int64{1, 3, 2, 4}, ref(1, 2, 3, 4), OrderInsensitive)
	assert.True(t, rep.OK)

	rep = Verify([]int64{1, 2, 2}, ref(1, 2, 3), OrderInsensitive)
	assert.False(t, rep.OK)
	assert.Equal(t, []int64{3}, rep.Missing)
	assert.Equal(t, []int64{2}, rep.Unexpected)

	// multiplicity counts
	rep = Verify([]int64{5, 5}, ref(5), OrderInsensitive)
	assert.False(t, rep.OK)
	assert.Equal(t, []int64{5}, rep.Unexpected)

	rep = Verify([]int64{0, 1}, ref(0, 1, 2), OrderInsensitive)
	assert.False(t, rep.OK)
	assert.Contains(t, rep.String(), "missing [2]")
}

func TestVerifyCapsDiagnostics(t *testing.T) {
	expected := make([]int64, 50)
	for i := range expected {
		expected[i] = int64(i)
	}
	rep := Verify(nil, ref(expected...), OrderInsensitive)
	assert.False(t, rep.OK)
	assert.Len(t, rep.Missing, MaxDiagnostics)
	assert.Equal(t, int64(0), rep.Missing[0])
}

func TestVerifyNilReference(t *testing.T) {
	assert.True(t, Verify(nil, nil, OrderSensitive).OK)
	assert.False(t, Verify([]int64{1}, nil, OrderSensitive).OK)
}

func TestReportString(t *testing.T) {
	rep := Verify([]int64{1, 3}, ref(1, 2), OrderSensitive)
	assert.Equal(t, "mismatch (order_sensitive): expected 2 values, got 2; first difference at index 1: expected 2, got 3", rep.String())

	rep = Verify([]int64{1}, ref(1, 2), OrderSensitive)
	assert.Contains(t, rep.String(), "agree up to index 1")

	rep = Verify([]int64{1, 2}, ref(1, 2), OrderSensitive)
	assert.Equal(t, "match (2 values, order_sensitive)", rep.String())
}

func TestAutoMode(t *testing.T) {
	assert.Equal(t, OrderSensitive, AutoMode("order", config.KindSequential))
	assert.Equal(t, OrderInsensitive, AutoMode("order", config.KindSharedMemory))
	assert.Equal(t, OrderInsensitive, AutoMode("order", config.KindDistributed))
	assert.Equal(t, OrderSensitive, AutoMode("distance", config.KindAccelerator))

	mode, err := Resolve(config.CompareOrderInsensitive, "order", config.KindSequential)
	require.NoError(t, err)
	assert.Equal(t, OrderInsensitive, mode)

	mode, err = Resolve(config.CompareAuto, "order", config.KindAccelerator)
	require.NoError(t, err)
	assert.Equal(t, OrderInsensitive, mode)

	_, err = Resolve("fuzzy", "order", config.KindSequential)
	assert.Error(t, err)
}

func TestParseReference(t *testing.T) {
	r, err := ParseReference(strings.NewReader("1\n2\n\n3 4\n-1\n"))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, -1}, r.Values)

	_, err = ParseReference(strings.NewReader("1\nabc\n"))
	assert.ErrorContains(t, err, "malformed reference value 2")

	r, err = ParseReference(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, r.Values)
}

func TestWriteAndLoadReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.txt")
	var buf bytes.Buffer
	require.NoError(t, WriteReference(&buf, []int64{1, 2, 3, 4}))
	assert.Equal(t, "1\n2\n3\n4\n", buf.String())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	r, err := LoadReference(path)
	require.NoError(t, err)
	assert.Equal(t, path, r.Path)
	assert.True(t, Verify([]int64{1, 2, 3, 4}, r, OrderSensitive).OK)

	_, err = LoadReference(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
