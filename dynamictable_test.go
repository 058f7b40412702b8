package hpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicTable_AddAndEvict(t *testing.T) {
	table := NewDynamicTable(100)

	table.Add(newHeaderEntry([]byte("ab"), []byte("cdef"))) // cost 38
	table.Add(newHeaderEntry([]byte("gh"), []byte("ijkl"))) // cost 38, total 76
	table.Add(newHeaderEntry([]byte("mn"), []byte("opqr"))) // cost 38, would be 114 > 100: evict oldest

	assert.Equal(t, 2, table.Length())
	assert.LessOrEqual(t, table.Size(), 100)

	newest, err := table.GetEntry(1)
	require.NoError(t, err)
	assert.Equal(t, "mn", string(newest.Name()))

	oldest, err := table.GetEntry(table.Length())
	require.NoError(t, err)
	assert.Equal(t, "gh", string(oldest.Name()))
}

func TestDynamicTable_AddCostExceedsCapacityClearsTable(t *testing.T) {
	table := NewDynamicTable(100)
	table.Add(newHeaderEntry([]byte("a"), []byte("b")))
	require.Equal(t, 1, table.Length())

	huge := newHeaderEntry(make([]byte, 200), nil)
	table.Add(huge)

	assert.Equal(t, 0, table.Length())
	assert.Equal(t, 0, table.Size())
}

func TestDynamicTable_GetIndex(t *testing.T) {
	table := NewDynamicTable(4096)
	table.Add(newHeaderEntry([]byte("name"), []byte("v1")))
	table.Add(newHeaderEntry([]byte("name"), []byte("v2")))

	assert.Equal(t, 1, table.GetIndex([]byte("name")))
	assert.Equal(t, 1, table.GetIndexWithValue([]byte("name"), []byte("v2")))
	assert.Equal(t, 2, table.GetIndexWithValue([]byte("name"), []byte("v1")))
	assert.Equal(t, -1, table.GetIndex([]byte("missing")))
}

func TestDynamicTable_SetCapacityZeroClears(t *testing.T) {
	table := NewDynamicTable(4096)
	table.Add(newHeaderEntry([]byte("a"), []byte("b")))
	table.Add(newHeaderEntry([]byte("c"), []byte("d")))

	require.NoError(t, table.SetCapacity(0))
	assert.Equal(t, 0, table.Length())
	assert.Equal(t, 0, table.Size())
	assert.Equal(t, 0, table.Capacity())
}

func TestDynamicTable_SetCapacityPreservesOrder(t *testing.T) {
	table := NewDynamicTable(4096)
	table.Add(newHeaderEntry([]byte("first"), []byte("1")))
	table.Add(newHeaderEntry([]byte("second"), []byte("2")))
	table.Add(newHeaderEntry([]byte("third"), []byte("3")))

	require.NoError(t, table.SetCapacity(4096))

	e1, err := table.GetEntry(1)
	require.NoError(t, err)
	assert.Equal(t, "third", string(e1.Name()))

	e3, err := table.GetEntry(3)
	require.NoError(t, err)
	assert.Equal(t, "first", string(e3.Name()))
}

func TestDynamicTable_SetCapacityNegativeErrors(t *testing.T) {
	table := NewDynamicTable(4096)
	err := table.SetCapacity(-1)
	assert.Error(t, err)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestDynamicTable_ClearReferenceSet(t *testing.T) {
	table := NewDynamicTable(4096)
	table.Add(newHeaderEntry([]byte("a"), []byte("b")))
	e, err := table.GetEntry(1)
	require.NoError(t, err)
	e.inReferenceSet = true

	table.ClearReferenceSet()
	assert.False(t, e.inReferenceSet)
	assert.Equal(t, 1, table.Length())
}

func TestDynamicTable_GetEntryOutOfRange(t *testing.T) {
	table := NewDynamicTable(4096)
	_, err := table.GetEntry(1)
	assert.Error(t, err)
}
