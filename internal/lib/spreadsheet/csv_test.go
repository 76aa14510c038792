package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGrid(t *testing.T) {
	data := []byte("Name,Email,Phone\nSara Ali,sara@x.com,+971 50-111-2222\nOmar Said,omar@x.com,971502223333\n")
	grid, err := ReadGrid(data)
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, []string{"Name", "Email", "Phone"}, grid[0])
	assert.Equal(t, []string{"Sara Ali", "sara@x.com", "+971 50-111-2222"}, grid[1])
}

func TestReadGrid_RaggedRows(t *testing.T) {
	data := []byte("Name,Email,Phone\nSara Ali,sara@x.com\n")
	grid, err := ReadGrid(data)
	require.NoError(t, err)
	require.Len(t, grid, 2)
	assert.Len(t, grid[1], 2)
}

func TestReadGrid_Empty(t *testing.T) {
	grid, err := ReadGrid(nil)
	require.NoError(t, err)
	assert.Empty(t, grid)
}

func TestReadGrid_InvalidUTF8Replaced(t *testing.T) {
	data := append([]byte("Name,Email,Phone\n"), 0xff, 0xfe, '\n')
	_, err := ReadGrid(data)
	assert.NoError(t, err)
}
