package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVOC(t *testing.T) {
	c := VOC()
	require.Equal(t, 21, c.Len())

	name, ok := c.Name(15)
	require.True(t, ok)
	assert.Equal(t, "person", name)

	name, ok = c.Name(0)
	require.True(t, ok)
	assert.Equal(t, "background", name)

	idx, ok := c.Index("dog")
	require.True(t, ok)
	assert.Equal(t, 12, idx)

	_, ok = c.Name(21)
	assert.False(t, ok)
	_, ok = c.Name(-1)
	assert.False(t, ok)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "background,person"},
		{name: "object", data: `{"0":"background"}`},
		{name: "numbers", data: `[0, 1, 2]`},
		{name: "empty array", data: `[]`},
		{name: "blank label", data: `["background", "  "]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLabelList))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(path, []byte(`["background","person"]`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"background", "person"}, c.Names())

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLabelList))
}

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(`["a","b","a"]`))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	idx, ok := c.Index("a")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestNamesIsCopy(t *testing.T) {
	c := VOC()
	names := c.Names()
	names[0] = "mutated"

	name, _ := c.Name(0)
	assert.Equal(t, "background", name)
}

func TestNew(t *testing.T) {
	names := []string{"background", "cat"}
	c, err := New(names)
	require.NoError(t, err)
	names[1] = "dog"
	n, ok := c.Name(1)
	assert.True(t, ok)
	assert.Equal(t, "cat", n)

	_, err = New(nil)
	assert.True(t, errors.Is(err, ErrInvalidLabelList))
	_, err = New([]string{"a", " "})
	assert.True(t, errors.Is(err, ErrInvalidLabelList))
}
