package symbols

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/spf13/afero"
)

//nolint:funlen // test functions can be long
func TestTable(t *testing.T) {
	t.Run("new table is initialized", func(t *testing.T) {
		table := New()

		assert.NotNil(t, table)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("set and resolve symbol", func(t *testing.T) {
		table := New()
		table.Set(0x00c01000, "main")

		name, ok := table.Resolve(0x00c01000)
		assert.True(t, ok)
		assert.Equal(t, "main", name)
		assert.Equal(t, []Symbol{{Address: 0x00c01000, Name: "main"}}, table.Used())
	})

	t.Run("resolve non-existent returns false", func(t *testing.T) {
		table := New()

		_, ok := table.Resolve(0x8000)
		assert.False(t, ok)
		assert.Len(t, table.Used(), 0)
	})

	t.Run("nil table resolves nothing", func(t *testing.T) {
		var table *Table

		_, ok := table.Resolve(0x8000)
		assert.False(t, ok)
	})

	t.Run("used symbols sorted by address", func(t *testing.T) {
		table := New()
		table.Set(0x3000, "c")
		table.Set(0x1000, "a")
		table.Set(0x2000, "b")

		_, _ = table.Resolve(0x3000)
		_, _ = table.Resolve(0x1000)
		_, _ = table.Resolve(0x1000)

		assert.Equal(t, []Symbol{
			{Address: 0x1000, Name: "a"},
			{Address: 0x3000, Name: "c"},
		}, table.Used())
	})
}

func TestLabel(t *testing.T) {
	table := New()
	table.Set(0x1000, "main")

	assert.Equal(t, "main", Label(table, 0x1000))
	assert.Equal(t, "", Label(table, 0x2000))
	assert.Equal(t, "", Label(nil, 0x1000))
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	t.Run("load hex and decimal addresses", func(t *testing.T) {
		content := `[{"address": "0x00c01000", "name": "main"}, {"address": "4096", "name": "vblank"}]`
		assert.NoError(t, afero.WriteFile(fs, "/symbols.json", []byte(content), 0o644))

		table, err := Load(fs, "/symbols.json")
		assert.NoError(t, err)
		assert.Equal(t, 2, table.Len())
		assert.Equal(t, "main", Label(table, 0x00c01000))
		assert.Equal(t, "vblank", Label(table, 0x1000))
	})

	t.Run("invalid address", func(t *testing.T) {
		content := `[{"address": "main", "name": "main"}]`
		assert.NoError(t, afero.WriteFile(fs, "/invalid.json", []byte(content), 0o644))

		_, err := Load(fs, "/invalid.json")
		assert.ErrorContains(t, err, "parsing address of symbol 0")
	})

	t.Run("invalid json", func(t *testing.T) {
		assert.NoError(t, afero.WriteFile(fs, "/broken.json", []byte("{"), 0o644))

		_, err := Load(fs, "/broken.json")
		assert.ErrorContains(t, err, "decoding symbol file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(fs, "/missing.json")
		assert.Error(t, err)
	})
}
