package detector

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/spf13/afero"
)

func TestDetect(t *testing.T) {
	logger := log.NewTestLogger(t)
	fs := afero.NewMemMapFs()
	d := New(logger, fs)

	assert.NoError(t, afero.WriteFile(fs, "/binary/memory/00c00000", []byte{1, 2}, 0o644))
	assert.NoError(t, afero.WriteFile(fs, "/both/memory/00c00000", []byte{1, 2}, 0o644))
	assert.NoError(t, afero.WriteFile(fs, "/both/mem", []byte("00c00000 0102"), 0o644))
	assert.NoError(t, afero.WriteFile(fs, "/text/mem", []byte("00c00000 0102"), 0o644))
	assert.NoError(t, afero.WriteFile(fs, "/emptydir/memory/notes.txt", []byte("x"), 0o644))
	assert.NoError(t, afero.WriteFile(fs, "/none/opcode.log", []byte(""), 0o644))

	tests := []struct {
		name       string
		dir        string
		wantFormat Format
	}{
		{
			name:       "binary region files",
			dir:        "/binary",
			wantFormat: Binary,
		},
		{
			name:       "binary preferred over text",
			dir:        "/both",
			wantFormat: Binary,
		},
		{
			name:       "text dump",
			dir:        "/text",
			wantFormat: Text,
		},
		{
			name:       "memory directory without region files",
			dir:        "/emptydir",
			wantFormat: None,
		},
		{
			name:       "no snapshot",
			dir:        "/none",
			wantFormat: None,
		},
		{
			name:       "missing directory",
			dir:        "/missing",
			wantFormat: None,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.dir)
			assert.Equal(t, tt.wantFormat, got)
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "binary", Binary.String())
	assert.Equal(t, "text", Text.String())
	assert.Equal(t, "none", None.String())
}
