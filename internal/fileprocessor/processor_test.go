package fileprocessor

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/uaetrace/internal/options"
	"github.com/retroenv/uaetrace/internal/step"
	"github.com/spf13/afero"
)

func TestCreateWriter(t *testing.T) {
	fs := afero.NewMemMapFs()

	writer, closer, err := CreateWriter(fs, options.Program{})
	assert.NoError(t, err)
	assert.True(t, writer == io.Writer(os.Stdout))
	assert.NoError(t, closer.Close())

	opts := options.Program{Parameters: options.Parameters{Output: "/out.txt"}}
	writer, closer, err = CreateWriter(fs, opts)
	assert.NoError(t, err)
	_, err = fmt.Fprint(writer, "result")
	assert.NoError(t, err)
	assert.NoError(t, closer.Close())

	data, err := afero.ReadFile(fs, "/out.txt")
	assert.NoError(t, err)
	assert.Equal(t, "result", string(data))
}

func TestRun(t *testing.T) {
	fs := afero.NewMemMapFs()

	r := step.Record{PC: 0xc01000, NextPC: 0xc01002}
	copy(r.Opcode[:], fmt.Sprintf("%-24s", "4e75"))
	copy(r.Note[:], fmt.Sprintf("%-64s", "RTS"))
	assert.NoError(t, afero.WriteFile(fs, "/dump/opcode.log", []byte(r.String()), 0o644))

	opts := options.Program{
		Parameters: options.Parameters{Output: "/starts.txt"},
		Command:    options.Command{Name: options.Starts, Dirs: []string{"/dump"}},
	}
	assert.NoError(t, Run(context.Background(), log.NewTestLogger(t), fs, opts))

	data, err := afero.ReadFile(fs, "/starts.txt")
	assert.NoError(t, err)
	assert.Equal(t, "00C01000\n", string(data))
}

func TestRunError(t *testing.T) {
	opts := options.Program{
		Command: options.Command{Name: options.Stack, Dirs: []string{"/missing"}},
	}
	err := Run(context.Background(), log.NewTestLogger(t), afero.NewMemMapFs(), opts)
	assert.ErrorContains(t, err, "running stack")
}
