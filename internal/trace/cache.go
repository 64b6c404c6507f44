package trace

import (
	"bufio"
	"encoding/gob"
	"fmt"

	"github.com/retroenv/uaetrace/internal/step"
	"github.com/spf13/afero"
)

// compiled is the serialized form of an index. The cache has no version or
// checksum, it has to be removed manually when the trace text changes.
type compiled struct {
	Steps   []step.Record
	Entries map[uint32]int
}

// ReadCache restores an index verbatim from a compiled cache file.
func ReadCache(fs afero.Fs, path string) (*Index, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var c compiled
	if err := gob.NewDecoder(bufio.NewReader(file)).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding cache %s: %w", path, err)
	}
	if c.Entries == nil {
		c.Entries = make(map[uint32]int)
	}

	return &Index{
		steps:   c.Steps,
		entries: c.Entries,
	}, nil
}

// WriteCache persists the index as compiled cache file.
func (ix *Index) WriteCache(fs afero.Fs, path string) error {
	file, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating cache %s: %w", path, err)
	}

	buf := bufio.NewWriter(file)
	c := compiled{
		Steps:   ix.steps,
		Entries: ix.entries,
	}
	if err := gob.NewEncoder(buf).Encode(c); err != nil {
		_ = file.Close()
		return fmt.Errorf("encoding cache %s: %w", path, err)
	}
	if err := buf.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing cache %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing cache %s: %w", path, err)
	}
	return nil
}
