// Package symbols provides address to symbol name resolution for display.
package symbols

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/retroenv/retrogolib/set"
	"github.com/spf13/afero"
)

// Resolver resolves an address to a symbol name.
type Resolver interface {
	Resolve(address uint32) (string, bool)
}

// Symbol is a named address.
type Symbol struct {
	Address uint32
	Name    string
}

// fileSymbol is a symbol as stored in a symbol table file, the address is
// a string to allow hex notation.
type fileSymbol struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Table is a map backed symbol resolver that tracks which symbols were used.
type Table struct {
	items map[uint32]string
	used  set.Set[uint32]
}

// New creates a new empty symbol table.
func New() *Table {
	return &Table{
		items: make(map[uint32]string),
		used:  set.New[uint32](),
	}
}

// Load loads a JSON symbol table file of the form
// [{"address": "0x00c01000", "name": "main"}, ...].
func Load(fs afero.Fs, path string) (*Table, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading symbol file '%s': %w", path, err)
	}

	var symbols []fileSymbol
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("decoding symbol file '%s': %w", path, err)
	}

	t := New()
	for i, sym := range symbols {
		address, err := strconv.ParseUint(sym.Address, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing address of symbol %d '%s': %w", i, sym.Name, err)
		}
		t.Set(uint32(address), sym.Name)
	}
	return t, nil
}

// Set sets the name of the symbol at the given address.
func (t *Table) Set(address uint32, name string) {
	t.items[address] = name
}

// Resolve returns the name of the symbol at the given address and marks it
// as used. A nil table resolves nothing.
func (t *Table) Resolve(address uint32) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.items[address]
	if ok {
		t.used.Add(address)
	}
	return name, ok
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	return len(t.items)
}

// Used returns the symbols that were resolved, sorted by address.
func (t *Table) Used() []Symbol {
	symbols := make([]Symbol, 0, len(t.used))
	for address := range t.used {
		symbols = append(symbols, Symbol{Address: address, Name: t.items[address]})
	}
	sort.Slice(symbols, func(i, j int) bool {
		return symbols[i].Address < symbols[j].Address
	})
	return symbols
}

// Label returns the resolved name of the address, or an empty string if the
// resolver is nil or does not know the address.
func Label(r Resolver, address uint32) string {
	if r == nil {
		return ""
	}
	name, _ := r.Resolve(address)
	return name
}
