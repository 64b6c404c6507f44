package memory

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"github.com/spf13/afero"
)

const (
	// regionNameLength is the length of the hex start address used as
	// file name of a binary region file.
	regionNameLength = 8

	// textRowBytes is the number of bytes of one row of a debugger memory dump.
	textRowBytes = 16
	// textRowLength is the minimum length of a complete text dump row.
	textRowLength = 48
	// textDataColumn is the column of the first byte value of a text dump row.
	textDataColumn = 9
)

// LoadBinaryDir loads every file in dir whose name is an 8 digit hex address
// as a region starting at that address. Other files are ignored.
func LoadBinaryDir(fs afero.Fs, dir string) (*Snapshot, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory '%s': %w", dir, err)
	}

	var regions []Region
	for _, info := range infos {
		from, ok := regionAddress(info.Name())
		if info.IsDir() || !ok {
			continue
		}

		path := filepath.Join(dir, info.Name())
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("reading region file '%s': %w", path, err)
		}
		regions = append(regions, Region{From: from, Data: data})
	}

	snapshot, err := New(regions)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot directory '%s': %w", dir, err)
	}
	return snapshot, nil
}

// IsRegionFile reports whether the file name is a valid region file name.
func IsRegionFile(name string) bool {
	_, ok := regionAddress(name)
	return ok
}

func regionAddress(name string) (uint32, bool) {
	if len(name) != regionNameLength {
		return 0, false
	}
	from, err := strconv.ParseUint(name, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(from), true
}

// LoadText loads a memory dump printed by the emulator debugger from a file.
func LoadText(fs afero.Fs, path string) (*Snapshot, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening memory dump '%s': %w", path, err)
	}
	defer func() { _ = file.Close() }()

	snapshot, err := ParseText(file)
	if err != nil {
		return nil, fmt.Errorf("parsing memory dump '%s': %w", path, err)
	}
	return snapshot, nil
}

// ParseText parses a memory dump printed by the emulator debugger. Every row
// holds a hex address followed by 16 bytes printed as groups of two bytes.
// Rows may appear in any order and repeat, adjoining or overlapping rows are
// merged into one region and a later row overwrites an earlier one. Parsing
// stops at the first line that is too short to be a complete row.
func ParseText(r io.Reader) (*Snapshot, error) {
	scanner := bufio.NewScanner(r)

	var rows []Region
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < textRowLength {
			break
		}
		addr, err := strconv.ParseUint(line[:regionNameLength], 16, 32)
		if err != nil {
			break
		}
		rows = append(rows, Region{From: uint32(addr), Data: parseTextRow(line)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}

	return New(mergeRows(rows))
}

// mergeRows allocates one region per range of adjoining or overlapping rows
// and copies the row contents in input order.
func mergeRows(rows []Region) []Region {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b Region) int {
		return cmp.Compare(a.From, b.From)
	})

	var regions []Region
	for _, row := range sorted {
		n := len(regions)
		if n == 0 || uint64(row.From) > regions[n-1].End() {
			regions = append(regions, Region{From: row.From, Data: make([]byte, len(row.Data))})
			continue
		}
		last := &regions[n-1]
		if end := row.End(); end > last.End() {
			last.Data = append(last.Data, make([]byte, end-last.End())...)
		}
	}

	for _, row := range rows {
		i := sort.Search(len(regions), func(i int) bool {
			return regions[i].End() > uint64(row.From)
		})
		region := regions[i]
		copy(region.Data[row.From-region.From:], row.Data)
	}
	return regions
}

// parseTextRow decodes the byte values of a row, malformed values are
// decoded as zero.
func parseTextRow(line string) []byte {
	row := make([]byte, textRowBytes)
	column := textDataColumn
	for i := range row {
		if column+2 <= len(line) {
			value, err := strconv.ParseUint(line[column:column+2], 16, 8)
			if err == nil {
				row[i] = byte(value)
			}
		}
		// groups of two bytes are separated by a space
		column += 2
		if i%2 == 1 {
			column++
		}
	}
	return row
}
