package memory

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// minAssetNonZero is the minimum number of non-zero bytes an asset file needs
// to be searched for, files with less content would match almost anywhere.
const minAssetNonZero = 8

// Mapping is an occurrence of an asset file in captured memory.
type Mapping struct {
	Path       string
	Address    uint32 // absolute address of the first byte
	Translated uint32 // address relative to the display offset
	Length     int
}

// FindAll returns the addresses of all non-overlapping occurrences of data in
// the captured memory, in ascending order. Occurrences crossing region
// boundaries are not found.
func (s *Snapshot) FindAll(data []byte) []uint32 {
	if len(data) == 0 {
		return nil
	}

	var addresses []uint32
	for _, r := range s.regions {
		pos := 0
		for {
			i := bytes.Index(r.Data[pos:], data)
			if i < 0 {
				break
			}
			addresses = append(addresses, r.From+uint32(pos+i))
			pos += i + len(data)
		}
	}
	return addresses
}

// MapData searches the captured memory for the contents of every file below
// assetDir. Files with less than 8 non-zero bytes are skipped. offset is
// subtracted from the found addresses to calculate the translated address.
func (s *Snapshot) MapData(fs afero.Fs, assetDir string, offset uint32) ([]Mapping, error) {
	var mappings []Mapping

	err := afero.Walk(fs, assetDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return fmt.Errorf("reading asset '%s': %w", path, err)
		}
		if countNonZero(data) < minAssetNonZero {
			return nil
		}

		for _, address := range s.FindAll(data) {
			mappings = append(mappings, Mapping{
				Path:       path,
				Address:    address,
				Translated: address - offset,
				Length:     len(data),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking asset directory '%s': %w", assetDir, err)
	}
	return mappings, nil
}

func countNonZero(data []byte) int {
	var n int
	for _, b := range data {
		if b != 0 {
			n++
		}
	}
	return n
}
