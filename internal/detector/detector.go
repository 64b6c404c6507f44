// Package detector handles memory snapshot format detection.
package detector

import (
	"path/filepath"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/uaetrace/internal/config"
	"github.com/retroenv/uaetrace/internal/memory"
	"github.com/spf13/afero"
)

// Format is the storage format of a memory snapshot in a dump directory.
type Format int

// Snapshot formats in order of preference.
const (
	None   Format = iota // no snapshot captured
	Binary               // directory of binary region files
	Text                 // memory dump printed by the emulator debugger
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case Text:
		return "text"
	default:
		return "none"
	}
}

// Detector handles memory snapshot format detection in dump directories.
type Detector struct {
	logger *log.Logger
	fs     afero.Fs
}

// New creates a new snapshot format detector.
func New(logger *log.Logger, fs afero.Fs) *Detector {
	return &Detector{
		logger: logger,
		fs:     fs,
	}
}

// Detect determines the snapshot format of a dump directory. A directory of
// binary region files takes precedence over a text dump.
func (d *Detector) Detect(dir string) Format {
	format := d.detectFormat(dir)
	d.logger.Debug("Detected snapshot format",
		log.Stringer("format", format),
		log.String("dir", dir))
	return format
}

func (d *Detector) detectFormat(dir string) Format {
	if d.hasRegionFiles(filepath.Join(dir, config.MemoryDir)) {
		return Binary
	}

	exists, err := afero.Exists(d.fs, filepath.Join(dir, config.MemoryText))
	if err == nil && exists {
		return Text
	}
	return None
}

// hasRegionFiles returns whether the directory contains at least one file
// named as a region start address.
func (d *Detector) hasRegionFiles(dir string) bool {
	infos, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		return false
	}
	for _, info := range infos {
		if !info.IsDir() && memory.IsRegionFile(info.Name()) {
			return true
		}
	}
	return false
}
