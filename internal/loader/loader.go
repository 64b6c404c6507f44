// Package loader handles loading of traces, memory snapshots and display
// offsets from dump directories.
package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/uaetrace/internal/config"
	"github.com/retroenv/uaetrace/internal/detector"
	"github.com/retroenv/uaetrace/internal/memory"
	"github.com/retroenv/uaetrace/internal/trace"
	"github.com/spf13/afero"
)

// Loader handles loading dump directory contents.
type Loader struct {
	logger   *log.Logger
	fs       afero.Fs
	detector *detector.Detector
}

// New creates a new dump directory loader.
func New(logger *log.Logger, fs afero.Fs) *Loader {
	return &Loader{
		logger:   logger,
		fs:       fs,
		detector: detector.New(logger, fs),
	}
}

// LoadTrace loads the trace of a dump directory. The compiled cache is used
// if it exists, otherwise the trace text is parsed and the cache is written
// for the next run. If rebuild is set, an existing cache is ignored and
// overwritten.
func (l *Loader) LoadTrace(ctx context.Context, dir string, rebuild bool) (*trace.Index, error) {
	cachePath := filepath.Join(dir, config.CacheFile)

	if !rebuild {
		exists, err := afero.Exists(l.fs, cachePath)
		if err != nil {
			return nil, fmt.Errorf("checking cache file: %w", err)
		}
		if exists {
			ix, err := trace.ReadCache(l.fs, cachePath)
			if err == nil {
				l.logger.Debug("Loaded compiled trace",
					log.String("file", cachePath),
					log.Int("steps", ix.Len()))
				return ix, nil
			}
			l.logger.Warn("Compiled trace is unreadable, parsing trace text", log.Err(err))
		}
	}

	ix, err := l.ParseTrace(ctx, dir)
	if err != nil {
		return nil, err
	}

	if err := ix.WriteCache(l.fs, cachePath); err != nil {
		l.logger.Warn("Writing compiled trace failed", log.Err(err))
	} else {
		l.logger.Debug("Wrote compiled trace", log.String("file", cachePath))
	}
	return ix, nil
}

// ParseTrace parses the trace text of a dump directory without using the
// compiled cache.
func (l *Loader) ParseTrace(ctx context.Context, dir string) (*trace.Index, error) {
	path := filepath.Join(dir, config.TraceFile)
	file, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	ix, err := trace.Build(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("building trace index from %s: %w", path, err)
	}

	l.logger.Debug("Parsed trace",
		log.String("file", path),
		log.Int("steps", ix.Len()),
		log.Int("entries", len(ix.Entries())))
	return ix, nil
}

// LoadSnapshot loads the memory snapshot of a dump directory, preferring
// binary region files over a text dump. Returns memory.ErrNoSnapshot if the
// directory contains neither.
func (l *Loader) LoadSnapshot(dir string) (*memory.Snapshot, error) {
	var (
		snapshot *memory.Snapshot
		err      error
	)

	switch l.detector.Detect(dir) {
	case detector.Binary:
		snapshot, err = memory.LoadBinaryDir(l.fs, filepath.Join(dir, config.MemoryDir))
	case detector.Text:
		snapshot, err = memory.LoadText(l.fs, filepath.Join(dir, config.MemoryText))
	default:
		return nil, fmt.Errorf("%w in %s", memory.ErrNoSnapshot, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("loading memory snapshot: %w", err)
	}

	l.logger.Debug("Loaded memory snapshot",
		log.String("dir", dir),
		log.Int("regions", len(snapshot.Regions())),
		log.Int("bytes", snapshot.Size()))
	return snapshot, nil
}

// LoadSnapshotOrEmpty loads the memory snapshot of a dump directory and falls
// back to an empty snapshot if it can not be loaded.
func (l *Loader) LoadSnapshotOrEmpty(dir string) *memory.Snapshot {
	snapshot, err := l.LoadSnapshot(dir)
	if err == nil {
		return snapshot
	}

	if errors.Is(err, memory.ErrNoSnapshot) {
		l.logger.Debug("No memory snapshot found", log.String("dir", dir))
	} else {
		l.logger.Warn("Memory snapshot not usable, memory content will be unknown", log.Err(err))
	}
	return memory.Empty()
}

// ReadOffset returns the display offset stored in the offset file of a dump
// directory, or 0 if the file does not exist or is malformed.
func (l *Loader) ReadOffset(dir string) uint32 {
	path := filepath.Join(dir, config.OffsetFile)
	file, err := l.fs.Open(path)
	if err != nil {
		return 0
	}
	defer func() { _ = file.Close() }()

	line, err := bufio.NewReader(file).ReadString('\n')
	if err != nil && line == "" {
		return 0
	}

	value := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(line)), "0x")
	offset, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		l.logger.Warn("Ignoring malformed offset file",
			log.String("file", path),
			log.Err(err))
		return 0
	}
	return uint32(offset)
}
