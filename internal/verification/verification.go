// Package verification verifies that a compiled trace cache still matches
// the trace text it was built from.
package verification

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/uaetrace/internal/config"
	"github.com/retroenv/uaetrace/internal/loader"
	"github.com/retroenv/uaetrace/internal/trace"
	"github.com/spf13/afero"
)

// ErrMismatch is returned when the compiled trace differs from the trace text.
var ErrMismatch = errors.New("compiled trace does not match trace text")

// maxReportedMismatches is the number of mismatching steps that are logged.
const maxReportedMismatches = 10

// VerifyCache parses the trace text of a dump directory and compares it with
// the compiled cache.
func VerifyCache(ctx context.Context, logger *log.Logger, fs afero.Fs, dir string) error {
	cachePath := filepath.Join(dir, config.CacheFile)
	cached, err := trace.ReadCache(fs, cachePath)
	if err != nil {
		return fmt.Errorf("reading compiled trace: %w", err)
	}

	parsed, err := loader.New(logger, fs).ParseTrace(ctx, dir)
	if err != nil {
		return fmt.Errorf("parsing trace text: %w", err)
	}

	if err := compareTraces(logger, parsed, cached); err != nil {
		return fmt.Errorf("%w: %w", ErrMismatch, err)
	}
	return nil
}

func compareTraces(logger *log.Logger, expected, got *trace.Index) error {
	if expected.Len() != got.Len() {
		return fmt.Errorf("mismatched step counts, %d != %d", expected.Len(), got.Len())
	}

	var diffs uint64
	for i := range expected.Len() {
		want, have := expected.Step(i), got.Step(i)
		if *want == *have {
			continue
		}

		diffs++
		if diffs <= maxReportedMismatches {
			logger.Error("Step mismatch",
				log.Int("step", i),
				log.Hex("expected_pc", want.PC),
				log.Hex("got_pc", have.PC))
		}
	}
	if diffs > 0 {
		return fmt.Errorf("%d step mismatches", diffs)
	}

	if err := compareEntries(expected.Entries(), got.Entries()); err != nil {
		return fmt.Errorf("entry index mismatch: %w", err)
	}
	return nil
}

func compareEntries(expected, got map[uint32]int) error {
	if len(expected) != len(got) {
		return fmt.Errorf("mismatched entry counts, %d != %d", len(expected), len(got))
	}
	for pc, pos := range expected {
		gotPos, ok := got[pc]
		if !ok {
			return fmt.Errorf("entry %08x expected at step %d is missing", pc, pos)
		}
		if gotPos != pos {
			return fmt.Errorf("entry %08x expected at step %d but got %d", pc, pos, gotPos)
		}
	}
	return nil
}
