// Package pipeline orchestrates loading dump directories and running queries.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/uaetrace/internal/callgraph"
	"github.com/retroenv/uaetrace/internal/loader"
	"github.com/retroenv/uaetrace/internal/memory"
	"github.com/retroenv/uaetrace/internal/options"
	"github.com/retroenv/uaetrace/internal/symbols"
	"github.com/retroenv/uaetrace/internal/trace"
	"github.com/retroenv/uaetrace/internal/verification"
	"github.com/retroenv/uaetrace/internal/writer"
	"github.com/spf13/afero"
)

// Pipeline runs a query command against dump directories.
type Pipeline struct {
	logger *log.Logger
	fs     afero.Fs
	loader *loader.Loader
}

// New creates a new query pipeline.
func New(logger *log.Logger, fs afero.Fs) *Pipeline {
	return &Pipeline{
		logger: logger,
		fs:     fs,
		loader: loader.New(logger, fs),
	}
}

// Execute runs the command of the options and writes its result to output.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, output io.Writer) error {
	if len(opts.Dirs) == 0 {
		return fmt.Errorf("no dump directory given for command '%s'", opts.Name)
	}

	table, err := p.loadSymbols(opts)
	if err != nil {
		return err
	}

	var offset uint32
	if opts.Offset {
		offset = p.loader.ReadOffset(opts.Dirs[0])
	}

	w := writer.New(output, writer.Options{
		Offset:   offset,
		Resolver: table,
		JSON:     opts.JSON,
		Compact:  opts.Compact,
		Raw:      opts.Raw,
	})

	if err := p.run(ctx, opts, table, w); err != nil {
		return err
	}

	if table != nil {
		p.logger.Debug("Symbols used in output",
			log.Int("used", len(table.Used())),
			log.Int("symbols", table.Len()))
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, opts options.Program, table *symbols.Table, w *writer.Writer) error {
	switch opts.Name {
	case options.Search:
		return p.search(ctx, opts, w)
	case options.Mem:
		return p.regions(opts, w)
	case options.MapData:
		return p.mapData(opts, w)
	case options.Diff:
		return p.diff(opts, w)
	}

	ix, err := p.loadTrace(ctx, opts, opts.Dirs[0])
	if err != nil {
		return err
	}
	return p.query(opts, ix, table, w)
}

// query runs a command that operates on the trace of a single dump directory.
func (p *Pipeline) query(opts options.Program, ix *trace.Index, table *symbols.Table, w *writer.Writer) error {
	switch opts.Name {
	case options.Memlist:
		ranges, err := ix.MemlistCommands(opts.PC, opts.Count)
		if err != nil {
			return fmt.Errorf("listing memory: %w", err)
		}
		return w.MemRanges(ranges)

	case options.Inspect:
		mem := p.loader.LoadSnapshotOrEmpty(opts.Dirs[0])
		lines, err := ix.Inspect(mem, opts.PC, opts.Count)
		if err != nil {
			return fmt.Errorf("inspecting trace: %w", err)
		}
		return w.Inspect(lines, ix.Step)

	case options.Ghidra:
		lines, err := ix.GhidraSearch(opts.PC, opts.Count)
		if err != nil {
			return fmt.Errorf("creating ghidra search pattern: %w", err)
		}
		return w.Text(lines)

	case options.Stack:
		frames, err := ix.Stack(opts.PC)
		if err != nil {
			return fmt.Errorf("creating call stack: %w", err)
		}
		return w.Stack(frames)

	case options.Calls:
		calls := ix.Calls()
		if opts.Dot != "" {
			if err := p.writeCallGraph(opts.Dot, calls, table); err != nil {
				return err
			}
		}
		return w.Calls(calls)

	case options.Starts:
		return w.Addresses(ix.StartingPCs())

	default:
		return fmt.Errorf("unsupported command '%s'", opts.Name)
	}
}

// loadTrace loads the trace of a dump directory and optionally verifies the
// compiled cache against the trace text.
func (p *Pipeline) loadTrace(ctx context.Context, opts options.Program, dir string) (*trace.Index, error) {
	ix, err := p.loader.LoadTrace(ctx, dir, opts.Rebuild)
	if err != nil {
		return nil, fmt.Errorf("loading trace: %w", err)
	}

	if opts.Verify {
		if err := verification.VerifyCache(ctx, p.logger, p.fs, dir); err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful", log.String("dir", dir))
	}
	return ix, nil
}

func (p *Pipeline) loadSymbols(opts options.Program) (*symbols.Table, error) {
	if opts.Symbols == "" {
		return nil, nil
	}

	table, err := symbols.Load(p.fs, opts.Symbols)
	if err != nil {
		return nil, fmt.Errorf("loading symbols: %w", err)
	}
	p.logger.Debug("Loaded symbols", log.String("file", opts.Symbols), log.Int("symbols", table.Len()))
	return table, nil
}

// search runs the register change search for every dump directory and its
// value, each trace narrowing the findings of the previous ones.
func (p *Pipeline) search(ctx context.Context, opts options.Program, w *writer.Writer) error {
	var findings trace.Findings

	for i, dir := range opts.Dirs {
		ix, err := p.loadTrace(ctx, opts, dir)
		if err != nil {
			return err
		}

		findings, err = ix.SearchRegisterChange(ctx, opts.Values[i], opts.Size, findings)
		if err != nil {
			return fmt.Errorf("searching %s: %w", dir, err)
		}
		p.logger.Debug("Searched trace",
			log.String("dir", dir),
			log.Hex("value", opts.Values[i]),
			log.Int("findings", len(findings)))
	}

	return w.Findings(findings)
}

func (p *Pipeline) regions(opts options.Program, w *writer.Writer) error {
	snapshot, err := p.loader.LoadSnapshot(opts.Dirs[0])
	if err != nil {
		return err
	}
	return w.Regions(snapshot.Regions())
}

func (p *Pipeline) mapData(opts options.Program, w *writer.Writer) error {
	snapshot, err := p.loader.LoadSnapshot(opts.Dirs[0])
	if err != nil {
		return err
	}

	offset := p.loader.ReadOffset(opts.Dirs[0])
	mappings, err := snapshot.MapData(p.fs, opts.AssetDir, offset)
	if err != nil {
		return fmt.Errorf("mapping asset data: %w", err)
	}
	return w.Mappings(mappings)
}

// diff loads the snapshots of all groups and prints the addresses whose
// content is equal inside of each group but differs between groups.
func (p *Pipeline) diff(opts options.Program, w *writer.Writer) error {
	groups := make([][]*memory.Snapshot, 0, len(opts.Groups))
	for _, dirs := range opts.Groups {
		group := make([]*memory.Snapshot, 0, len(dirs))
		for _, dir := range dirs {
			snapshot, err := p.loader.LoadSnapshot(dir)
			if err != nil {
				return err
			}
			group = append(group, snapshot)
		}
		groups = append(groups, group)
	}

	addresses := memory.GroupDiff(groups)
	p.logger.Debug("Compared memory snapshots",
		log.Int("groups", len(groups)),
		log.Int("addresses", len(addresses)))
	return w.MemoryAddresses(addresses)
}

func (p *Pipeline) writeCallGraph(path string, calls []trace.Call, table *symbols.Table) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var resolver symbols.Resolver
	if table != nil {
		resolver = table
	}

	dot := callgraph.DOT(calls, resolver, name)
	if err := afero.WriteFile(p.fs, path, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("writing call graph %s: %w", path, err)
	}
	p.logger.Debug("Wrote call graph", log.String("file", path))
	return nil
}
