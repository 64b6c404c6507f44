// Package writer renders query results as plain text or JSON.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/uaetrace/internal/memory"
	"github.com/retroenv/uaetrace/internal/step"
	"github.com/retroenv/uaetrace/internal/symbols"
	"github.com/retroenv/uaetrace/internal/trace"
)

// indentWidth is the number of spaces used per call depth level.
const indentWidth = 2

// Options of the writer.
type Options struct {
	Offset   uint32           // subtracted from displayed trace addresses
	Resolver symbols.Resolver // optional symbol names of function entries
	JSON     bool
	Compact  bool // one line per inspected step
	Raw      bool // full step records for inspected steps
}

// Writer renders query results.
type Writer struct {
	options Options
	writer  io.Writer
}

// New creates a new writer.
func New(writer io.Writer, options Options) *Writer {
	return &Writer{
		options: options,
		writer:  writer,
	}
}

// jsonResult wraps results in JSON mode. Addresses are trace addresses, the
// display offset is included to allow translating them.
type jsonResult struct {
	Offset uint32 `json:"offset"`
	Result any    `json:"result"`
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonResult{Offset: w.options.Offset, Result: v}); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

func (w *Writer) writeLines(lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w.writer, line); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}
	return nil
}

// address formats a trace address relative to the display offset.
func (w *Writer) address(addr uint32) string {
	return fmt.Sprintf("%08X", addr-w.options.Offset)
}

// label returns the symbol name of an address prefixed by a space, or an
// empty string if it is unknown.
func (w *Writer) label(addr uint32) string {
	if name := symbols.Label(w.options.Resolver, addr); name != "" {
		return " <" + name + ">"
	}
	return ""
}

func indent(depth int) string {
	return strings.Repeat(" ", depth*indentWidth)
}

// Findings writes register change search results sorted by pc.
func (w *Writer) Findings(findings trace.Findings) error {
	if w.options.JSON {
		return w.writeJSON(findings)
	}

	lines := make([]string, 0, len(findings))
	for _, pc := range findings.PCs() {
		lines = append(lines, w.address(pc)+findings[pc])
	}
	return w.writeLines(lines)
}

// MemRanges writes emulator debugger commands to dump the memory ranges.
func (w *Writer) MemRanges(ranges []trace.MemRange) error {
	if w.options.JSON {
		return w.writeJSON(ranges)
	}

	lines := make([]string, 0, len(ranges))
	for _, r := range ranges {
		lines = append(lines, r.Command())
	}
	return w.writeLines(lines)
}

// Inspect writes the inspected steps. steps is used for the raw output and
// can be nil otherwise.
func (w *Writer) Inspect(lines []trace.InspectLine, steps func(pos int) *step.Record) error {
	if w.options.JSON {
		return w.writeJSON(lines)
	}

	var out []string
	for _, line := range lines {
		switch {
		case w.options.Compact:
			out = append(out, w.compactLine(line))
		case w.options.Raw && steps != nil:
			out = append(out, strings.TrimRight(steps(line.Index).String(), "\n"))
		default:
			out = append(out, w.inspectBlock(line)...)
		}
	}
	return w.writeLines(out)
}

func (w *Writer) compactLine(line trace.InspectLine) string {
	var sb strings.Builder
	sb.WriteString(indent(line.Depth))
	sb.WriteString(w.address(line.PC))
	sb.WriteString(" ")
	sb.WriteString(line.Note)
	for _, reg := range line.Registers {
		fmt.Fprintf(&sb, " D%d=%08X", reg.Register, reg.New)
	}
	for _, ref := range line.Memory {
		fmt.Fprintf(&sb, " (A%d)%s", ref.Register, ref.Content)
	}
	if line.Countdown >= 0 {
		fmt.Fprintf(&sb, " [%d]", line.Countdown)
	}
	sb.WriteString(w.label(line.PC))
	return sb.String()
}

func (w *Writer) inspectBlock(line trace.InspectLine) []string {
	prefix := indent(line.Depth)
	header := fmt.Sprintf("%s%s %s%s", prefix, w.address(line.PC), line.Note, w.label(line.PC))
	if line.Countdown >= 0 {
		header += fmt.Sprintf(" [%d]", line.Countdown)
	}

	out := []string{header}
	for _, reg := range line.Registers {
		out = append(out, fmt.Sprintf("%s  D%d: %08X -> %08X", prefix, reg.Register, reg.Old, reg.New))
	}
	for _, ref := range line.Memory {
		out = append(out, fmt.Sprintf("%s  A%d: %s", prefix, ref.Register, ref.Content))
	}
	return out
}

// Stack writes the call hierarchy leading to a pc, outermost function first.
func (w *Writer) Stack(frames []trace.Frame) error {
	if w.options.JSON {
		return w.writeJSON(frames)
	}

	lines := make([]string, 0, len(frames))
	for _, frame := range frames {
		lines = append(lines, fmt.Sprintf("%s%s %s%s",
			indent(frame.Depth), w.address(frame.PC), frame.Note, w.label(frame.PC)))
	}
	return w.writeLines(lines)
}

// Calls writes the complete call hierarchy of a trace.
func (w *Writer) Calls(calls []trace.Call) error {
	if w.options.JSON {
		return w.writeJSON(calls)
	}

	lines := make([]string, 0, len(calls))
	for _, call := range calls {
		line := fmt.Sprintf("%s%s %s", indent(call.Depth), w.address(call.PC), call.Note)
		if call.Target != 0 {
			line += " -> " + w.address(call.Target) + w.label(call.Target)
		}
		lines = append(lines, line)
	}
	return w.writeLines(lines)
}

// Text writes lines of text, like a Ghidra search pattern.
func (w *Writer) Text(lines []string) error {
	if w.options.JSON {
		return w.writeJSON(lines)
	}
	return w.writeLines(lines)
}

// Addresses writes trace addresses in the given order.
func (w *Writer) Addresses(addresses []uint32) error {
	if w.options.JSON {
		return w.writeJSON(addresses)
	}

	lines := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		lines = append(lines, w.address(addr)+w.label(addr))
	}
	return w.writeLines(lines)
}

// Regions writes the captured memory regions of a snapshot.
func (w *Writer) Regions(regions []memory.Region) error {
	if w.options.JSON {
		type region struct {
			From   uint32 `json:"from"`
			Length int    `json:"length"`
		}
		out := make([]region, 0, len(regions))
		for _, r := range regions {
			out = append(out, region{From: r.From, Length: len(r.Data)})
		}
		return w.writeJSON(out)
	}

	lines := make([]string, 0, len(regions))
	for _, r := range regions {
		lines = append(lines, r.String())
	}
	return w.writeLines(lines)
}

// Mappings writes the found locations of asset files.
func (w *Writer) Mappings(mappings []memory.Mapping) error {
	if w.options.JSON {
		return w.writeJSON(mappings)
	}

	lines := make([]string, 0, len(mappings))
	for _, m := range mappings {
		lines = append(lines, fmt.Sprintf("%s %08X %08X %d", m.Path, m.Address, m.Translated, m.Length))
	}
	return w.writeLines(lines)
}

// MemoryAddresses writes a set of memory addresses in ascending order.
// Memory addresses are not translated by the display offset.
func (w *Writer) MemoryAddresses(addresses set.Set[uint32]) error {
	sorted := make([]uint32, 0, len(addresses))
	for addr := range addresses {
		sorted = append(sorted, addr)
	}
	slices.Sort(sorted)

	if w.options.JSON {
		return w.writeJSON(sorted)
	}

	lines := make([]string, 0, len(sorted))
	for _, addr := range sorted {
		lines = append(lines, fmt.Sprintf("%08X", addr))
	}
	return w.writeLines(lines)
}
