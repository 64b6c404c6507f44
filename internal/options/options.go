// Package options contains the program options.
package options

// Commands supported by the program.
const (
	Search  = "search"
	Memlist = "memlist"
	Inspect = "inspect"
	Ghidra  = "ghidra"
	Stack   = "stack"
	Calls   = "calls"
	Starts  = "starts"
	Mem     = "mem"
	MapData = "mapdata"
	Diff    = "diff"
)

// DefaultValueSize is the default register value size in bytes used by the
// register change search.
const DefaultValueSize = 2

// Parameters contains file path options.
type Parameters struct {
	Output  string `flag:"o" usage:"output file (default: stdout)"`
	Symbols string `flag:"symbols" usage:"JSON symbol table file"`
	Dot     string `flag:"dot" usage:"write the call graph as DOT file (calls command)"`
}

// Flags contains behavior options.
type Flags struct {
	Size    int  `flag:"size" usage:"value size in bytes for the search command: 1, 2 or 4" default:"2"`
	Offset  bool `flag:"offset" usage:"subtract the value of the dump offset file from displayed addresses"`
	Compact bool `flag:"compact" usage:"one line per step for the inspect command"`
	Raw     bool `flag:"raw" usage:"print the full step records for the inspect command"`
	JSON    bool `flag:"json" usage:"output results as JSON"`
	Rebuild bool `flag:"rebuild" usage:"rebuild the compiled trace cache"`
	Verify  bool `flag:"verify" usage:"verify the compiled trace cache against the trace text"`
	Debug   bool `flag:"debug" usage:"enable debug logging"`
	Quiet   bool `flag:"q" usage:"quiet mode"`
}

// Command contains the parsed command and its positional arguments.
type Command struct {
	Name     string
	Dirs     []string   // dump directories, one per search value for the search command
	Values   []uint32   // search values
	Groups   [][]string // dump directory groups of the diff command
	PC       uint32
	Count    int
	AssetDir string
}

// Program options.
type Program struct {
	Parameters
	Flags
	Command
}
