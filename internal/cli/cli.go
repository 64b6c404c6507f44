// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/uaetrace/internal/options"
)

// ParseFlags parses command line flags and the command with its arguments.
func ParseFlags() (options.Program, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || len(args) == 0 {
		return opts, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, err
	}

	cmd, err := parseCommand(args[0], args[1:])
	if err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			usageErr.flags = flags
		}
		return opts, err
	}
	opts.Command = cmd

	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	if e.msg != "" {
		fmt.Printf("%s\n\n", e.msg)
	}
	fmt.Printf("usage: uaetrace [options] <command> <arguments>\n\n")
	fmt.Print(commandUsage)
	fmt.Println()
	if e.flags != nil {
		e.flags.PrintDefaults()
		fmt.Println()
	}
}

const commandUsage = `commands:
  search  <dir> <value> [<dir> <value>]...  search register changes to value (decimal or 0x hex),
                                            multiple dumps narrow the result to common pcs
  memlist <dir> <pc> <count>                print debugger commands to dump memory used before pc
  inspect <dir> <pc> <count>                print the steps leading to pc
  ghidra  <dir> <pc> <count>                print a Ghidra instruction search pattern starting at pc
  stack   <dir> <pc>                        print the call hierarchy leading to pc
  calls   <dir>                             print the complete call hierarchy
  starts  <dir>                             print the unique entry pcs
  mem     <dir>                             print the captured memory regions
  mapdata <dir> <asset dir>                 locate asset files in the captured memory
  diff    <group> <group> [<group>]...      print addresses distinguishing groups of dumps,
                                            a group is a comma separated list of dump dirs

<dir> is a dump directory containing opcode.log, pc is hex and count is decimal.
`

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && len(arg) > 1 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after command, please pass all options before the command", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	switch opts.Size {
	case 1, 2, 4:
		return nil
	default:
		return fmt.Errorf("unsupported value size: %d. Valid options: 1, 2, 4", opts.Size)
	}
}

// argCounts maps a command to its exact number of arguments, commands with
// a variable number of arguments are validated separately.
var argCounts = map[string]int{
	options.Memlist: 3,
	options.Inspect: 3,
	options.Ghidra:  3,
	options.Stack:   2,
	options.Calls:   1,
	options.Starts:  1,
	options.Mem:     1,
	options.MapData: 2,
}

func parseCommand(name string, args []string) (options.Command, error) {
	cmd := options.Command{Name: strings.ToLower(name)}

	switch cmd.Name {
	case options.Search:
		if len(args) == 0 || len(args)%2 != 0 {
			return cmd, &UsageError{msg: "search expects pairs of dump directory and value"}
		}
		for i := 0; i < len(args); i += 2 {
			value, err := strconv.ParseUint(args[i+1], 0, 32)
			if err != nil {
				return cmd, fmt.Errorf("parsing search value '%s': %w", args[i+1], err)
			}
			cmd.Dirs = append(cmd.Dirs, args[i])
			cmd.Values = append(cmd.Values, uint32(value))
		}
		return cmd, nil

	case options.Diff:
		if len(args) < 2 {
			return cmd, &UsageError{msg: "diff expects at least two groups of dump directories"}
		}
		for _, arg := range args {
			group := strings.Split(arg, ",")
			cmd.Groups = append(cmd.Groups, group)
			cmd.Dirs = append(cmd.Dirs, group...)
		}
		return cmd, nil
	}

	count, ok := argCounts[cmd.Name]
	if !ok {
		return cmd, &UsageError{msg: fmt.Sprintf("unknown command: %s", name)}
	}
	if len(args) != count {
		return cmd, &UsageError{msg: fmt.Sprintf("%s expects %d arguments, got %d", cmd.Name, count, len(args))}
	}
	cmd.Dirs = []string{args[0]}

	switch cmd.Name {
	case options.MapData:
		cmd.AssetDir = args[1]
		return cmd, nil
	case options.Calls, options.Starts, options.Mem:
		return cmd, nil
	}

	pc, err := ParseAddress(args[1])
	if err != nil {
		return cmd, err
	}
	cmd.PC = pc

	if count == 3 {
		cmd.Count, err = strconv.Atoi(args[2])
		if err != nil || cmd.Count < 0 {
			return cmd, fmt.Errorf("invalid step count '%s'", args[2])
		}
	}
	return cmd, nil
}

// ParseAddress parses a hex address with optional 0x or $ prefix.
func ParseAddress(s string) (uint32, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	trimmed = strings.TrimPrefix(trimmed, "$")
	value, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing address '%s': %w", s, err)
	}
	return uint32(value), nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Output, "o", "", "name of the output file, printed on console if no name given")
	flags.StringVar(&opts.Symbols, "symbols", "", "JSON symbol table file with address and name entries used for display")
	flags.StringVar(&opts.Dot, "dot", "", "write the call graph of the calls command to this DOT file")
	flags.IntVar(&opts.Size, "size", options.DefaultValueSize, "value size in bytes for the search command (1/2/4)")
	flags.BoolVar(&opts.Offset, "offset", false, "subtract the hex value in the dump offset file from displayed addresses")
	flags.BoolVar(&opts.Compact, "compact", false, "print one line per step for the inspect command")
	flags.BoolVar(&opts.Raw, "raw", false, "print the full step records for the inspect command")
	flags.BoolVar(&opts.JSON, "json", false, "output results as JSON")
	flags.BoolVar(&opts.Rebuild, "rebuild", false, "ignore and rewrite the compiled trace cache")
	flags.BoolVar(&opts.Verify, "verify", false, "verify the compiled trace cache against the trace text")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
