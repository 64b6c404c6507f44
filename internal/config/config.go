// Package config handles application configuration and setup
package config

import (
	"github.com/retroenv/retrogolib/log"
)

// File and directory names inside of a dump directory.
const (
	TraceFile  = "opcode.log" // trace text written by the emulator
	CacheFile  = "opcode.bin" // compiled trace cache
	MemoryDir  = "memory"     // binary memory regions, one file per region
	MemoryText = "mem"        // memory dump printed by the emulator debugger
	OffsetFile = "offset"     // hex value subtracted from displayed addresses
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
