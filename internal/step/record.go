// Package step decodes the per-instruction CPU state blocks of an emulator
// trace log into typed records and classifies them.
package step

import (
	"fmt"
	"strings"
)

const (
	// OpcodeSize is the fixed width of the instruction word field.
	OpcodeSize = 24
	// NoteSize is the fixed width of the disassembly field.
	NoteSize = 64
)

// Record is the full CPU state of one executed 68k instruction.
//
// Opcode holds the instruction words as printed by the emulator and Note the
// disassembled instruction text. Both are always space padded to their fixed
// width, which allows classification by comparing bytes at fixed offsets.
type Record struct {
	Data    [8]uint32
	Address [8]uint32

	USP uint32
	ISP uint32
	SFC uint32
	DFC uint32

	CACR uint32
	VBR  uint32
	CAAR uint32
	MSP  uint32

	T     uint8 // trace mode bits
	S     bool
	M     bool
	X     bool
	N     bool
	Z     bool
	V     bool
	C     bool
	IMask uint8
	STP   bool

	PC     uint32
	Opcode [OpcodeSize]byte
	Note   [NoteSize]byte
	NextPC uint32
}

// OpcodeText returns the instruction words without padding.
func (r *Record) OpcodeText() string {
	return strings.TrimSpace(string(r.Opcode[:]))
}

// NoteText returns the disassembly without trailing padding.
func (r *Record) NoteText() string {
	return strings.TrimRight(string(r.Note[:]), " ")
}

// String returns the record in the layout written by the emulator.
func (r *Record) String() string {
	var sb strings.Builder
	writeRegisterLine(&sb, 'D', 0, r.Data[:4])
	writeRegisterLine(&sb, 'D', 4, r.Data[4:])
	writeRegisterLine(&sb, 'A', 0, r.Address[:4])
	writeRegisterLine(&sb, 'A', 4, r.Address[4:])
	fmt.Fprintf(&sb, "USP  %08x ISP  %08x SFC  %08x DFC  %08x\n", r.USP, r.ISP, r.SFC, r.DFC)
	fmt.Fprintf(&sb, "CACR %08x VBR  %08x CAAR %08x MSP  %08x\n", r.CACR, r.VBR, r.CAAR, r.MSP)
	fmt.Fprintf(&sb, "T=%02x S=%d M=%d X=%d N=%d Z=%d V=%d C=%d IMASK=%d STP=%d\n",
		r.T, bit(r.S), bit(r.M), bit(r.X), bit(r.N), bit(r.Z), bit(r.V), bit(r.C), r.IMask, bit(r.STP))
	fmt.Fprintf(&sb, "%08x %s %s\n", r.PC, r.Opcode[:], r.Note[:])
	fmt.Fprintf(&sb, "Next PC: %08x\n", r.NextPC)
	return sb.String()
}

func writeRegisterLine(sb *strings.Builder, kind byte, first int, values []uint32) {
	for i, value := range values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(sb, "  %c%d %08x", kind, first+i, value)
	}
	sb.WriteByte('\n')
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
