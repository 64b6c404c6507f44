package step

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// line prefixes of a record block, in the order they are written.
const (
	prefixData0    = "  D0 "
	prefixData4    = "  D4 "
	prefixAddress0 = "  A0 "
	prefixAddress4 = "  A4 "
	prefixUSP      = "USP  "
	prefixCACR     = "CACR "
	prefixBits     = "T="
	prefixPC       = "" // the line following the status bits, whatever it starts with
	prefixNextPC   = "Next PC"
)

var blockSequence = [...]string{
	prefixData0, prefixData4,
	prefixAddress0, prefixAddress4,
	prefixUSP, prefixCACR,
	prefixBits, prefixPC, prefixNextPC,
}

const (
	registerStride = 14 // distance between two register values in a line
	registerColumn = 5  // column of the first register value
)

// Reader decodes records from trace text.
// Lines that do not match the next expected line of a record block are skipped.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a record reader for the trace text.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r: bufio.NewReaderSize(r, 64*1024),
	}
}

// Next decodes the next record. It returns io.EOF once the input is exhausted,
// also when the input ends inside a partial record block.
// Missing, short or malformed fields decode as zero.
func (rd *Reader) Next() (Record, error) {
	var lines [len(blockSequence)]string
	for i, prefix := range blockSequence {
		line, err := rd.lineWithPrefix(prefix)
		if err != nil {
			return Record{}, err
		}
		lines[i] = line
	}
	return decode(lines), nil
}

func (rd *Reader) lineWithPrefix(prefix string) (string, error) {
	for {
		line, err := rd.r.ReadString('\n')
		if line == "" && err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("reading trace line: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, prefix) {
			return line, nil
		}
	}
}

func decode(lines [len(blockSequence)]string) Record {
	var rec Record
	decodeRegisters(rec.Data[:4], lines[0])
	decodeRegisters(rec.Data[4:], lines[1])
	decodeRegisters(rec.Address[:4], lines[2])
	decodeRegisters(rec.Address[4:], lines[3])

	usp := lines[4]
	rec.USP = hexField(usp, 5, 8)
	rec.ISP = hexField(usp, 19, 8)
	rec.SFC = hexField(usp, 33, 8)
	rec.DFC = hexField(usp, 47, 8)

	cacr := lines[5]
	rec.CACR = hexField(cacr, 5, 8)
	rec.VBR = hexField(cacr, 19, 8)
	rec.CAAR = hexField(cacr, 33, 8)
	rec.MSP = hexField(cacr, 47, 8)

	bits := lines[6]
	rec.T = uint8(hexField(bits, 2, 2))
	rec.S = flagField(bits, 7)
	rec.M = flagField(bits, 11)
	rec.X = flagField(bits, 15)
	rec.N = flagField(bits, 19)
	rec.Z = flagField(bits, 23)
	rec.V = flagField(bits, 27)
	rec.C = flagField(bits, 31)
	rec.IMask = uint8(hexField(bits, 39, 1))
	rec.STP = flagField(bits, 45)

	pc := lines[7]
	rec.PC = hexField(pc, 0, 8)
	fillPadded(rec.Opcode[:], field(pc, 9, OpcodeSize))
	fillPadded(rec.Note[:], field(pc, 34, NoteSize))

	rec.NextPC = hexField(lines[8], 9, 8)
	return rec
}

func decodeRegisters(dst []uint32, line string) {
	for i := range dst {
		dst[i] = hexField(line, registerColumn+i*registerStride, 8)
	}
}

// field returns up to n bytes of line starting at column start.
func field(line string, start, n int) string {
	if start >= len(line) {
		return ""
	}
	end := min(start+n, len(line))
	return line[start:end]
}

// hexField parses the n byte wide hex field at column start, a short or
// malformed field results in 0.
func hexField(line string, start, n int) uint32 {
	s := field(line, start, n)
	if len(s) != n {
		return 0
	}
	value, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0
	}
	return uint32(value)
}

func flagField(line string, column int) bool {
	return field(line, column, 1) == "1"
}

func fillPadded(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = ' '
	}
}
