package step

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func testRecord(pc, nextPC uint32, opcode, note string) Record {
	rec := Record{PC: pc, NextPC: nextPC}
	fillPadded(rec.Opcode[:], opcode)
	fillPadded(rec.Note[:], note)
	return rec
}

func TestRecordRoundTrip(t *testing.T) {
	rec := testRecord(0x00fc0d14, 0x00fc0d1a, "4eb9 00fc 0f5e", "JSR.L #$00fc0f5e")
	for i := range rec.Data {
		rec.Data[i] = 0x11111111 * uint32(i)
		rec.Address[i] = 0x00c00000 + uint32(i)*0x100
	}
	rec.USP = 0x00c7fff0
	rec.ISP = 0x00c80000
	rec.SFC = 1
	rec.DFC = 2
	rec.CACR = 3
	rec.VBR = 0x00000100
	rec.CAAR = 4
	rec.MSP = 0xdeadbeef
	rec.T = 0x2
	rec.S = true
	rec.X = true
	rec.Z = true
	rec.C = true
	rec.IMask = 7
	rec.STP = true

	rd := NewReader(strings.NewReader(rec.String()))
	got, err := rd.Next()
	assert.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = rd.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReaderSkipsUnrelatedLines(t *testing.T) {
	first := testRecord(0x1000, 0x1002, "4e71", "NOP")
	second := testRecord(0x1002, 0x1004, "4e75", "RTS")

	text := "debugger banner\n" + first.String() + ">t\nCycles: 4 Chip, 8 CPU.\n" + second.String()
	rd := NewReader(strings.NewReader(text))

	got, err := rd.Next()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x1000), got.PC)
	assert.Equal(t, "NOP", got.NoteText())

	got, err = rd.Next()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x1002), got.PC)
	assert.Equal(t, "4e75", got.OpcodeText())
}

func TestReaderMalformedFieldsDefaultToZero(t *testing.T) {
	text := strings.Join([]string{
		"  D0 zzzzzzzz   D1 00000001",
		"  D4 0000",
		"  A0 00000010   A1 00000011   A2 00000012   A3 00000013",
		"  A4 00000014   A5 00000015   A6 00000016   A7 00000017",
		"USP  00000020",
		"CACR ",
		"T=0g S=1",
		"00001000 4e71",
		"Next PC: 00001002",
	}, "\n")

	rec, err := NewReader(strings.NewReader(text)).Next()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), rec.Data[0])
	assert.Equal(t, uint32(1), rec.Data[1])
	assert.Equal(t, uint32(0), rec.Data[2])
	assert.Equal(t, uint32(0), rec.Data[4])
	assert.Equal(t, uint32(0x17), rec.Address[7])
	assert.Equal(t, uint32(0x20), rec.USP)
	assert.Equal(t, uint32(0), rec.ISP)
	assert.Equal(t, uint32(0), rec.CACR)
	assert.Equal(t, uint8(0), rec.T)
	assert.True(t, rec.S)
	assert.Equal(t, uint32(0x1000), rec.PC)
	assert.Equal(t, "4e71", rec.OpcodeText())
	assert.Equal(t, "", rec.NoteText())
	assert.Equal(t, byte(' '), rec.Note[NoteSize-1])
	assert.Equal(t, uint32(0x1002), rec.NextPC)
}

func TestReaderPartialRecordIsEndOfInput(t *testing.T) {
	rec := testRecord(0x1000, 0x1002, "4e71", "NOP")
	text := rec.String()
	text = text[:strings.Index(text, "T=")]

	_, err := NewReader(strings.NewReader(text)).Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestDepthDelta(t *testing.T) {
	tests := []struct {
		note string
		want int
	}{
		{"JSR.L #$00fc0f5e", 1},
		{"BSR.B #$fe", 1},
		{"RTS", -1},
		{"RTR", -1},
		{"RTE", 0},
		{"MOVE.L D0,D1", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			rec := testRecord(0, 0, "", tt.note)
			assert.Equal(t, tt.want, rec.DepthDelta())
		})
	}
}

func TestRegisterChangedTo(t *testing.T) {
	prev := Record{}
	prev.Data[0] = 0x00010005
	prev.Data[1] = 0x00000004
	prev.Data[2] = 0x12340005

	cur := prev
	cur.Data[0] = 0x00020005 // upper word changed, lower word already 5
	cur.Data[1] = 0xffff0005 // lower word changed to 5
	cur.Data[3] = 0x00000005 // changed to 5

	assert.Equal(t, uint8(0b1010), cur.RegisterChangedTo(&prev, 5, SizeMask(2)))
	assert.Equal(t, uint8(0b1000), cur.RegisterChangedTo(&prev, 5, SizeMask(4)))
	assert.Equal(t, uint8(0b1010), cur.RegisterChangedTo(&prev, 5, SizeMask(1)))
}

func TestRegisterChangedToIgnoresUnchangedTarget(t *testing.T) {
	prev := Record{}
	for i := range prev.Data {
		prev.Data[i] = 0xabcd0042
	}
	cur := prev
	for i := range cur.Data {
		cur.Data[i] = uint32(i)<<16 | 0x42
	}

	assert.Equal(t, uint8(0), cur.RegisterChangedTo(&prev, 0x42, SizeMask(1)))
	assert.Equal(t, uint8(0), cur.RegisterChangedTo(&prev, 0x0042, SizeMask(2)))
}

func TestSizeMask(t *testing.T) {
	assert.Equal(t, uint32(0xff), SizeMask(1))
	assert.Equal(t, uint32(0xffff), SizeMask(2))
	assert.Equal(t, uint32(0xffffffff), SizeMask(4))
	assert.Equal(t, uint32(0xffffffff), SizeMask(3))
}

func TestAddressOperands(t *testing.T) {
	rec := testRecord(0, 0, "", "MOVE.L (A0)+,(A3,D0.W*2,$10) == $00c01000")
	assert.Equal(t, []int{0, 3}, rec.AddressOperands())

	rec = testRecord(0, 0, "", "ADDA.W (A2),A2")
	assert.Equal(t, []int{2}, rec.AddressOperands())

	rec = testRecord(0, 0, "", "NOP")
	assert.Len(t, rec.AddressOperands(), 0)
}

func TestAccessesMemory(t *testing.T) {
	tests := []struct {
		note string
		want bool
	}{
		{"ADD.W (A0),D0", true},
		{"DBF .W D7,#$fff8", true},
		{"OR.L D1,(A1)", true},
		{"LSL.W #$02,D0", true},
		{"ROR.B #$01,D2", true},
		{"CMP.L (A1),D0", true},
		{"SUB.W #$0001,(A5)", true},
		{"MOVE.L (A0),D0", false},
		{"JSR (A6)", false},
	}

	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			rec := testRecord(0, 0, "", tt.note)
			assert.Equal(t, tt.want, rec.AccessesMemory())
		})
	}
}

func TestSearchPattern(t *testing.T) {
	prev := testRecord(0x1000, 0x1004, "6002 4e71", "BRA.B #$02")

	cur := testRecord(0x1004, 0x1006, "4e75", "RTS")
	got, err := cur.SearchPattern(&prev)
	assert.NoError(t, err)
	assert.Equal(t, "4e75", got)

	cur = testRecord(0x1006, 0x1008, "4e75", "RTS")
	got, err = cur.SearchPattern(&prev)
	assert.NoError(t, err)
	assert.Equal(t, "[........] [........] 4e75", got)

	cur = testRecord(0x1000, 0x1002, "4e71", "NOP")
	_, err = cur.SearchPattern(&prev)
	assert.True(t, errors.Is(err, ErrNonMonotonic))

	cur = testRecord(0x1004+MaxSearchGap, 0x1006+MaxSearchGap, "4e71", "NOP")
	_, err = cur.SearchPattern(&prev)
	assert.True(t, errors.Is(err, ErrExcessiveGap))
}
