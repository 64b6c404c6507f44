package writer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/uaetrace/internal/memory"
	"github.com/retroenv/uaetrace/internal/symbols"
	"github.com/retroenv/uaetrace/internal/trace"
)

func TestFindings(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{Offset: 0x1000})

	findings := trace.Findings{
		0x2004: " D1 00000005",
		0x2000: " D0 00000005",
	}
	assert.NoError(t, w.Findings(findings))
	assert.Equal(t, "00001000 D0 00000005\n00001004 D1 00000005\n", buf.String())
}

func TestMemRanges(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{})

	ranges := trace.CoalesceAddresses([]uint32{0x1000, 0x1004}, 128)
	assert.NoError(t, w.MemRanges(ranges))
	assert.Equal(t, ranges[0].Command()+"\n", buf.String())
}

//nolint:funlen // test functions can be long
func TestInspect(t *testing.T) {
	lines := []trace.InspectLine{
		{
			Index:     4,
			PC:        0x1008,
			Depth:     1,
			Registers: []trace.RegisterChange{{Register: 0, Old: 1, New: 5}},
			Countdown: 2,
			Note:      "JSR $2000",
		},
		{
			Index:     5,
			PC:        0x2000,
			Depth:     2,
			Memory:    []trace.MemoryRef{{Register: 0, Address: 0xc01000, Content: "00C01000= 01020304"}},
			Countdown: -1,
			Note:      "ADD.W (A0),D1",
		},
	}

	tests := []struct {
		name     string
		options  Options
		expected string
	}{
		{
			name:    "block",
			options: Options{},
			expected: "  00001008 JSR $2000 [2]\n" +
				"    D0: 00000001 -> 00000005\n" +
				"    00002000 ADD.W (A0),D1\n" +
				"      A0: 00C01000= 01020304\n",
		},
		{
			name:    "compact",
			options: Options{Compact: true},
			expected: "  00001008 JSR $2000 D0=00000005 [2]\n" +
				"    00002000 ADD.W (A0),D1 (A0)00C01000= 01020304\n",
		},
		{
			name:    "offset",
			options: Options{Compact: true, Offset: 0x1000},
			expected: "  00000008 JSR $2000 D0=00000005 [2]\n" +
				"    00001000 ADD.W (A0),D1 (A0)00C01000= 01020304\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := New(&buf, tt.options)
			assert.NoError(t, w.Inspect(lines, nil))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestCallsWithSymbols(t *testing.T) {
	table := symbols.New()
	table.Set(0x2000, "init")

	var buf bytes.Buffer
	w := New(&buf, Options{Resolver: table})

	calls := []trace.Call{
		{Index: 1, PC: 0x1002, Target: 0x2000, Depth: 0, Parent: -1, Return: 3, Note: "JSR $2000"},
		{Index: 5, PC: 0x2004, Target: 0, Depth: 1, Parent: 0, Return: -1, Note: "BSR $3000"},
	}
	assert.NoError(t, w.Calls(calls))
	assert.Equal(t, "00001002 JSR $2000 -> 00002000 <init>\n  00002004 BSR $3000\n", buf.String())
	assert.Equal(t, []symbols.Symbol{{Address: 0x2000, Name: "init"}}, table.Used())
}

func TestStack(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{})

	frames := []trace.Frame{
		{Index: 1, PC: 0x1002, Depth: 0, Note: "JSR $2000"},
		{Index: 2, PC: 0x2000, Depth: 1, Note: "MOVEQ #5,D0"},
	}
	assert.NoError(t, w.Stack(frames))
	assert.Equal(t, "00001002 JSR $2000\n  00002000 MOVEQ #5,D0\n", buf.String())
}

func TestRegionsAndMappings(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{})

	regions := []memory.Region{{From: 0x1000, Data: []byte{1, 2, 3, 4}}}
	assert.NoError(t, w.Regions(regions))
	assert.Equal(t, regions[0].String()+"\n", buf.String())

	buf.Reset()
	mappings := []memory.Mapping{{Path: "gfx.bin", Address: 0xc01004, Translated: 0x1004, Length: 16}}
	assert.NoError(t, w.Mappings(mappings))
	assert.Equal(t, "gfx.bin 00C01004 00001004 16\n", buf.String())
}

func TestMemoryAddresses(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{Offset: 0x10})

	addresses := set.New[uint32]()
	addresses.Add(0x20)
	addresses.Add(0x10)
	assert.NoError(t, w.MemoryAddresses(addresses))
	assert.Equal(t, "00000010\n00000020\n", buf.String())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{JSON: true, Offset: 0x100})

	assert.NoError(t, w.Addresses([]uint32{0x1000, 0x3000}))

	var result struct {
		Offset uint32   `json:"offset"`
		Result []uint32 `json:"result"`
	}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, uint32(0x100), result.Offset)
	assert.Equal(t, []uint32{0x1000, 0x3000}, result.Result)
}
