package document

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func pos(line, char int) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(char),
	}
}

func TestLineCount(t *testing.T) {
	cases := []struct {
		content string
		want    int
	}{
		{"", 1},
		{"one line", 1},
		{"a\nb", 2},
		{"a\nb\n", 3},
		{"\n\n\n", 4},
	}
	for _, tc := range cases {
		doc := New("file:///a.md", 1, tc.content)
		if got := doc.LineCount(); got != tc.want {
			t.Errorf("LineCount(%q) = %d, want %d", tc.content, got, tc.want)
		}
	}
}

func TestLineText(t *testing.T) {
	doc := New("file:///a.md", 1, "first\r\nsecond\nlast")
	cases := []struct {
		line int
		want string
	}{
		{0, "first"},
		{1, "second"},
		{2, "last"},
		{3, ""},
		{-1, ""},
	}
	for _, tc := range cases {
		if got := doc.LineText(tc.line); got != tc.want {
			t.Errorf("LineText(%d) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestPositionAt(t *testing.T) {
	doc := New("file:///a.md", 1, "abc\ndef\n")
	cases := []struct {
		offset int
		want   protocol.Position
	}{
		{0, pos(0, 0)},
		{2, pos(0, 2)},
		{3, pos(0, 3)},
		{4, pos(1, 0)},
		{7, pos(1, 3)},
		{8, pos(2, 0)},
		// Out of range clamps.
		{-5, pos(0, 0)},
		{99, pos(2, 0)},
	}
	for _, tc := range cases {
		if got := doc.PositionAt(tc.offset); got != tc.want {
			t.Errorf("PositionAt(%d) = %v, want %v", tc.offset, got, tc.want)
		}
	}
}

func TestPositionAtCountsUTF16Units(t *testing.T) {
	// "é" is 2 bytes, 1 UTF-16 unit. "😀" is 4 bytes, 2 UTF-16 units.
	doc := New("file:///a.md", 1, "é😀x")
	cases := []struct {
		offset int
		want   protocol.Position
	}{
		{0, pos(0, 0)},
		{2, pos(0, 1)},
		{6, pos(0, 3)},
		{7, pos(0, 4)},
	}
	for _, tc := range cases {
		if got := doc.PositionAt(tc.offset); got != tc.want {
			t.Errorf("PositionAt(%d) = %v, want %v", tc.offset, got, tc.want)
		}
	}
}

func TestOffsetAtRoundTrip(t *testing.T) {
	doc := New("file:///a.md", 1, "plain\né😀 mixed\nlast line")
	for offset := 0; offset <= len(doc.Content()); offset++ {
		// Only test offsets at rune boundaries.
		if offset < len(doc.Content()) {
			b := doc.Content()[offset]
			if b >= 0x80 && b < 0xC0 {
				continue
			}
		}
		p := doc.PositionAt(offset)
		if got := doc.OffsetAt(p); got != offset {
			t.Errorf("OffsetAt(PositionAt(%d)) = %d", offset, got)
		}
	}
}

func TestOffsetAtClamps(t *testing.T) {
	doc := New("file:///a.md", 1, "ab\ncd")
	if got := doc.OffsetAt(pos(0, 99)); got != 3 {
		t.Errorf("past line end = %d, want 3", got)
	}
	if got := doc.OffsetAt(pos(9, 0)); got != len(doc.Content()) {
		t.Errorf("past last line = %d, want %d", got, len(doc.Content()))
	}
}

func TestRangeOf(t *testing.T) {
	doc := New("file:///a.md", 1, "abc\ndef")
	got := doc.RangeOf(1, 6)
	want := protocol.Range{Start: pos(0, 1), End: pos(1, 2)}
	if got != want {
		t.Errorf("RangeOf(1, 6) = %v, want %v", got, want)
	}
}

func TestAsInMemory(t *testing.T) {
	doc := New("file:///a.md", 3, "hello")
	if AsInMemory(doc) != doc {
		t.Error("AsInMemory should return the same *InMemory")
	}
}
