package document

import (
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document is a read-only view of one markdown document. Implementations must
// be safe to share: Content never changes for a given Version.
type Document interface {
	URI() protocol.DocumentUri
	Version() int32
	Content() string
}

// InMemory is the canonical Document implementation. It carries a lazily
// built line index used for offset/position conversion.
type InMemory struct {
	uri     protocol.DocumentUri
	version int32
	content string

	once       sync.Once
	lineStarts []int
}

func New(uri protocol.DocumentUri, version int32, content string) *InMemory {
	return &InMemory{uri: uri, version: version, content: content}
}

func (d *InMemory) URI() protocol.DocumentUri { return d.uri }
func (d *InMemory) Version() int32            { return d.version }
func (d *InMemory) Content() string           { return d.content }

func (d *InMemory) index() []int {
	d.once.Do(func() {
		starts := []int{0}
		for i := 0; i < len(d.content); i++ {
			if d.content[i] == '\n' {
				starts = append(starts, i+1)
			}
		}
		d.lineStarts = starts
	})
	return d.lineStarts
}

// LineCount returns the number of lines, counting a trailing newline as
// starting a final empty line.
func (d *InMemory) LineCount() int {
	return len(d.index())
}

// LineText returns the text of the 0-based line without its newline.
func (d *InMemory) LineText(line int) string {
	starts := d.index()
	if line < 0 || line >= len(starts) {
		return ""
	}
	end := len(d.content)
	if line+1 < len(starts) {
		end = starts[line+1]
	}
	return strings.TrimRight(d.content[starts[line]:end], "\r\n")
}

// PositionAt converts a byte offset into a protocol position. Columns are
// counted in UTF-16 code units, as required by the wire protocol.
func (d *InMemory) PositionAt(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.content) {
		offset = len(d.content)
	}
	starts := d.index()
	// Binary search for the line containing offset.
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	col := len(utf16.Encode([]rune(d.content[starts[lo]:offset])))
	return protocol.Position{
		Line:      protocol.UInteger(lo),
		Character: protocol.UInteger(col),
	}
}

// OffsetAt is the inverse of PositionAt. Positions past the end of a line
// clamp to the line end.
func (d *InMemory) OffsetAt(pos protocol.Position) int {
	starts := d.index()
	line := int(pos.Line)
	if line >= len(starts) {
		return len(d.content)
	}
	lineEnd := len(d.content)
	if line+1 < len(starts) {
		lineEnd = starts[line+1]
	}
	off := starts[line]
	remaining := int(pos.Character)
	for off < lineEnd && remaining > 0 {
		r, size := utf8.DecodeRuneInString(d.content[off:lineEnd])
		if r >= 0x10000 {
			remaining -= 2
		} else {
			remaining--
		}
		off += size
	}
	return off
}

// RangeOf converts a [start,end) byte span into a protocol range.
func (d *InMemory) RangeOf(start, end int) protocol.Range {
	return protocol.Range{Start: d.PositionAt(start), End: d.PositionAt(end)}
}

// FullRange spans the entire document.
func (d *InMemory) FullRange() protocol.Range {
	return d.RangeOf(0, len(d.content))
}

// AsInMemory returns d as *InMemory, re-wrapping foreign implementations so
// callers get the offset conversion helpers.
func AsInMemory(d Document) *InMemory {
	if m, ok := d.(*InMemory); ok {
		return m
	}
	return New(d.URI(), d.Version(), d.Content())
}
