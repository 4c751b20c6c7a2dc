package piecetable

import "sort"

// textBuffer holds one contiguous run of text plus the byte offsets at
// which every line starts within it. buffers[0..k-1] (the buffers the
// Builder produced) are immutable once published; the single "added"
// buffer grows by appending only, with linestart extended in step.
type textBuffer struct {
	data       []byte
	lineStarts []int // lineStarts[0] == 0 always
}

// lineStats is the result of scanning a run of text for line terminators.
// cr/lf/crlf count *bare* CR, bare LF, and CRLF pairs respectively (a
// CRLF pair is not also counted in cr or lf). lineStarts holds the byte
// offset immediately after each terminator, plus a leading 0.
type lineStats struct {
	cr         int
	lf         int
	crlf       int
	lineStarts []int
}

// readLineStarts is the pure scan described in spec.md §2 item 2: given a
// byte run, it returns line-start offsets and EOL tallies. It never
// mutates s.
func readLineStarts(s []byte) lineStats {
	stats := lineStats{lineStarts: []int{0}}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case cr:
			if i+1 < len(s) && s[i+1] == lf {
				stats.crlf++
				i++
			} else {
				stats.cr++
			}
			stats.lineStarts = append(stats.lineStarts, i+1)
		case lf:
			stats.lf++
			stats.lineStarts = append(stats.lineStarts, i+1)
		}
	}
	return stats
}

func newTextBuffer(data []byte) *textBuffer {
	stats := readLineStarts(data)
	return &textBuffer{data: data, lineStarts: stats.lineStarts}
}

// offsetToPosition converts a byte offset within this buffer to a
// (line, column) BufferPosition using binary search over lineStarts, the
// same technique as the teacher's Rope.findLine.
func (b *textBuffer) offsetToPosition(offset int) BufferPosition {
	line := sort.SearchInts(b.lineStarts, offset+1) - 1
	if line < 0 {
		line = 0
	}
	return BufferPosition{Line: line, Column: offset - b.lineStarts[line]}
}

// positionToOffset converts a BufferPosition back to a byte offset within
// this buffer. The caller is responsible for keeping pos in range.
func (b *textBuffer) positionToOffset(pos BufferPosition) int {
	return b.lineStarts[pos.Line] + pos.Column
}

// appendChunk appends raw bytes to the end of an append-only buffer and
// extends lineStarts in step. After construction it is only called on the
// single mutable "added" buffer; Builder.Build also uses it once to flush
// withheld bytes into the last received buffer before the PieceTable
// exists.
func (b *textBuffer) appendChunk(chunk []byte) {
	base := len(b.data)
	b.data = append(b.data, chunk...)
	stats := readLineStarts(chunk)
	for _, ls := range stats.lineStarts[1:] {
		b.lineStarts = append(b.lineStarts, base+ls)
	}
}

// normalizeEOL rewrites the buffer's content replacing every maximal
// CRLF|CR|LF match with eol, and recomputes lineStarts from the result.
func (b *textBuffer) normalizeEOL(eol string) {
	out := make([]byte, 0, len(b.data))
	for i := 0; i < len(b.data); i++ {
		switch b.data[i] {
		case cr:
			out = append(out, eol...)
			if i+1 < len(b.data) && b.data[i+1] == lf {
				i++
			}
		case lf:
			out = append(out, eol...)
		default:
			out = append(out, b.data[i])
		}
	}
	b.data = out
	b.lineStarts = readLineStarts(out).lineStarts
}
