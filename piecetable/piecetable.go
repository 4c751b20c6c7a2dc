package piecetable

import (
	"sort"
	"strings"
)

// PieceTable is the mutable document described by spec.md §4: a tree of
// Pieces over a set of TextBuffers. The zero value is not usable; build
// one with Builder.
type PieceTable struct {
	buffers          []*textBuffer
	addedBufferIndex int // -1 until the first InsertAt (or DeleteAt's CRLF repair) creates it
	t                *tree
}

// newPieceTableFromBuffers builds the initial tree with one piece per
// non-empty buffer, in receive order, per spec.md §4.6 step 3.
func newPieceTableFromBuffers(buffers []*textBuffer) *PieceTable {
	pt := &PieceTable{buffers: buffers, addedBufferIndex: -1, t: newTree()}
	for i, b := range buffers {
		if len(b.data) == 0 {
			continue
		}
		p := Piece{
			BufferIndex: i,
			Start:       BufferPosition{Line: 0, Column: 0},
			End:         b.offsetToPosition(len(b.data)),
			Length:      len(b.data),
			LFCount:     countLFInRange(b, 0, len(b.data)),
		}
		n := newPieceNode(p)
		if pt.t.isEmpty() {
			pt.t.linkAsRoot(n)
		} else {
			pt.t.insertAfter(pt.t.maximum(pt.t.root), n)
		}
	}
	return pt
}

// countLFInRange counts line terminators fully contained in the byte
// range [start, end) of buf, relying on the invariant that no CRLF pair
// is ever split across a piece boundary (builder.go and the CRLF-repair
// steps of InsertAt/DeleteAt maintain this).
func countLFInRange(buf *textBuffer, start, end int) int {
	upper := sort.SearchInts(buf.lineStarts, end+1)
	lower := sort.SearchInts(buf.lineStarts, start+1)
	return upper - lower
}

func (pt *PieceTable) recomputePieceFromRange(bufferIndex, absStart, absEnd int) Piece {
	buf := pt.buffers[bufferIndex]
	return Piece{
		BufferIndex: bufferIndex,
		Start:       buf.offsetToPosition(absStart),
		End:         buf.offsetToPosition(absEnd),
		Length:      absEnd - absStart,
		LFCount:     countLFInRange(buf, absStart, absEnd),
	}
}

func (pt *PieceTable) pieceBytes(p Piece) []byte {
	buf := pt.buffers[p.BufferIndex]
	abs := buf.positionToOffset(p.Start)
	return buf.data[abs : abs+p.Length]
}

func (pt *PieceTable) ensureAddedBuffer() *textBuffer {
	if pt.addedBufferIndex < 0 {
		pt.buffers = append(pt.buffers, newTextBuffer(nil))
		pt.addedBufferIndex = len(pt.buffers) - 1
	}
	return pt.buffers[pt.addedBufferIndex]
}

// byteAt returns the raw byte at document offset, and false if offset is
// out of [0, bufferLength).
func (pt *PieceTable) byteAt(offset int) (byte, bool) {
	if offset < 0 || offset >= pt.GetBufferLength() {
		return 0, false
	}
	n, r := pt.t.nodeAt(offset)
	if n == pt.t.nilN {
		return 0, false
	}
	buf := pt.buffers[n.piece.BufferIndex]
	abs := buf.positionToOffset(n.piece.Start) + r
	return buf.data[abs], true
}

// GetBufferLength returns the total document length in bytes, read off
// the tree root's whole-subtree total in O(1).
func (pt *PieceTable) GetBufferLength() int {
	return pt.t.root.subtreeBufferLength
}

// GetLineCount returns the number of lines in the document; a document
// with zero terminators still has exactly one line.
func (pt *PieceTable) GetLineCount() int {
	return pt.t.root.subtreeLfCount + 1
}

// ForEach visits every Piece currently in the tree in pre-order (not
// document order); it exists for diagnostics and tests (spec.md §6).
func (pt *PieceTable) ForEach(fn func(Piece)) {
	pt.t.forEach(fn)
}

// ---------------------------------------------------------------------
// InsertAt (spec.md §4.3)
// ---------------------------------------------------------------------

// InsertAt inserts text at the given document byte offset. offset must
// be in [0, GetBufferLength()]; an empty text is a no-op.
func (pt *PieceTable) InsertAt(offset int, text string) error {
	total := pt.GetBufferLength()
	if offset < 0 || offset > total {
		return errOutOfRange("insertAt: offset %d out of range [0,%d]", offset, total)
	}
	if len(text) == 0 {
		return nil
	}
	textBytes := []byte(text)

	empty := pt.t.isEmpty()
	var N *node
	var r int
	if !empty {
		N, r = pt.t.nodeAt(offset)
	}

	leftRepair := false
	rightRepair := false
	if offset > 0 {
		if prev, ok := pt.byteAt(offset - 1); ok && prev == cr && textBytes[0] == lf {
			leftRepair = true
			textBytes = append([]byte{cr}, textBytes...)
		}
	}
	if offset < total {
		if next, ok := pt.byteAt(offset); ok && textBytes[len(textBytes)-1] == cr && next == lf {
			rightRepair = true
			textBytes = append(textBytes, lf)
		}
	}

	addedBuf := pt.ensureAddedBuffer()
	addedIdx := pt.addedBufferIndex
	appendStart := len(addedBuf.data)
	addedBuf.appendChunk(textBytes)
	newPiece := pt.recomputePieceFromRange(addedIdx, appendStart, appendStart+len(textBytes))
	newNode := newPieceNode(newPiece)

	switch {
	case empty:
		pt.t.linkAsRoot(newNode)

	case r == 0:
		// Insert relative to N (still fully intact) before trimming
		// either neighbor, so the splice point is never computed
		// against an already-deleted anchor.
		pt.t.insertBefore(N, newNode)
		if leftRepair {
			pred := pt.t.predecessor(newNode)
			assertInvariant(pred != pt.t.nilN, "insertAt: left CRLF repair with no predecessor")
			pt.trimNodeSuffixKeep(pred, pred.piece.Length-1)
		}
		if rightRepair {
			pt.trimNodePrefixDrop(N, 1)
		}

	case r == N.piece.Length && !leftRepair && pt.isAddedBufferTail(N, addedIdx, appendStart):
		// Extend N in place: the spec's explicit optimization for
		// appending directly after the physically-adjacent tail of the
		// added buffer, avoiding a new tree node.
		buf := pt.buffers[N.piece.BufferIndex]
		absStart := buf.positionToOffset(N.piece.Start)
		N.piece = pt.recomputePieceFromRange(addedIdx, absStart, appendStart+len(textBytes))
		pt.t.updateAggregatesUpward(N)

	default:
		pt.splitNodeForInsert(N, r, newNode, leftRepair, rightRepair)
	}
	return nil
}

// isAddedBufferTail reports whether n's piece is the physical tail of the
// added buffer immediately before appendStart, i.e. extending n in place
// would be equivalent to inserting a new successor node.
func (pt *PieceTable) isAddedBufferTail(n *node, addedIdx, appendStart int) bool {
	if n.piece.BufferIndex != addedIdx {
		return false
	}
	buf := pt.buffers[addedIdx]
	return buf.positionToOffset(n.piece.End) == appendStart
}

// splitNodeForInsert handles spec.md §4.3's "0 < r < piece.length" case
// (and, by unifying r == piece.Length into the same left/right-remainder
// framing, the repaired variant of "insert strictly after N" too): N is
// replaced by a left remainder of r (or r-1, if leftRepair) bytes,
// followed by newNode, followed by a right remainder (if any) of
// piece.Length-r (or one fewer, if rightRepair) bytes.
func (pt *PieceTable) splitNodeForInsert(N *node, r int, newNode *node, leftRepair, rightRepair bool) {
	leftLen := r
	if leftRepair {
		leftLen--
	}
	rightStart := r
	if rightRepair {
		rightStart++
	}

	buf := pt.buffers[N.piece.BufferIndex]
	absStart := buf.positionToOffset(N.piece.Start)
	absEnd := absStart + N.piece.Length

	hasRight := rightStart < N.piece.Length
	var rightPiece Piece
	if hasRight {
		rightPiece = pt.recomputePieceFromRange(N.piece.BufferIndex, absStart+rightStart, absEnd)
	}

	pt.t.insertAfter(N, newNode)
	if hasRight {
		rightNode := newPieceNode(rightPiece)
		pt.t.insertAfter(newNode, rightNode)
	}

	if leftLen <= 0 {
		pt.t.deleteNode(N)
		return
	}
	if leftLen < N.piece.Length {
		N.piece = pt.recomputePieceFromRange(N.piece.BufferIndex, absStart, absStart+leftLen)
		pt.t.updateAggregatesUpward(N)
	}
}

// ---------------------------------------------------------------------
// DeleteAt (spec.md §4.4)
// ---------------------------------------------------------------------

// DeleteAt removes the length bytes starting at offset. offset+length
// must not exceed GetBufferLength(); length 0 is a no-op.
func (pt *PieceTable) DeleteAt(offset, length int) error {
	total := pt.GetBufferLength()
	if offset < 0 || length < 0 || offset+length > total {
		return errOutOfRange("deleteAt: range [%d,%d) out of range [0,%d]", offset, offset+length, total)
	}
	if length == 0 {
		return nil
	}
	end := offset + length

	startNode, startRem := pt.t.nodeAt(offset)
	endNode, endRem := pt.t.nodeAt(end)

	if startNode == endNode {
		pt.deleteWithinSingleNode(startNode, startRem, endRem)
	} else {
		next := pt.t.successor(startNode)
		pt.trimNodeSuffixKeep(startNode, startRem)
		for next != endNode {
			after := pt.t.successor(next)
			pt.t.deleteNode(next)
			next = after
		}
		pt.trimNodePrefixDrop(endNode, endRem)
	}

	pt.repairCRLFAtSeam(offset)
	return nil
}

// deleteWithinSingleNode removes the range [startRem, endRem) from a
// single piece, shrinking, splitting, or (if the whole piece is removed)
// deleting the node as needed.
func (pt *PieceTable) deleteWithinSingleNode(N *node, startRem, endRem int) {
	if startRem == 0 && endRem == N.piece.Length {
		pt.t.deleteNode(N)
		return
	}
	buf := pt.buffers[N.piece.BufferIndex]
	absStart := buf.positionToOffset(N.piece.Start)
	pieceLen := N.piece.Length

	if startRem == 0 {
		N.piece = pt.recomputePieceFromRange(N.piece.BufferIndex, absStart+endRem, absStart+pieceLen)
		pt.t.updateAggregatesUpward(N)
		return
	}
	if endRem == pieceLen {
		N.piece = pt.recomputePieceFromRange(N.piece.BufferIndex, absStart, absStart+startRem)
		pt.t.updateAggregatesUpward(N)
		return
	}

	rightPiece := pt.recomputePieceFromRange(N.piece.BufferIndex, absStart+endRem, absStart+pieceLen)
	rightNode := newPieceNode(rightPiece)
	pt.t.insertAfter(N, rightNode)

	N.piece = pt.recomputePieceFromRange(N.piece.BufferIndex, absStart, absStart+startRem)
	pt.t.updateAggregatesUpward(N)
}

// trimNodeSuffixKeep shrinks N to its first keepLen bytes, removing N
// entirely if keepLen <= 0. A no-op if keepLen already equals the
// piece's length.
func (pt *PieceTable) trimNodeSuffixKeep(N *node, keepLen int) {
	if keepLen == N.piece.Length {
		return
	}
	if keepLen <= 0 {
		pt.t.deleteNode(N)
		return
	}
	buf := pt.buffers[N.piece.BufferIndex]
	absStart := buf.positionToOffset(N.piece.Start)
	N.piece = pt.recomputePieceFromRange(N.piece.BufferIndex, absStart, absStart+keepLen)
	pt.t.updateAggregatesUpward(N)
}

// trimNodePrefixDrop drops the first dropLen bytes of N's piece,
// removing N entirely if that consumes the whole piece. A no-op if
// dropLen <= 0.
func (pt *PieceTable) trimNodePrefixDrop(N *node, dropLen int) {
	if dropLen <= 0 {
		return
	}
	buf := pt.buffers[N.piece.BufferIndex]
	absStart := buf.positionToOffset(N.piece.Start)
	absEnd := absStart + N.piece.Length
	if dropLen >= N.piece.Length {
		pt.t.deleteNode(N)
		return
	}
	N.piece = pt.recomputePieceFromRange(N.piece.BufferIndex, absStart+dropLen, absEnd)
	pt.t.updateAggregatesUpward(N)
}

// repairCRLFAtSeam is the deletion-side counterpart of InsertAt's
// leftRepair/rightRepair: after a delete, if position pos now sits
// between a piece ending in CR and a piece starting with LF, the two
// would double-count as terminators unless merged into one CRLF piece
// living wholly inside the added buffer (spec.md §4.4 step 4).
func (pt *PieceTable) repairCRLFAtSeam(pos int) {
	total := pt.GetBufferLength()
	if pos <= 0 || pos >= total {
		return
	}
	before, ok1 := pt.byteAt(pos - 1)
	after, ok2 := pt.byteAt(pos)
	if !ok1 || !ok2 || before != cr || after != lf {
		return
	}

	rightNode, rem := pt.t.nodeAt(pos)
	if rem != 0 {
		return
	}
	leftNode := pt.t.predecessor(rightNode)
	if leftNode == pt.t.nilN {
		return
	}

	addedBuf := pt.ensureAddedBuffer()
	addedIdx := pt.addedBufferIndex
	appendStart := len(addedBuf.data)
	addedBuf.appendChunk([]byte{cr, lf})
	crlfNode := newPieceNode(pt.recomputePieceFromRange(addedIdx, appendStart, appendStart+2))

	pt.t.insertAfter(leftNode, crlfNode)
	pt.trimNodeSuffixKeep(leftNode, leftNode.piece.Length-1)
	pt.trimNodePrefixDrop(rightNode, 1)
}

// ---------------------------------------------------------------------
// Reads (spec.md §4.5)
// ---------------------------------------------------------------------

// GetRawContent returns the entire document, verbatim, by walking the
// tree in document order.
func (pt *PieceTable) GetRawContent() string {
	var sb strings.Builder
	sb.Grow(pt.GetBufferLength())
	pt.t.inOrder(func(n *node) {
		sb.Write(pt.pieceBytes(n.piece))
	})
	return sb.String()
}

// GetContent returns the document as one string per line, with line
// terminators stripped.
func (pt *PieceTable) GetContent() []string {
	n := pt.GetLineCount()
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		line, err := pt.GetLine(i)
		assertInvariant(err == nil, "GetContent: line %d: %v", i, err)
		lines[i] = line
	}
	return lines
}

// GetRawLine returns line n including its terminator (absent only for
// the final line of a document that does not end in one).
func (pt *PieceTable) GetRawLine(n int) (string, error) {
	b, err := pt.rawLineBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetLine returns line n with its terminator stripped.
func (pt *PieceTable) GetLine(n int) (string, error) {
	b, err := pt.rawLineBytes(n)
	if err != nil {
		return "", err
	}
	return string(stripTerminator(b)), nil
}

// GetRawLineLength returns the byte length of line n including its
// terminator.
func (pt *PieceTable) GetRawLineLength(n int) (int, error) {
	b, err := pt.rawLineBytes(n)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// GetLineLength returns the byte length of line n excluding its
// terminator.
func (pt *PieceTable) GetLineLength(n int) (int, error) {
	b, err := pt.rawLineBytes(n)
	if err != nil {
		return 0, err
	}
	return len(stripTerminator(b)), nil
}

func stripTerminator(b []byte) []byte {
	n := len(b)
	if n >= 2 && b[n-2] == cr && b[n-1] == lf {
		return b[:n-2]
	}
	if n >= 1 && (b[n-1] == cr || b[n-1] == lf) {
		return b[:n-1]
	}
	return b
}

// rawLineBytes collects line n (terminator included) by descending to
// its first node via nodeAtLine and walking successors until a
// terminator, or the document end, is found.
func (pt *PieceTable) rawLineBytes(n int) ([]byte, error) {
	lineCount := pt.GetLineCount()
	if n < 0 || n >= lineCount {
		return nil, errOutOfRange("line %d out of range [0,%d)", n, lineCount)
	}
	cur, lfRem := pt.t.nodeAtLine(n)
	if cur == pt.t.nilN {
		return []byte{}, nil
	}

	buf := pt.buffers[cur.piece.BufferIndex]
	startBufLine := cur.piece.Start.Line + lfRem
	absPos := buf.lineStarts[startBufLine]

	var out []byte
	for {
		buf = pt.buffers[cur.piece.BufferIndex]
		pieceAbsEnd := buf.positionToOffset(cur.piece.End)

		idx := sort.SearchInts(buf.lineStarts, absPos+1)
		if idx < len(buf.lineStarts) && buf.lineStarts[idx] <= pieceAbsEnd {
			out = append(out, buf.data[absPos:buf.lineStarts[idx]]...)
			return out, nil
		}

		out = append(out, buf.data[absPos:pieceAbsEnd]...)
		next := pt.t.successor(cur)
		if next == pt.t.nilN {
			return out, nil
		}
		cur = next
		nbuf := pt.buffers[cur.piece.BufferIndex]
		absPos = nbuf.positionToOffset(cur.piece.Start)
	}
}

// GetOffsetAt converts (line, col) to an absolute document byte offset,
// clamping col to the line's length (terminator excluded) if it overruns.
func (pt *PieceTable) GetOffsetAt(line, col int) (int, error) {
	lineCount := pt.GetLineCount()
	if line < 0 || line >= lineCount {
		return 0, errOutOfRange("line %d out of range [0,%d)", line, lineCount)
	}
	if col < 0 {
		col = 0
	}

	if pt.t.isEmpty() {
		return 0, nil
	}
	node, lfRem := pt.t.nodeAtLine(line)
	buf := pt.buffers[node.piece.BufferIndex]
	startBufLine := node.piece.Start.Line + lfRem
	startAbsInBuf := buf.lineStarts[startBufLine]
	pieceAbsStart := buf.positionToOffset(node.piece.Start)
	offsetWithinPiece := startAbsInBuf - pieceAbsStart
	docOffset := pt.t.nodeStartOffset(node) + offsetWithinPiece

	lineLen, err := pt.GetLineLength(line)
	assertInvariant(err == nil, "GetOffsetAt: line %d: %v", line, err)
	if col > lineLen {
		col = lineLen
	}
	return docOffset + col, nil
}

// GetPositionAt converts an absolute document byte offset to (line,
// col), clamping offset into [0, GetBufferLength()].
func (pt *PieceTable) GetPositionAt(offset int) (line, col int) {
	total := pt.GetBufferLength()
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	if pt.t.isEmpty() {
		return 0, 0
	}
	node, r := pt.t.nodeAt(offset)
	buf := pt.buffers[node.piece.BufferIndex]
	pieceAbsStart := buf.positionToOffset(node.piece.Start)
	pos := buf.offsetToPosition(pieceAbsStart + r)
	line = pt.t.nodeStartLine(node) + (pos.Line - node.piece.Start.Line)
	lineStart, err := pt.GetOffsetAt(line, 0)
	assertInvariant(err == nil, "GetPositionAt: line %d: %v", line, err)
	col = offset - lineStart
	return line, col
}

// GetCharcodeByOffset returns the raw byte (code unit; see doc.go) at
// document offset.
func (pt *PieceTable) GetCharcodeByOffset(offset int) (byte, error) {
	b, ok := pt.byteAt(offset)
	if !ok {
		return 0, errOutOfRange("offset %d out of range [0,%d)", offset, pt.GetBufferLength())
	}
	return b, nil
}

// GetCharcodeByLine returns the raw byte (code unit) at (line, col)
// within the document, without clamping col.
func (pt *PieceTable) GetCharcodeByLine(line, col int) (byte, error) {
	lineCount := pt.GetLineCount()
	if line < 0 || line >= lineCount {
		return 0, errOutOfRange("line %d out of range [0,%d)", line, lineCount)
	}
	rawLen, err := pt.GetRawLineLength(line)
	if err != nil {
		return 0, err
	}
	if col < 0 || col >= rawLen {
		return 0, errOutOfRange("column %d out of range [0,%d) on line %d", col, rawLen, line)
	}
	lineStart, err := pt.GetOffsetAt(line, 0)
	if err != nil {
		return 0, err
	}
	return pt.GetCharcodeByOffset(lineStart + col)
}
