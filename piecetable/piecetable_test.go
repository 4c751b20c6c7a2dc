package piecetable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildFrom(t *testing.T, s string) *PieceTable {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.Receive([]byte(s)))
	require.NoError(t, b.Build())
	pt, err := b.Create(false, EOLLF, false)
	require.NoError(t, err)
	return pt
}

func TestPieceTableBasicReads(t *testing.T) {
	pt := buildFrom(t, "hello\nworld\n")
	require.Equal(t, 12, pt.GetBufferLength())
	require.Equal(t, 3, pt.GetLineCount())
	require.Equal(t, []string{"hello", "world", ""}, pt.GetContent())

	line0, err := pt.GetLine(0)
	require.NoError(t, err)
	require.Equal(t, "hello", line0)

	raw0, err := pt.GetRawLine(0)
	require.NoError(t, err)
	require.Equal(t, "hello\n", raw0)

	length0, err := pt.GetLineLength(0)
	require.NoError(t, err)
	require.Equal(t, 5, length0)

	rawLength0, err := pt.GetRawLineLength(0)
	require.NoError(t, err)
	require.Equal(t, 6, rawLength0)

	_, err = pt.GetLine(3)
	require.Error(t, err)
	require.Equal(t, OutOfRange, err.(*Error).Kind)
}

func TestPieceTableInsertAtMiddle(t *testing.T) {
	pt := buildFrom(t, "helloworld")
	require.NoError(t, pt.Validate())
	require.NoError(t, pt.InsertAt(5, " "))
	require.NoError(t, pt.Validate())
	require.Equal(t, "hello world", pt.GetRawContent())
	require.Equal(t, 11, pt.GetBufferLength())
}

func TestPieceTableInsertAtStartAndEnd(t *testing.T) {
	pt := buildFrom(t, "bcd")
	require.NoError(t, pt.InsertAt(0, "a"))
	require.NoError(t, pt.InsertAt(pt.GetBufferLength(), "e"))
	require.NoError(t, pt.Validate())
	require.Equal(t, "abcde", pt.GetRawContent())
}

func TestPieceTableInsertAtEndExtendsLastPiece(t *testing.T) {
	pt := buildFrom(t, "")
	require.NoError(t, pt.InsertAt(0, "foo"))
	before := countNodes(pt)
	require.NoError(t, pt.InsertAt(pt.GetBufferLength(), "bar"))
	after := countNodes(pt)
	require.Equal(t, before, after, "appending right after the previous insert's tail should extend in place, not grow the tree")
	require.Equal(t, "foobar", pt.GetRawContent())
	require.NoError(t, pt.Validate())
}

func countNodes(pt *PieceTable) int {
	n := 0
	pt.ForEach(func(Piece) { n++ })
	return n
}

// TestPieceTableInsertCRLFRepairLeftSeam mirrors spec.md §8 scenario 4:
// inserting "\n..." right after a document that ends in "\r" must be
// recognized as one CRLF terminator, not two.
func TestPieceTableInsertCRLFRepairLeftSeam(t *testing.T) {
	pt := buildFrom(t, "a\r")
	require.Equal(t, 2, pt.GetLineCount())
	require.NoError(t, pt.InsertAt(pt.GetBufferLength(), "\nb"))
	require.NoError(t, pt.Validate())
	require.Equal(t, "a\r\nb", pt.GetRawContent())
	require.Equal(t, 2, pt.GetLineCount())
}

func TestPieceTableInsertCRLFRepairRightSeam(t *testing.T) {
	pt := buildFrom(t, "\nb")
	require.NoError(t, pt.InsertAt(0, "a\r"))
	require.NoError(t, pt.Validate())
	require.Equal(t, "a\r\nb", pt.GetRawContent())
	require.Equal(t, 2, pt.GetLineCount())
}

func TestPieceTableInsertCRLFRepairInteriorSplit(t *testing.T) {
	pt := buildFrom(t, "X\rY")
	// Insert "\n" between the '\r' and 'Y', splitting the single piece.
	require.NoError(t, pt.InsertAt(2, "\n"))
	require.NoError(t, pt.Validate())
	require.Equal(t, "X\r\nY", pt.GetRawContent())
	require.Equal(t, 2, pt.GetLineCount())
}

func TestPieceTableDeleteWithinSinglePiece(t *testing.T) {
	pt := buildFrom(t, "hello world")
	require.NoError(t, pt.DeleteAt(5, 1))
	require.NoError(t, pt.Validate())
	require.Equal(t, "helloworld", pt.GetRawContent())
}

func TestPieceTableDeleteSpanningMultiplePieces(t *testing.T) {
	pt := buildFrom(t, "abc")
	require.NoError(t, pt.InsertAt(3, "def"))
	require.NoError(t, pt.InsertAt(6, "ghi"))
	require.Equal(t, "abcdefghi", pt.GetRawContent())

	require.NoError(t, pt.DeleteAt(2, 5)) // remove "cdefg"
	require.NoError(t, pt.Validate())
	require.Equal(t, "abhi", pt.GetRawContent())
}

// TestPieceTableDeleteCRLFRepair deletes the content between a bare CR
// and a bare LF, leaving them adjacent; the result must be recognized as
// a single terminator.
func TestPieceTableDeleteCRLFRepair(t *testing.T) {
	pt := buildFrom(t, "ab\rcd\nef")
	require.NoError(t, pt.DeleteAt(3, 2)) // remove "cd", leaving "ab\r\nef"
	require.NoError(t, pt.Validate())
	require.Equal(t, "ab\r\nef", pt.GetRawContent())
	require.Equal(t, 2, pt.GetLineCount())
}

func TestPieceTableDeleteWholeDocument(t *testing.T) {
	pt := buildFrom(t, "abc")
	require.NoError(t, pt.DeleteAt(0, 3))
	require.NoError(t, pt.Validate())
	require.Equal(t, "", pt.GetRawContent())
	require.Equal(t, 0, pt.GetBufferLength())
	require.Equal(t, 1, pt.GetLineCount())
}

func TestPieceTableOffsetPositionRoundTrip(t *testing.T) {
	pt := buildFrom(t, "ab\ncde\nf")
	for offset := 0; offset <= pt.GetBufferLength(); offset++ {
		line, col := pt.GetPositionAt(offset)
		got, err := pt.GetOffsetAt(line, col)
		require.NoError(t, err)
		require.Equal(t, offset, got, "offset %d round-trips via (line=%d,col=%d)", offset, line, col)
	}
}

func TestPieceTableGetOffsetAtClampsColumn(t *testing.T) {
	pt := buildFrom(t, "ab\ncde")
	offset, err := pt.GetOffsetAt(0, 100)
	require.NoError(t, err)
	require.Equal(t, 2, offset) // clamped to len("ab")
}

func TestPieceTableCharcodeLookups(t *testing.T) {
	pt := buildFrom(t, "ab\ncd")
	c, err := pt.GetCharcodeByOffset(0)
	require.NoError(t, err)
	require.Equal(t, byte('a'), c)

	c, err = pt.GetCharcodeByLine(1, 1)
	require.NoError(t, err)
	require.Equal(t, byte('d'), c)

	_, err = pt.GetCharcodeByOffset(pt.GetBufferLength())
	require.Error(t, err)

	_, err = pt.GetCharcodeByLine(1, 2)
	require.Error(t, err)
}

func TestPieceTableOutOfRangeErrors(t *testing.T) {
	pt := buildFrom(t, "abc")
	require.Error(t, pt.InsertAt(-1, "x"))
	require.Error(t, pt.InsertAt(4, "x"))
	require.Error(t, pt.DeleteAt(0, 4))
	require.Error(t, pt.DeleteAt(-1, 1))
}
