package piecetable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderPhaseErrors(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Receive([]byte("abc")))

	_, err := b.Create(false, EOLLF, false)
	require.Error(t, err)
	require.Equal(t, InvalidPhase, err.(*Error).Kind)

	require.NoError(t, b.Build())
	require.Error(t, b.Receive([]byte("more")))
	require.Error(t, b.Build())

	_, err = b.Create(false, EOLLF, false)
	require.NoError(t, err)
	_, err = b.Create(false, EOLLF, false)
	require.Error(t, err)
}

func TestBuilderEmptyDocument(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Build())
	pt, err := b.Create(false, EOLLF, false)
	require.NoError(t, err)
	require.Equal(t, 0, pt.GetBufferLength())
	require.Equal(t, 1, pt.GetLineCount())
	require.Equal(t, "", pt.GetRawContent())
}

// TestBuilderLoneCRAcrossChunks mirrors spec.md §8 scenario 2: a CRLF
// pair split across two Receive calls must still be recognized as one
// terminator.
func TestBuilderLoneCRAcrossChunks(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Receive([]byte("line one\r")))
	require.NoError(t, b.Receive([]byte("\nline two")))
	require.NoError(t, b.Build())
	pt, err := b.Create(false, EOLLF, false)
	require.NoError(t, err)

	require.Equal(t, 2, pt.GetLineCount())
	require.Equal(t, "line one\r\nline two", pt.GetRawContent())
	line0, err := pt.GetLine(0)
	require.NoError(t, err)
	require.Equal(t, "line one", line0)
}

// TestBuilderLoneCRAtVeryEnd exercises the withheld CR being flushed by
// Build when no further chunk ever arrives (i.e. the document's last
// byte really is a lone CR, not half of a CRLF pair).
func TestBuilderLoneCRAtVeryEnd(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Receive([]byte("abc\r")))
	require.NoError(t, b.Build())
	pt, err := b.Create(false, EOLLF, false)
	require.NoError(t, err)

	require.Equal(t, "abc\r", pt.GetRawContent())
	require.Equal(t, 2, pt.GetLineCount())
}

// TestBuilderSplitMultiByteSequence mirrors spec.md §8 scenario 3: a
// multi-byte UTF-8 sequence split across two Receive calls must survive
// intact in the final content.
func TestBuilderSplitMultiByteSequence(t *testing.T) {
	euro := []byte("\xE2\x82\xAC") // U+20AC, 3-byte sequence
	full := append([]byte("price: "), euro...)
	full = append(full, []byte(" exactly")...)

	b := NewBuilder()
	require.NoError(t, b.Receive(full[:9]))  // splits mid-sequence
	require.NoError(t, b.Receive(full[9:]))
	require.NoError(t, b.Build())
	pt, err := b.Create(false, EOLLF, false)
	require.NoError(t, err)

	require.Equal(t, string(full), pt.GetRawContent())
}

func TestBuilderEOLMajorityVote(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Receive([]byte("a\r\nb\r\nc\nd")))
	require.NoError(t, b.Build())
	pt, err := b.Create(true, EOLLF, false)
	require.NoError(t, err)
	require.Equal(t, "a\r\nb\r\nc\r\nd", pt.GetRawContent())
}

func TestBuilderForceDefaultEOL(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Receive([]byte("a\r\nb\r\nc\nd")))
	require.NoError(t, b.Build())
	pt, err := b.Create(true, EOLLF, true)
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\nd", pt.GetRawContent())
}
