package piecetable

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func checkInvariants(t *testing.T, tr *tree) {
	t.Helper()
	if tr.root != tr.nilN {
		require.Equal(t, black, tr.root.color, "root must be black")
	}
	require.Equal(t, black, tr.nilN.color, "sentinel must be black")
	_, err := validateNode(tr, tr.root)
	require.Nil(t, err)
}

func piece(length int) Piece {
	return Piece{BufferIndex: 0, Length: length}
}

// TestTreeInsertRandomPositions inserts nodes at random in-order
// positions and checks every red-black and aggregate invariant after
// each insert, then reads the whole sequence back via nodeAt.
func TestTreeInsertRandomPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tr := newTree()
	var lengths []int

	for i := 0; i < 500; i++ {
		length := 1 + rng.Intn(5)
		n := newPieceNode(piece(length))

		if tr.isEmpty() {
			tr.linkAsRoot(n)
			lengths = []int{length}
		} else {
			pos := rng.Intn(len(lengths) + 1)
			if pos == len(lengths) {
				tr.insertAfter(lastNode(tr), n)
			} else {
				tr.insertBefore(nodeAtIndex(tr, pos), n)
			}
			lengths = append(lengths, 0)
			copy(lengths[pos+1:], lengths[pos:])
			lengths[pos] = length
		}
		checkInvariants(t, tr)
	}

	require.Equal(t, sum(lengths), tr.root.subtreeBufferLength)

	// nodeAt must resolve every offset to the piece the naive model says
	// should own it.
	offset := 0
	for _, l := range lengths {
		n, r := tr.nodeAt(offset)
		require.Equal(t, l, n.piece.Length)
		require.Equal(t, 0, r)
		offset += l
	}
}

// TestTreeDeleteRandom builds a tree then deletes nodes in random order,
// checking invariants after every deletion.
func TestTreeDeleteRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	tr := newTree()
	var nodes []*node

	for i := 0; i < 300; i++ {
		n := newPieceNode(piece(1 + rng.Intn(3)))
		if tr.isEmpty() {
			tr.linkAsRoot(n)
		} else {
			tr.insertAfter(lastNode(tr), n)
		}
		nodes = append(nodes, n)
		checkInvariants(t, tr)
	}

	rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
	for _, n := range nodes {
		tr.deleteNode(n)
		checkInvariants(t, tr)
	}
	require.True(t, tr.isEmpty())
}

// TestNodeAtBoundaryTieBreak exercises the successor-preferred
// tie-break spec.md §4.2 calls load-bearing: at the exact end of a
// piece that has a successor, nodeAt must return the successor with
// remainder zero; only at the end of the document does it return the
// last piece with remainder == length.
func TestNodeAtBoundaryTieBreak(t *testing.T) {
	tr := newTree()
	a := newPieceNode(piece(3))
	tr.linkAsRoot(a)
	b := newPieceNode(piece(4))
	tr.insertAfter(a, b)

	n, r := tr.nodeAt(3)
	require.Same(t, b, n)
	require.Equal(t, 0, r)

	n, r = tr.nodeAt(7)
	require.Same(t, b, n)
	require.Equal(t, 4, r, "end of document falls back to the last node with remainder == length")
}

func sum(xs []int) int {
	s := 0
	for _, x := range xs {
		s += x
	}
	return s
}

func lastNode(tr *tree) *node {
	return tr.maximum(tr.root)
}

// nodeAtIndex returns the i-th node in in-order position (0-based),
// used only by tests to locate a splice anchor by naive index.
func nodeAtIndex(tr *tree, i int) *node {
	var found *node
	count := 0
	tr.inOrder(func(n *node) {
		if count == i && found == nil {
			found = n
		}
		count++
	})
	return found
}
