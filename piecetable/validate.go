package piecetable

// Validate walks the entire tree and checks every invariant from
// spec.md §8: red-black coloring, equal black-height on every root-to-
// NIL path, and exact aggregate correctness at each node. It is O(n)
// and exists for tests, not production hot paths.
func (pt *PieceTable) Validate() error {
	t := pt.t
	if t.root != t.nilN && t.root.color != black {
		return &Error{Kind: InvariantViolation, Msg: "root is not black"}
	}
	if t.nilN.color != black {
		return &Error{Kind: InvariantViolation, Msg: "sentinel is not black"}
	}
	_, err := validateNode(t, t.root)
	if err != nil {
		return err
	}
	return validateDocumentOrder(pt)
}

// subtreeTotals recomputes a subtree's length/lfCount directly from its
// pieces, independent of the cached aggregates, so validateNode can
// cross-check the cache rather than trust it.
func subtreeTotals(t *tree, n *node) (length, lf int) {
	if n == t.nilN {
		return 0, 0
	}
	ll, llf := subtreeTotals(t, n.left)
	rl, rlf := subtreeTotals(t, n.right)
	return ll + n.piece.Length + rl, llf + n.piece.LFCount + rlf
}

func validateNode(t *tree, n *node) (blackHeight int, err *Error) {
	if n == t.nilN {
		return 0, nil
	}
	if n.piece.Length <= 0 {
		return 0, &Error{Kind: InvariantViolation, Msg: "zero-or-negative-length piece in tree"}
	}
	if n.color == red && (n.left.color == red || n.right.color == red) {
		return 0, &Error{Kind: InvariantViolation, Msg: "red node has a red child"}
	}
	wantLeftLen, wantLeftLF := subtreeTotals(t, n.left)
	if n.leftSubtreeBufferLength != wantLeftLen || n.leftSubtreeLfCount != wantLeftLF {
		return 0, &Error{Kind: InvariantViolation, Msg: "left-subtree aggregate mismatch"}
	}
	lbh, lerr := validateNode(t, n.left)
	if lerr != nil {
		return 0, lerr
	}
	rbh, rerr := validateNode(t, n.right)
	if rerr != nil {
		return 0, rerr
	}
	if lbh != rbh {
		return 0, &Error{Kind: InvariantViolation, Msg: "unequal black-height across subtrees"}
	}
	bh := lbh
	if n.color == black {
		bh++
	}
	return bh, nil
}

// validateDocumentOrder walks the pieces in document order and checks
// that each one references an existing buffer, that its Start/End
// positions agree with its Length, and that its LFCount matches the
// terminators in its buffer range. It does not check the order of
// pieces relative to each other.
func validateDocumentOrder(pt *PieceTable) error {
	var outerErr *Error
	pt.t.inOrder(func(n *node) {
		if outerErr != nil {
			return
		}
		if n.piece.BufferIndex < 0 || n.piece.BufferIndex >= len(pt.buffers) {
			outerErr = &Error{Kind: InvariantViolation, Msg: "piece references an unknown buffer"}
			return
		}
		buf := pt.buffers[n.piece.BufferIndex]
		start := buf.positionToOffset(n.piece.Start)
		end := buf.positionToOffset(n.piece.End)
		if end-start != n.piece.Length {
			outerErr = &Error{Kind: InvariantViolation, Msg: "piece Start/End disagree with Length"}
			return
		}
		if countLFInRange(buf, start, end) != n.piece.LFCount {
			outerErr = &Error{Kind: InvariantViolation, Msg: "piece LFCount disagrees with its buffer range"}
		}
	})
	if outerErr != nil {
		return outerErr
	}
	return nil
}
