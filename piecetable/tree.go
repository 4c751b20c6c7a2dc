package piecetable

// tree is a red-black tree of Pieces, ordered left-to-right by document
// position. It implements the standard CLRS insert/delete with the
// per-node aggregate bookkeeping required by spec.md §4.2.
type tree struct {
	root *node
	nilN *node
}

func newTree() *tree {
	n := newSentinel()
	return &tree{root: n, nilN: n}
}

func (t *tree) isEmpty() bool {
	return t.root == t.nilN
}

func newPieceNode(p Piece) *node {
	return &node{piece: p, color: red}
}

// --- rotations -------------------------------------------------------

// rotateLeft and rotateRight recompute the aggregates of exactly the two
// rotated nodes, in child-before-parent order, per spec.md §4.2/§9.
func (t *tree) rotateLeft(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.nilN {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.nilN:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y

	x.recomputeSelf(t.nilN)
	y.recomputeSelf(t.nilN)
}

func (t *tree) rotateRight(x *node) {
	y := x.left
	x.left = y.right
	if y.right != t.nilN {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.nilN:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y

	x.recomputeSelf(t.nilN)
	y.recomputeSelf(t.nilN)
}

// updateAggregatesUpward recomputes n and every ancestor of n, in
// bottom-up order, up to and including the root.
func (t *tree) updateAggregatesUpward(n *node) {
	for n != t.nilN {
		n.recomputeSelf(t.nilN)
		n = n.parent
	}
}

// --- predecessor / successor ------------------------------------------

func (t *tree) minimum(n *node) *node {
	for n.left != t.nilN {
		n = n.left
	}
	return n
}

func (t *tree) maximum(n *node) *node {
	for n.right != t.nilN {
		n = n.right
	}
	return n
}

func (t *tree) successor(n *node) *node {
	if n.right != t.nilN {
		return t.minimum(n.right)
	}
	p := n.parent
	for p != t.nilN && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *tree) predecessor(n *node) *node {
	if n.left != t.nilN {
		return t.maximum(n.left)
	}
	p := n.parent
	for p != t.nilN && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

// --- insertion ----------------------------------------------------------

// linkAsRoot installs n as the sole node of an empty tree.
func (t *tree) linkAsRoot(n *node) {
	n.left, n.right, n.parent = t.nilN, t.nilN, t.nilN
	n.color = black
	t.root = n
	n.recomputeSelf(t.nilN)
}

// insertBefore splices newNode into the tree as the in-order predecessor
// of n (spec.md §4.3 case "r = 0, insert strictly before N").
func (t *tree) insertBefore(n, newNode *node) {
	newNode.left, newNode.right = t.nilN, t.nilN
	if n.left == t.nilN {
		n.left = newNode
		newNode.parent = n
	} else {
		pred := t.maximum(n.left)
		pred.right = newNode
		newNode.parent = pred
	}
	t.updateAggregatesUpward(newNode)
	t.insertFixup(newNode)
}

// insertAfter splices newNode into the tree as the in-order successor of
// n (spec.md §4.3 case "r = piece.length, insert strictly after N").
func (t *tree) insertAfter(n, newNode *node) {
	newNode.left, newNode.right = t.nilN, t.nilN
	if n.right == t.nilN {
		n.right = newNode
		newNode.parent = n
	} else {
		succ := t.minimum(n.right)
		succ.left = newNode
		newNode.parent = succ
	}
	t.updateAggregatesUpward(newNode)
	t.insertFixup(newNode)
}

func (t *tree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateRight(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateLeft(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

// --- deletion -----------------------------------------------------------

func (t *tree) transplant(u, v *node) {
	switch {
	case u.parent == t.nilN:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

// deleteNode removes z from the tree, per spec.md §4.4 step 5 / the
// classic CLRS algorithm, then recomputes aggregates from the splice
// point upward.
func (t *tree) deleteNode(z *node) {
	y := z
	yOriginalColor := y.color
	var x *node

	if z.left == t.nilN {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nilN {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minimum(z.right)
		yOriginalColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	t.updateAggregatesUpward(x.parent)

	if yOriginalColor == black {
		t.deleteFixup(x)
	}
	t.nilN.parent = t.nilN
}

func (t *tree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rotateRight(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.rotateLeft(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.rotateLeft(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rotateRight(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}

// --- position lookups ---------------------------------------------------

// nodeAt locates the node whose piece contains byte offset, descending
// per spec.md §4.2. At an exact piece boundary it prefers the successor
// (the convention spec.md calls "load-bearing for insertAt").
func (t *tree) nodeAt(offset int) (n *node, remainder int) {
	x := t.root
	for x != t.nilN {
		if x.leftSubtreeBufferLength > offset {
			x = x.left
			continue
		}
		pieceEnd := x.leftSubtreeBufferLength + x.piece.Length
		if offset < pieceEnd {
			return x, offset - x.leftSubtreeBufferLength
		}
		if offset == pieceEnd {
			if succ := t.successor(x); succ != t.nilN {
				return succ, 0
			}
			return x, x.piece.Length
		}
		offset -= pieceEnd
		x = x.right
	}
	return t.nilN, 0
}

// nodeAtLine locates the node whose piece contains the start of line
// lineNumber, keyed on terminator counts instead of byte offsets.
//
// Unlike nodeAt, this cannot simply compare cumulative counts with a
// strict "<" and a single equality tie-break: a piece with LFCount == 0
// contributes no terminators at all, so whole runs of consecutive
// pieces can share the same leftSubtreeLfCount. Left-descent therefore
// uses ">=" to always land on the *first* node of such a run, and the
// "contains" test returns as soon as the target terminator index falls
// at or before this node's own terminator count - including exactly at
// its end, which is harmless: the caller always computes an absolute
// buffer position from (node, lfRemainder) and that position is
// correct whether it lands mid-piece or exactly on the boundary with
// the next piece.
func (t *tree) nodeAtLine(lineNumber int) (n *node, lfRemainder int) {
	if lineNumber == 0 {
		if t.isEmpty() {
			return t.nilN, 0
		}
		return t.minimum(t.root), 0
	}
	x := t.root
	remaining := lineNumber
	for x != t.nilN {
		if x.leftSubtreeLfCount >= remaining {
			x = x.left
			continue
		}
		within := remaining - x.leftSubtreeLfCount
		if within <= x.piece.LFCount {
			return x, within
		}
		remaining -= x.leftSubtreeLfCount + x.piece.LFCount
		x = x.right
	}
	return t.nilN, 0
}

// nodeStartOffset returns the absolute document byte offset at which n's
// piece begins, by summing leftSubtreeBufferLength along the path to the
// root.
func (t *tree) nodeStartOffset(n *node) int {
	offset := n.leftSubtreeBufferLength
	for p := n.parent; p != t.nilN; p = p.parent {
		if n == p.right {
			offset += p.leftSubtreeBufferLength + p.piece.Length
		}
		n = p
	}
	return offset
}

// nodeStartLine returns the line number at which n's piece begins.
func (t *tree) nodeStartLine(n *node) int {
	line := n.leftSubtreeLfCount
	for p := n.parent; p != t.nilN; p = p.parent {
		if n == p.right {
			line += p.leftSubtreeLfCount + p.piece.LFCount
		}
		n = p
	}
	return line
}

// forEach performs a pre-order traversal, never invoking fn on the NIL
// sentinel (spec.md §6).
func (t *tree) forEach(fn func(p Piece)) {
	t.forEachNode(t.root, fn)
}

func (t *tree) forEachNode(n *node, fn func(p Piece)) {
	if n == t.nilN {
		return
	}
	fn(n.piece)
	t.forEachNode(n.left, fn)
	t.forEachNode(n.right, fn)
}

// inOrder performs an in-order traversal, yielding pieces in document
// order (used by GetRawContent, by Validate's per-piece checks, and by
// tests).
func (t *tree) inOrder(fn func(n *node)) {
	t.inOrderNode(t.root, fn)
}

func (t *tree) inOrderNode(n *node, fn func(n *node)) {
	if n == t.nilN {
		return
	}
	t.inOrderNode(n.left, fn)
	fn(n)
	t.inOrderNode(n.right, fn)
}
