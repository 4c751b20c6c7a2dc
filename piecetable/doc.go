// Package piecetable implements a piece-table text buffer: an in-memory,
// mutation-friendly representation of a text document built on a
// self-balancing (red-black) tree of pieces over immutable/append-only
// byte buffers.
//
// The document is never materialized as one contiguous string except on
// demand (GetRawContent). Instead, an ordered tree of Piece descriptors
// each name a half-open byte range of one TextBuffer; insertions and
// deletions split, merge, and rebalance pieces in O(log n) rather than
// rewriting the whole document.
//
// A PieceTable is built exclusively through a Builder (three phases:
// Receive, Build, Create) and is not safe for concurrent use — a writer
// needs exclusive access, the same way a single in-process owner edits a
// rope or gap buffer.
package piecetable
