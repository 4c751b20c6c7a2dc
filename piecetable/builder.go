package piecetable

// phase is the Builder's position in the three-phase state machine of
// spec.md §4.6: RECEIVING -> BUILT -> CREATED. Transitions are one-way;
// calling a phase's method out of turn returns an InvalidPhase error.
type phase uint8

const (
	phaseReceiving phase = iota
	phaseBuilt
	phaseCreated
)

// EOL is a line-terminator choice for Builder.Create.
type EOL string

const (
	EOLLF   EOL = "\n"
	EOLCRLF EOL = "\r\n"
)

// Builder ingests a document in chunks and constructs a PieceTable from
// them. It is the only way to obtain a *PieceTable (spec.md §4.6). A
// Builder is used once: Receive* -> Build -> Create.
type Builder struct {
	ph       phase
	buffers  []*textBuffer
	withheld []byte

	totalCR   int
	totalLF   int
	totalCRLF int
}

// NewBuilder returns a Builder ready to receive chunks.
func NewBuilder() *Builder {
	return &Builder{}
}

// Receive ingests one chunk of raw bytes as a new TextBuffer, repairing
// any CR or incomplete multi-byte UTF-8 sequence split across this
// chunk's trailing edge and the next call's leading edge (spec.md §4.6
// step 2, adapted per doc.go's UTF-8 code-unit choice).
func (b *Builder) Receive(chunk []byte) error {
	if b.ph != phaseReceiving {
		return errInvalidPhase("Receive called after Build/Create")
	}
	if len(chunk) == 0 && len(b.withheld) == 0 {
		return nil
	}

	data := make([]byte, 0, len(b.withheld)+len(chunk))
	data = append(data, b.withheld...)
	data = append(data, chunk...)
	b.withheld = nil

	if n := len(data); n > 0 && data[n-1] == cr {
		b.withheld = []byte{cr}
		data = data[:n-1]
	} else if lead, k := trailingIncompleteUTF8(data); k > 0 {
		b.withheld = lead
		data = data[:len(data)-k]
	}

	stats := readLineStarts(data)
	b.totalCR += stats.cr
	b.totalLF += stats.lf
	b.totalCRLF += stats.crlf
	b.buffers = append(b.buffers, newTextBuffer(data))
	return nil
}

// trailingIncompleteUTF8 walks backward from the end of data, through
// any run of continuation bytes, to find a lead byte whose declared
// sequence length exceeds the bytes actually present. It returns the
// incomplete trailing run (to withhold) and its length, or (nil, 0) if
// data's tail is already complete.
func trailingIncompleteUTF8(data []byte) ([]byte, int) {
	n := len(data)
	maxBack := 3
	if n < maxBack {
		maxBack = n
	}
	for k := 1; k <= maxBack; k++ {
		switch Classify(data[n-k]) {
		case ClassContinuationByte:
			continue
		case ClassLeadByte:
			if need := leadByteSeqLen(data[n-k]); need > k {
				return append([]byte{}, data[n-k:]...), k
			}
			return nil, 0
		default:
			return nil, 0
		}
	}
	return nil, 0
}

// Build flushes any withheld bytes into the last received buffer (or
// creates a single empty buffer if Receive was never called) and moves
// the Builder to the BUILT phase.
func (b *Builder) Build() error {
	if b.ph != phaseReceiving {
		return errInvalidPhase("Build called twice or after Create")
	}
	b.ph = phaseBuilt

	if len(b.buffers) == 0 {
		b.buffers = append(b.buffers, newTextBuffer(nil))
	}
	if len(b.withheld) > 0 {
		last := b.buffers[len(b.buffers)-1]
		last.appendChunk(b.withheld)
		if b.withheld[0] == cr {
			b.totalCR++
		}
		b.withheld = nil
	}
	return nil
}

// Create decides the document's normalized EOL (by majority vote over
// the terminators observed during Receive, unless force is set) and
// constructs the PieceTable, optionally rewriting every buffer to use
// that EOL throughout (spec.md §4.6 step 4).
//
// defaultEOL is used verbatim when the document has no terminators at
// all, or when force is true; an empty defaultEOL defaults to EOLLF.
func (b *Builder) Create(normalizeEOL bool, defaultEOL EOL, force bool) (*PieceTable, error) {
	if b.ph == phaseReceiving {
		return nil, errInvalidPhase("Create called before Build")
	}
	if b.ph == phaseCreated {
		return nil, errInvalidPhase("Create called twice")
	}
	b.ph = phaseCreated

	if defaultEOL == "" {
		defaultEOL = EOLLF
	}

	crVariant := b.totalCR + b.totalCRLF
	totalTerm := crVariant + b.totalLF

	var eol EOL
	switch {
	case totalTerm == 0 || force:
		eol = defaultEOL
	case crVariant*2 > totalTerm:
		eol = EOLCRLF
	default:
		eol = EOLLF
	}

	if normalizeEOL {
		for _, buf := range b.buffers {
			buf.normalizeEOL(string(eol))
		}
	}

	return newPieceTableFromBuffers(b.buffers), nil
}
