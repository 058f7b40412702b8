package hpack

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jpinner/hpack/hpackmetrics"
	"github.com/jpinner/hpack/internal/huffman"
)

type indexType int

const (
	indexNone indexType = iota
	indexIncremental
)

type decoderState int

const (
	stateReadRepresentation decoderState = iota
	stateReadIndexedHeader               // continuation: 7-bit escape index
	stateReadIndexedHeaderName           // continuation: 6-bit escape name index
	stateReadLiteralNameLengthPrefix
	stateReadLiteralNameLength
	stateReadLiteralName
	stateSkipLiteralName
	stateReadLiteralValueLengthPrefix
	stateReadLiteralValueLength
	stateReadLiteralValue
	stateSkipLiteralValue
)

// Decoder implements the HPACK reference-set header-block decoder
// described in spec.md: a resumable, single-threaded, per-connection
// state machine that owns a dynamic header table and reference-set
// overlay persisting across successive calls to Decode and
// EndHeaderBlock (spec §5).
//
// A Decoder is not safe for concurrent use — it belongs to exactly one
// connection, and callers that multiplex streams must serialize their own
// access (spec §5, Non-goals).
type Decoder struct {
	isServer           bool
	huffmanTable       *huffman.Table
	dynamic            *DynamicTable
	maxHeaderSize      int
	maxHeaderTableSize int

	state          decoderState
	idxType        indexType
	huffmanEncoded bool
	nameLength     int
	valueLength    int
	name           []byte
	skipLength     int
	suppressInsert bool
	headerSize     int

	logger  *zap.Logger
	id      uuid.UUID
	metrics hpackmetrics.Collector
}

// NewDecoder constructs a Decoder. isServer selects the request-direction
// Huffman table (a server decodes requests); false selects the
// response-direction table. maxHeaderSize bounds the cumulative emitted
// size of a single header block (spec §4.6); maxHeaderTableSize bounds
// the dynamic table and defaults to DefaultHeaderTableSize when no
// WithMaxHeaderTableSize-equivalent is supplied (spec §6).
func NewDecoder(isServer bool, maxHeaderSize int, opts ...Option) *Decoder {
	table := huffman.ResponseTable
	if isServer {
		table = huffman.RequestTable
	}
	d := &Decoder{
		isServer:           isServer,
		huffmanTable:       table,
		dynamic:            NewDynamicTable(DefaultHeaderTableSize),
		maxHeaderSize:      maxHeaderSize,
		maxHeaderTableSize: DefaultHeaderTableSize,
		logger:             zap.NewNop(),
		id:                 uuid.New(),
		metrics:            noopMetrics{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithMaxHeaderTableSize sets the dynamic table's byte capacity at
// construction, overriding DefaultHeaderTableSize.
func WithMaxHeaderTableSize(n int) Option {
	return func(d *Decoder) {
		d.maxHeaderTableSize = n
		d.dynamic = NewDynamicTable(n)
	}
}

// Decode feeds stream to the state machine, invoking listener.EmitHeader
// for every header field the wire data resolves, in wire order
// interleaved with reference-set toggle emissions (spec §5). It may be
// called repeatedly with arbitrary-size chunks appended to the same
// underlying stream; on exhaustion it returns cleanly with the machine
// suspended, ready to resume on the next call (spec §4.5, §4.6).
//
// A returned error is always a *DecompressionError or *ConfigurationError
// and is fatal: the Decoder's internal state is no longer well-defined
// and the instance should be discarded (spec §7).
func (d *Decoder) Decode(stream StreamReader, listener Listener) error {
	for {
		err := d.step(stream, listener)
		if err == nil {
			continue
		}
		if err == ErrNeedMoreBytes {
			return nil
		}
		return err
	}
}

func (d *Decoder) step(stream StreamReader, listener Listener) error {
	switch d.state {
	case stateReadRepresentation:
		if stream.Available() < 1 {
			return ErrNeedMoreBytes
		}
		b, _ := stream.ReadByte()
		return d.dispatchRepresentation(b, listener)

	case stateReadIndexedHeader:
		idx, err := decodeULE128(stream, 0x7F)
		if err != nil {
			return err
		}
		if err := d.toggleIndex(idx, listener); err != nil {
			return err
		}
		d.resetScratch()
		return nil

	case stateReadIndexedHeaderName:
		idx, err := decodeULE128(stream, 0x3F)
		if err != nil {
			return err
		}
		name, err := d.readName(idx)
		if err != nil {
			return err
		}
		d.name = name
		d.nameLength = len(name)
		d.state = stateReadLiteralValueLengthPrefix
		return nil

	case stateReadLiteralNameLengthPrefix:
		if stream.Available() < 1 {
			return ErrNeedMoreBytes
		}
		b, _ := stream.ReadByte()
		d.huffmanEncoded = b&0x80 != 0
		prefix := int(b & 0x7F)
		if prefix < 0x7F {
			return d.onNameLength(prefix)
		}
		d.state = stateReadLiteralNameLength
		return nil

	case stateReadLiteralNameLength:
		n, err := decodeULE128(stream, 0x7F)
		if err != nil {
			return err
		}
		return d.onNameLength(n)

	case stateReadLiteralName:
		if stream.Available() < d.nameLength {
			return ErrNeedMoreBytes
		}
		buf := make([]byte, d.nameLength)
		stream.Read(buf)
		name, err := decodeString(buf, d.huffmanEncoded, d.huffmanTable)
		if err != nil {
			return err
		}
		d.name = name
		d.state = stateReadLiteralValueLengthPrefix
		return nil

	case stateSkipLiteralName:
		skipped := stream.Skip(d.skipLength)
		d.skipLength -= skipped
		if d.skipLength > 0 {
			return ErrNeedMoreBytes
		}
		d.name = nil
		d.state = stateReadLiteralValueLengthPrefix
		return nil

	case stateReadLiteralValueLengthPrefix:
		if stream.Available() < 1 {
			return ErrNeedMoreBytes
		}
		b, _ := stream.ReadByte()
		d.huffmanEncoded = b&0x80 != 0
		prefix := int(b & 0x7F)
		if prefix < 0x7F {
			return d.onValueLength(prefix)
		}
		d.state = stateReadLiteralValueLength
		return nil

	case stateReadLiteralValueLength:
		n, err := decodeULE128(stream, 0x7F)
		if err != nil {
			return err
		}
		return d.onValueLength(n)

	case stateReadLiteralValue:
		if stream.Available() < d.valueLength {
			return ErrNeedMoreBytes
		}
		buf := make([]byte, d.valueLength)
		stream.Read(buf)
		value, err := decodeString(buf, d.huffmanEncoded, d.huffmanTable)
		if err != nil {
			return err
		}
		d.finishLiteral(value, listener)
		d.resetScratch()
		return nil

	case stateSkipLiteralValue:
		skipped := stream.Skip(d.skipLength)
		d.skipLength -= skipped
		if d.skipLength > 0 {
			return ErrNeedMoreBytes
		}
		d.resetScratch()
		return nil
	}
	return nil
}

// dispatchRepresentation consumes the lead byte of a new representation
// (spec §4.5): top bit set is an Indexed Header Field, clear is a
// Literal Header Field.
func (d *Decoder) dispatchRepresentation(b byte, listener Listener) error {
	if b&0x80 != 0 {
		i := int(b & 0x7F)
		switch {
		case i == 0:
			d.logger.Debug("hpack: clearing reference set", zap.String("decoder", d.id.String()))
			d.dynamic.ClearReferenceSet()
			d.resetScratch()
			return nil
		case i == 0x7F:
			d.state = stateReadIndexedHeader
			return nil
		default:
			if err := d.toggleIndex(i, listener); err != nil {
				return err
			}
			d.resetScratch()
			return nil
		}
	}

	d.idxType = indexIncremental
	if b&0x40 == 0x40 {
		d.idxType = indexNone
	}
	i := int(b & 0x3F)
	switch {
	case i == 0:
		d.state = stateReadLiteralNameLengthPrefix
		return nil
	case i == 0x3F:
		d.state = stateReadIndexedHeaderName
		return nil
	default:
		name, err := d.readName(i)
		if err != nil {
			return err
		}
		d.name = name
		d.nameLength = len(name)
		d.state = stateReadLiteralValueLengthPrefix
		return nil
	}
}

// toggleIndex implements the Indexed Header Field toggle semantics (spec
// §4.5): flip dynamic-entry reference-set membership, or unconditionally
// insert a fresh copy of a static entry into the dynamic table.
func (d *Decoder) toggleIndex(idx int, listener Listener) error {
	count := d.dynamic.Length()
	switch {
	case idx >= 1 && idx <= count:
		entry, err := d.dynamic.GetEntry(idx)
		if err != nil {
			return err
		}
		if entry.inReferenceSet {
			entry.inReferenceSet = false
		} else {
			entry.inReferenceSet = true
			entry.emittedThisBlock = true
			d.emitHeader(entry.Name(), entry.Value(), listener)
		}
		return nil
	case idx <= count+STATIC_LENGTH:
		name, value, err := staticEntry(idx - count)
		if err != nil {
			return err
		}
		d.insertHeader([]byte(name), []byte(value), indexIncremental, listener)
		return nil
	default:
		return decompressionError(ErrIndexOutOfRange)
	}
}

// readName resolves a literal representation's indexed name (spec §4.5).
func (d *Decoder) readName(idx int) ([]byte, error) {
	count := d.dynamic.Length()
	if idx >= 1 && idx <= count {
		e, err := d.dynamic.GetEntry(idx)
		if err != nil {
			return nil, err
		}
		return e.Name(), nil
	}
	if idx <= count+STATIC_LENGTH {
		name, _, err := staticEntry(idx - count)
		if err != nil {
			return nil, err
		}
		return []byte(name), nil
	}
	return nil, decompressionError(ErrIndexOutOfRange)
}

// onNameLength is reached once a literal's name byte-length is fully
// known, whether it came from the 7-bit prefix directly or a ULE128
// continuation (spec §4.5 length-prefix states; §4.6 size accounting).
func (d *Decoder) onNameLength(n int) error {
	if n == 0 {
		return decompressionError(ErrEmptyLiteralName)
	}
	d.nameLength = n

	if d.headerSize+n > d.maxHeaderSize {
		d.headerSize = d.maxHeaderSize + 1
		switch {
		case d.idxType == indexNone:
			d.skipLength = n
			d.state = stateSkipLiteralName
			return nil
		case n+OVERHEAD > d.maxHeaderTableSize:
			// indexType == INCREMENTAL but the entry could never fit the
			// table either: the literal is entirely unusable (spec §9
			// design note) — clear the table and drop the whole record.
			d.dynamic.Clear()
			d.metrics.SetDynamicTableSize(0)
			d.suppressInsert = true
			d.skipLength = n
			d.state = stateSkipLiteralName
			return nil
		}
		// Otherwise still read the name: it will be indexed even though
		// this field's own emission is already pinned as truncated.
	}
	d.state = stateReadLiteralName
	return nil
}

// onValueLength mirrors onNameLength for the value (spec §4.5/§4.6),
// using the same inline headerSize comparison with name+value length as
// the projected size.
func (d *Decoder) onValueLength(n int) error {
	d.valueLength = n
	if d.headerSize+d.nameLength+n > d.maxHeaderSize {
		d.headerSize = d.maxHeaderSize + 1
		if d.idxType == indexNone {
			d.skipLength = n
			d.state = stateSkipLiteralValue
			return nil
		}
		// INCREMENTAL: still read the value, it must still be indexed.
	}
	d.state = stateReadLiteralValue
	return nil
}

// finishLiteral is reached once a literal representation's value bytes
// are fully decoded.
func (d *Decoder) finishLiteral(value []byte, listener Listener) {
	if d.suppressInsert {
		return
	}
	d.insertHeader(d.name, value, d.idxType, listener)
}

// insertHeader always emits (subject to emitHeader's truncation guard)
// and, for INCREMENTAL representations, adds the pair to the dynamic
// table (spec §4.6).
func (d *Decoder) insertHeader(name, value []byte, it indexType, listener Listener) {
	d.emitHeader(name, value, listener)
	if it != indexIncremental {
		return
	}
	entry := newHeaderEntry(name, value)
	entry.inReferenceSet = true
	entry.emittedThisBlock = true

	before := d.dynamic.Length()
	sizeBefore := d.dynamic.Size()
	d.dynamic.Add(entry)
	if d.dynamic.Size() < sizeBefore+entry.size() {
		// Evictions (or a full clear, if entry alone exceeded capacity)
		// happened inside Add; surface them to the metrics collector.
		evicted := before - d.dynamic.Length()
		if entry.size() <= d.dynamic.Capacity() {
			// The new entry was inserted and occupies one of the live slots.
			evicted++
		}
		for i := 0; i < evicted; i++ {
			d.metrics.DynamicTableEviction()
		}
	}
	d.metrics.SetDynamicTableSize(d.dynamic.Size())
}

// emitHeader is the single size-guarded emission point (spec §4.6): if
// the running total would stay within maxHeaderSize the listener is
// invoked and headerSize advances; otherwise the emission is silently
// dropped and headerSize is pinned to mark the block as truncated.
func (d *Decoder) emitHeader(name, value []byte, listener Listener) {
	sz := len(name) + len(value)
	if d.headerSize+sz <= d.maxHeaderSize {
		listener.EmitHeader(name, value)
		d.headerSize += sz
		d.metrics.HeaderEmitted()
		return
	}
	d.headerSize = d.maxHeaderSize + 1
	d.metrics.HeaderTruncated()
	d.logger.Warn("hpack: header truncated", zap.String("decoder", d.id.String()), zap.Int("max_header_size", d.maxHeaderSize))
}

// EndHeaderBlock finalizes the current header block: every dynamic entry
// still in the reference set that the wire data did not already emit
// this block is emitted now, newest-first (spec §4.6, §5 ordering
// guarantees), emittedThisBlock flags are cleared, and the state machine
// resets to idle. The return value reports whether any header in this
// block was dropped or truncated.
func (d *Decoder) EndHeaderBlock(listener Listener) bool {
	count := d.dynamic.Length()
	for rank := 1; rank <= count; rank++ {
		entry, err := d.dynamic.GetEntry(rank)
		if err != nil {
			break
		}
		if entry.inReferenceSet && !entry.emittedThisBlock {
			listener.EmitHeader(entry.Name(), entry.Value())
			d.metrics.HeaderEmitted()
		}
		entry.emittedThisBlock = false
	}
	truncated := d.headerSize > d.maxHeaderSize
	d.resetScratch()
	d.headerSize = 0
	return truncated
}

// Reset discards the dynamic table and all reference-set state entirely,
// distinct from EndHeaderBlock's per-block-only reset. Useful when a
// caller detects connection-level desync and wants to recover without
// reallocating a Decoder (SPEC_FULL supplemented feature, grounded on the
// teacher's SetDynamicTableMaxSize(0)-to-force-a-clear idiom).
func (d *Decoder) Reset() {
	d.dynamic.Clear()
	d.metrics.SetDynamicTableSize(0)
	d.resetScratch()
	d.headerSize = 0
}

func (d *Decoder) resetScratch() {
	d.idxType = indexNone
	d.huffmanEncoded = false
	d.nameLength = 0
	d.valueLength = 0
	d.name = nil
	d.skipLength = 0
	d.suppressInsert = false
	d.state = stateReadRepresentation
}

// Stats is a read-only snapshot of decoder activity, for diagnostics
// (SPEC_FULL supplemented feature).
type Stats struct {
	DynamicTableLength int
	DynamicTableSize   int
	DynamicTableCap    int
	HeaderSize         int
}

func (d *Decoder) Stats() Stats {
	return Stats{
		DynamicTableLength: d.dynamic.Length(),
		DynamicTableSize:   d.dynamic.Size(),
		DynamicTableCap:    d.dynamic.Capacity(),
		HeaderSize:         d.headerSize,
	}
}
