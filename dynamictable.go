package hpack

import (
	"crypto/subtle"

	"github.com/pkg/errors"
)

// OVERHEAD is the fixed per-entry byte cost added to len(name)+len(value)
// when accounting against the dynamic table's capacity (spec §3, §6).
const OVERHEAD = 32

// DefaultHeaderTableSize is used when a Decoder is constructed without an
// explicit maxHeaderTableSize.
const DefaultHeaderTableSize = 4096

// HeaderEntry is one cell of the dynamic table: an immutable name/value
// pair plus the two mutable flags the reference-set overlay needs.
// Everything but those two flags is fixed for the lifetime of the entry —
// entries are destroyed only by eviction or a full table clear, never
// mutated otherwise (spec §3).
type HeaderEntry struct {
	name  []byte
	value []byte

	inReferenceSet   bool
	emittedThisBlock bool
}

// Name and Value return read-only views of the entry's byte strings.
// Callers (notably the decoder's listener callback) must not retain or
// mutate the returned slices beyond the callback's duration.
func (e *HeaderEntry) Name() []byte  { return e.name }
func (e *HeaderEntry) Value() []byte { return e.value }

// size is the entry's byte cost against the table's capacity.
func (e *HeaderEntry) size() int {
	return len(e.name) + len(e.value) + OVERHEAD
}

func newHeaderEntry(name, value []byte) *HeaderEntry {
	// Entries own their bytes; a static table entry copied into the
	// dynamic table (or a caller-supplied slice from a literal
	// representation) must not alias memory the caller might reuse.
	n := append([]byte(nil), name...)
	v := append([]byte(nil), value...)
	return &HeaderEntry{name: n, value: v}
}

// DynamicTable is the bounded, size-evicting, age-indexable ring buffer of
// HeaderEntry slots described in spec §3/§4.4. Index 1 is always the
// youngest live entry, index count the oldest.
type DynamicTable struct {
	slots []*HeaderEntry // ring buffer, len(slots) == ceil(capacity/OVERHEAD)
	head  int            // slot holding the youngest entry
	count int
	size  int
	cap   int
}

// NewDynamicTable builds a table with the given byte capacity.
func NewDynamicTable(capacity int) *DynamicTable {
	t := &DynamicTable{}
	t.setCapacityUnchecked(capacity)
	return t
}

func slotsFor(capacity int) int {
	if capacity <= 0 {
		return 0
	}
	return (capacity + OVERHEAD - 1) / OVERHEAD
}

// Length returns the current number of live entries.
func (t *DynamicTable) Length() int { return t.count }

// Size returns the current sum of entry byte costs.
func (t *DynamicTable) Size() int { return t.size }

// Capacity returns the maximum total byte cost the table may hold.
func (t *DynamicTable) Capacity() int { return t.cap }

// slotIndex converts a 1-based, youngest-first age-rank into a position in
// the backing ring buffer.
func (t *DynamicTable) slotIndex(rank int) int {
	n := len(t.slots)
	return ((t.head-(rank-1))%n + n) % n
}

// GetEntry returns the entry at age-rank i (1 = youngest, count = oldest).
func (t *DynamicTable) GetEntry(i int) (*HeaderEntry, error) {
	if i < 1 || i > t.count {
		return nil, &ConfigurationError{cause: errors.Wrapf(ErrDynamicIndexOutOfRange, "index %d not in [1, %d]", i, t.count)}
	}
	return t.slots[t.slotIndex(i)], nil
}

// constantTimeEqual compares two byte strings length-first, then with a
// constant-time comparison over the remainder, so getIndex/getIndex(name,
// value) do not leak timing information about header field values (spec
// §4.4, testable property 6).
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GetIndex returns the youngest age-rank whose name equals name, or -1.
func (t *DynamicTable) GetIndex(name []byte) int {
	for rank := 1; rank <= t.count; rank++ {
		e := t.slots[t.slotIndex(rank)]
		if constantTimeEqual(e.name, name) {
			return rank
		}
	}
	return -1
}

// GetIndexWithValue returns the youngest age-rank whose name and value
// both equal the given strings, or -1.
func (t *DynamicTable) GetIndexWithValue(name, value []byte) int {
	for rank := 1; rank <= t.count; rank++ {
		e := t.slots[t.slotIndex(rank)]
		if constantTimeEqual(e.name, name) && constantTimeEqual(e.value, value) {
			return rank
		}
	}
	return -1
}

// Add inserts entry as the newest. If its cost alone exceeds capacity the
// whole table is cleared instead (spec §4.4); otherwise oldest entries are
// evicted until there is room.
func (t *DynamicTable) Add(entry *HeaderEntry) {
	cost := entry.size()
	if cost > t.cap {
		t.Clear()
		return
	}
	for t.size+cost > t.cap {
		t.Remove()
	}
	if len(t.slots) == 0 {
		return
	}
	t.head = (t.head + 1) % len(t.slots)
	t.slots[t.head] = entry
	t.count++
	t.size += cost
}

// Remove evicts the oldest entry and returns it. Calling Remove on an
// empty table is a caller bug (spec §4.4) — it panics rather than
// returning a sentinel, since there is no code path in this package that
// should ever hit it.
func (t *DynamicTable) Remove() *HeaderEntry {
	if t.count == 0 {
		panic("hpack: DynamicTable.Remove on empty table")
	}
	oldestSlot := t.slotIndex(t.count)
	evicted := t.slots[oldestSlot]
	t.slots[oldestSlot] = nil
	t.count--
	t.size -= evicted.size()
	return evicted
}

// Clear drops all entries, including their reference-set membership — the
// reference set is a logical view over the table, so clearing the table
// clears it too (spec §3).
func (t *DynamicTable) Clear() {
	for i := range t.slots {
		t.slots[i] = nil
	}
	t.count = 0
	t.size = 0
}

// ClearReferenceSet removes every live entry from the reference set
// without evicting any entry from the table itself — the wire
// representation for this is the indexed header field with index 0
// (spec §4.5, §5).
func (t *DynamicTable) ClearReferenceSet() {
	for rank := 1; rank <= t.count; rank++ {
		e := t.slots[t.slotIndex(rank)]
		e.inReferenceSet = false
	}
}

func (t *DynamicTable) setCapacityUnchecked(capacity int) {
	n := slotsFor(capacity)
	newSlots := make([]*HeaderEntry, n)
	// Preserve youngest-first order: walk ranks 1..min(count, n) from the
	// old layout into the new one before swapping the backing array in.
	keep := t.count
	if keep > n {
		keep = n
	}
	for rank := keep; rank >= 1; rank-- {
		// The old slotIndex helper operates on t.slots/t.head, so resolve
		// the source entry before the table's fields are replaced.
		src := t.slots[t.slotIndex(rank)]
		// Place at the same age-rank in the fresh buffer; head will be
		// set to slot n-1, so age-rank r belongs at slot n-r.
		newSlots[n-rank] = src
	}
	evicted := t.count - keep
	removedSize := 0
	if evicted > 0 {
		for rank := keep + 1; rank <= t.count; rank++ {
			removedSize += t.slots[t.slotIndex(rank)].size()
		}
	}
	t.slots = newSlots
	t.cap = capacity
	t.count = keep
	t.size -= removedSize
	if n == 0 {
		t.head = 0
	} else {
		t.head = (n - 1) % n // slotIndex(1) == head must hold the youngest entry
	}
}

// SetCapacity changes the table's maximum byte cost, evicting the oldest
// entries first if the new capacity is smaller, and reallocating the slot
// array to ceil(c/OVERHEAD) slots while preserving youngest-first order
// (spec §4.4, testable properties 8 and 9).
func (t *DynamicTable) SetCapacity(c int) error {
	if c < 0 {
		return &ConfigurationError{cause: errors.Wrapf(ErrNegativeCapacity, "got %d", c)}
	}
	// Evict first against the OLD capacity's indexing, then reallocate.
	for t.size > c && t.count > 0 {
		t.Remove()
	}
	t.setCapacityUnchecked(c)
	return nil
}
