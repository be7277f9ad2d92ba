package container

// tableHeaderSize is the packed size of the _TABLE_HEADER structure: seven
// uint32 fields.
const tableHeaderSize = 7 * 4

// TableHeader is the fixed header preceding every table's record-offset
// vector (spec §3 "Table").
type TableHeader struct {
	TableSize          uint32
	TableId            RecordType
	RecordCount        uint32
	RecordsOffset      uint32
	IndexesOffset      uint32
	FreeListHead       uint32
	RecordNumbersCount uint32
}

// Table is a parsed table: its header plus the list of valid per-record
// offsets, relative to the table's base (headerSize + tableBaseOffset, per
// spec §4.2's "three-tier" record base).
type Table struct {
	Header TableHeader
	// Base is headerSize + the table's schema-relative offset: the value
	// record extractors add their RecordOffset to.
	Base int
	// RecordOffsets are relative to Base.
	RecordOffsets []uint32
}

// ParseTable reads the table header at the absolute file offset
// HeaderSize() + tableOffset, where tableOffset is the table's
// schema-relative offset (an entry of Schema.TableOffsets), and walks its
// per-record-offset vector.
//
// The vector is sparse in practice (deleted records leave holes), so the
// walk uses two cursors: a slot index that scans forward unconditionally,
// and a collected-offsets count that stops only once RecordCount valid
// slots have been found. A slot is valid iff its offset is non-zero and
// 4-byte aligned (spec §4.3); recordCount never bounds the slot cursor
// directly, to tolerate the holes. If the slot cursor runs off the end of
// the buffer before collecting RecordCount offsets, the walk stops and
// returns what it has collected (spec §8 boundary case): a truncated or
// corrupt table never panics the caller.
func ParseTable(a *Accessor, tableOffset uint32) Table {
	base := HeaderSize() + int(tableOffset)
	hdr := TableHeader{
		TableSize:          a.ReadU32(base),
		TableId:            RecordType(a.ReadU32(base + 4)),
		RecordCount:        a.ReadU32(base + 8),
		RecordsOffset:      a.ReadU32(base + 12),
		IndexesOffset:      a.ReadU32(base + 16),
		FreeListHead:       a.ReadU32(base + 20),
		RecordNumbersCount: a.ReadU32(base + 24),
	}

	vectorBase := base + tableHeaderSize
	offsets := make([]uint32, 0, hdr.RecordCount)
	for slot := 0; uint32(len(offsets)) < hdr.RecordCount; slot++ {
		slotOff := vectorBase + slot*4
		if !a.inBounds(slotOff, 4) {
			break
		}
		recOff := a.ReadU32(slotOff)
		if recOff != 0 && recOff%4 == 0 {
			offsets = append(offsets, recOff)
		}
	}

	return Table{Header: hdr, Base: base, RecordOffsets: offsets}
}

// BuildTableIndex returns a mapping from CSSM record-type constant to the
// position of the matching table within tables, enabling lookup of a table
// by record type (spec §4.3 buildTableIndex).
func BuildTableIndex(tables []Table) map[RecordType]int {
	idx := make(map[RecordType]int, len(tables))
	for i, t := range tables {
		idx[t.Header.TableId] = i
	}
	return idx
}

// RecordBase computes the absolute, three-tier record base described in
// spec §4.2: headerSize + tableBaseOffset + recordOffset, collapsed to
// table.Base (which already folds in headerSize and the table's
// schema-relative offset) plus one of table.RecordOffsets.
func RecordBase(table Table, recordOffset uint32) int {
	return table.Base + int(recordOffset)
}
