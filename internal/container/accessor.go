// Package container implements the binary reader for Apple's legacy keychain
// container format: a bounds-checked byte accessor plus the header, schema
// directory, table and per-record-type decoders layered on top of it.
package container

import "encoding/binary"

// Accessor exposes bounds-checked, big-endian reads over a fully buffered
// file image. An out-of-range read never panics: every method returns the
// zero value for the requested type, leaving the caller (a record extractor)
// to decide that a field is simply absent.
type Accessor struct {
	buf []byte
}

// NewAccessor wraps buf. The Accessor does not copy buf; all returned slices
// borrow from it.
func NewAccessor(buf []byte) *Accessor {
	return &Accessor{buf: buf}
}

// Len returns the size of the underlying buffer.
func (a *Accessor) Len() int {
	return len(a.buf)
}

func (a *Accessor) inBounds(off, n int) bool {
	if off < 0 || n < 0 {
		return false
	}
	end := off + n
	return end >= off && end <= len(a.buf)
}

// ReadU32 reads a big-endian uint32 at off. Returns 0 if out of range.
func (a *Accessor) ReadU32(off int) uint32 {
	if !a.inBounds(off, 4) {
		return 0
	}
	return binary.BigEndian.Uint32(a.buf[off : off+4])
}

// ReadBytes returns n raw bytes starting at off. Returns nil if out of
// range.
func (a *Accessor) ReadBytes(off, n int) []byte {
	if !a.inBounds(off, n) {
		return nil
	}
	return a.buf[off : off+n]
}

// ReadFourCC reads a 4-byte four-character code at off. Returns "" if out of
// range. Trailing NULs are not stripped.
func (a *Accessor) ReadFourCC(off int) string {
	b := a.ReadBytes(off, 4)
	if b == nil {
		return ""
	}
	return string(b)
}

// timestampSize is the fixed width of a keychain time column: "YYYYMMDDHHMMSSZ"
// packed into 16 bytes (the trailing byte is a NUL pad).
const timestampSize = 16

// ReadTimestamp reads the 16-byte "YYYYMMDDHHMMSSZ" field at off, returned
// as the raw (non-trimmed) string. Returns "" if out of range. Callers that
// want a parsed time.Time trim the trailing NULs and parse with the layout
// "20060102150405Z" themselves.
func (a *Accessor) ReadTimestamp(off int) string {
	b := a.ReadBytes(off, timestampSize)
	if b == nil {
		return ""
	}
	return string(b)
}

// roundUpToMultipleOf4 rounds n up to the next multiple of 4.
func roundUpToMultipleOf4(n int) int {
	if n%4 == 0 {
		return n
	}
	return (n/4 + 1) * 4
}

// ReadLV reads a 4-byte big-endian length L at off, then returns
// roundUpToMultipleOf4(L) bytes starting at off+4 (spec §4.1: the field
// occupies the padded width on disk, and the value returned is the padded
// slice itself — the accessor does not trim it back down to L). Callers
// that want a bare string trim trailing NULs themselves. Returns nil if the
// length field or the padded region it claims falls outside the buffer.
func (a *Accessor) ReadLV(off int) []byte {
	if !a.inBounds(off, 4) {
		return nil
	}
	length := int(binary.BigEndian.Uint32(a.buf[off : off+4]))
	if length < 0 {
		return nil
	}
	padded := roundUpToMultipleOf4(length)
	return a.ReadBytes(off+4, padded)
}

// MaskOffset clears the low bit reserved as a used/dirty flag on every
// record column offset, per spec §4.2. Offsets must be masked before being
// dereferenced relative to a record base.
func MaskOffset(off uint32) uint32 {
	return off &^ 1
}
