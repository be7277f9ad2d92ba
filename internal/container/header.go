package container

import "errors"

// Signature is the 4-byte magic every valid keychain file begins with.
const Signature = "kych"

// headerSize is the fixed, packed size of the APPL_DB_HEADER structure:
// Signature[4] + Version + HeaderSize + SchemaOffset + AuthOffset, four
// uint32 fields following the signature.
const headerSize = 4 + 4*4

// Header is the fixed file header described in spec §3. All offsets are
// absolute from the start of the file.
type Header struct {
	Signature    string
	Version      uint32
	HeaderSize   uint32
	SchemaOffset uint32
	AuthOffset   uint32
}

// ErrInvalidSignature is returned by ParseHeader when the file does not
// begin with the "kych" magic.
var ErrInvalidSignature = errors.New("container: invalid keychain signature")

// ParseHeader reads the fixed header at the start of the buffer. It is the
// only operation in this package that returns an error: a bad signature is
// a structural, top-level failure (spec §7 category 1).
func ParseHeader(a *Accessor) (Header, error) {
	sig := a.ReadBytes(0, 4)
	if string(sig) != Signature {
		return Header{}, ErrInvalidSignature
	}
	h := Header{
		Signature:    string(sig),
		Version:      a.ReadU32(4),
		HeaderSize:   a.ReadU32(8),
		SchemaOffset: a.ReadU32(12),
		AuthOffset:   a.ReadU32(16),
	}
	return h, nil
}

// Schema is the schema directory described in spec §3: a table count
// followed by that many table offsets, each relative to the end of the file
// header.
type Schema struct {
	SchemaSize uint32
	TableCount uint32
	// TableOffsets are relative to the end of the file header (headerSize),
	// not absolute file offsets.
	TableOffsets []uint32
}

// schemaHeaderSize is SchemaSize + TableCount, two uint32 fields.
const schemaHeaderSize = 4 + 4

// ParseSchema reads the schema directory at schemaOffset (absolute file
// offset, taken from Header.SchemaOffset).
func ParseSchema(a *Accessor, schemaOffset uint32) Schema {
	s := Schema{
		SchemaSize: a.ReadU32(int(schemaOffset)),
		TableCount: a.ReadU32(int(schemaOffset) + 4),
	}
	base := int(schemaOffset) + schemaHeaderSize
	s.TableOffsets = make([]uint32, 0, s.TableCount)
	for i := uint32(0); i < s.TableCount; i++ {
		s.TableOffsets = append(s.TableOffsets, a.ReadU32(base+int(i)*4))
	}
	return s
}

// HeaderSize returns the packed size of the fixed file header, used by
// callers computing "three-tier" record bases (spec §4.2).
func HeaderSize() int {
	return headerSize
}
