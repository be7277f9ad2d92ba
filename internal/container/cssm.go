package container

// RecordType identifies the purpose of a table via its CSSM record-type
// constant (spec §3 "tableId is a CSSM record-type constant").
//
// The original tool (chainbreaker.py) imports these from a separate Schema
// module that was not retrieved alongside it (see DESIGN.md, "CSSM
// record-type numeric constants"); the values below are internal symbolic
// constants consistent with the original's own tableEnum indirection
// (getTablenametoList maps a table's on-disk TableId to a position in the
// parsed table list) rather than a verified transcription of Apple's
// unpublished-here CSSM headers. Nothing in this package depends on their
// exact numeric value, only on stable identity and lookup.
type RecordType uint32

const (
	RecordTypeMetadata           RecordType = 0x00000000
	RecordTypePublicKey          RecordType = 0x0000000A
	RecordTypePrivateKey         RecordType = 0x0000000B
	RecordTypeSymmetricKey       RecordType = 0x00000010
	RecordTypeGenericPassword    RecordType = 0x80001000
	RecordTypeInternetPassword   RecordType = 0x80001001
	RecordTypeAppleSharePassword RecordType = 0x80001002
	RecordTypeX509Certificate    RecordType = 0x80001004
)

// String returns a human-readable name for a record type, used in notices.
func (r RecordType) String() string {
	switch r {
	case RecordTypeMetadata:
		return "metadata"
	case RecordTypePublicKey:
		return "public key"
	case RecordTypePrivateKey:
		return "private key"
	case RecordTypeSymmetricKey:
		return "symmetric key"
	case RecordTypeGenericPassword:
		return "generic password"
	case RecordTypeInternetPassword:
		return "internet password"
	case RecordTypeAppleSharePassword:
		return "appleshare password"
	case RecordTypeX509Certificate:
		return "X.509 certificate"
	default:
		return "unknown"
	}
}
