package keychain

import (
	"crypto/cipher"
	"crypto/des"
	"encoding/binary"
	"testing"

	"github.com/destlaver/chainbreaker/internal/container"
)

// fileBuilder assembles a synthetic keychain container byte-by-byte,
// mirroring the layout internal/container parses, so the end-to-end tests
// in reader_test.go exercise the real decoder rather than a mock.
type fileBuilder struct {
	buf []byte
}

func (b *fileBuilder) pos() int { return len(b.buf) }

func (b *fileBuilder) u32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *fileBuilder) bytes(p []byte) { b.buf = append(b.buf, p...) }

func (b *fileBuilder) zero(n int) { b.buf = append(b.buf, make([]byte, n)...) }

func (b *fileBuilder) patchU32(off int, v uint32) {
	binary.BigEndian.PutUint32(b.buf[off:off+4], v)
}

// encryptCBC is a standalone 3DES-CBC encryptor used only to build fixtures;
// it deliberately does not share code with internal/crypto.DecryptCBC so the
// two sides of every round trip stay independent.
func encryptCBC(t *testing.T, key, iv, plaintext []byte) []byte {
	t.Helper()
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		t.Fatalf("NewTripleDESCipher: %v", err)
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out
}

// pkcs7Pad appends PKCS#7 padding to round plaintext up to the next 8-byte
// boundary. When the input is already block-aligned, a full block of
// padding is appended (the format never uses zero-length padding).
func pkcs7Pad(plaintext []byte) []byte {
	pad := 8 - len(plaintext)%8
	if pad == 0 {
		pad = 8
	}
	out := append([]byte{}, plaintext...)
	for i := 0; i < pad; i++ {
		out = append(out, byte(pad))
	}
	return out
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// wrapContentKey is the forward (encrypt) counterpart of unwrapContentKey:
// given the wrapping key, the item's own IV, and the desired 24-byte content
// key, it produces the ciphertext a real key-blob record would store for
// unwrapContentKey to recover.
func wrapContentKey(t *testing.T, wrappingKey, iv, contentKey []byte) []byte {
	t.Helper()
	step2Plain := append([]byte{0, 0, 0, 0}, contentKey...)
	reversed := encryptCBC(t, wrappingKey, iv, pkcs7Pad(step2Plain))

	step1 := reverseBytes(reversed)
	return encryptCBC(t, wrappingKey, magicCmsIV, pkcs7Pad(step1))
}

// wrapPrivateKey is the forward counterpart of unwrapPrivateKey.
func wrapPrivateKey(t *testing.T, wrappingKey, iv, label, keyMaterial []byte) []byte {
	t.Helper()
	step2Plain := append(append([]byte{}, label...), keyMaterial...)
	reversed := encryptCBC(t, wrappingKey, iv, pkcs7Pad(step2Plain))

	step1 := reverseBytes(reversed)
	return encryptCBC(t, wrappingKey, magicCmsIV, pkcs7Pad(step1))
}

// fixture holds every piece of known plaintext an end-to-end test asserts
// against, plus the derived ciphertexts needed to lay the container out.
type fixture struct {
	salt        [20]byte
	dbIV        [8]byte
	wrappingKey [24]byte

	contentKeyIV [8]byte
	contentKey   [24]byte
	tag          [20]byte

	ssgpIV    [8]byte
	plaintext []byte

	privateKeyIV    [8]byte
	privateKeyLabel []byte
	privateKeyDER   []byte
}

func newFixture() fixture {
	var f fixture
	copy(f.salt[:], []byte("saltsaltsaltsaltsalt"))
	copy(f.dbIV[:], []byte("dbivdbiv"))
	for i := range f.wrappingKey {
		f.wrappingKey[i] = byte(i)
	}
	copy(f.contentKeyIV[:], []byte("itemiviv"))
	for i := range f.contentKey {
		f.contentKey[i] = byte(0x30 + i)
	}
	copy(f.tag[:], append([]byte("ssgp"), []byte("label-0123456789")...))
	copy(f.ssgpIV[:], []byte("ssgpiviv"))
	f.plaintext = []byte("hello")
	copy(f.privateKeyIV[:], []byte("pkeyivv8"))
	f.privateKeyLabel = []byte("MyKeyLabel\x00\x00")
	f.privateKeyDER = []byte("fake-der-rsa-private-key-bytes-0123")
	return f
}

// fixtureOptions controls which optional pieces build wires in, so
// individual tests can exercise the corrupt-record and private-key paths
// without duplicating the whole layout.
type fixtureOptions struct {
	corruptSymmetricKeyRecord bool
	withPrivateKey            bool
}

// build assembles the full container image. masterKey is the value the DB
// blob's ciphertext is encrypted under (passed in explicitly so callers can
// build a "wrong password" scenario by deriving it from the wrong
// passphrase and reusing the rest of the fixture unchanged).
func (f fixture) build(t *testing.T, masterKey []byte, opts fixtureOptions) []byte {
	t.Helper()
	b := &fileBuilder{}

	b.bytes([]byte(container.Signature))
	b.u32(1)  // version
	b.u32(20) // headerSize (informational only)
	b.u32(20) // schemaOffset
	b.u32(0)  // authOffset

	tableCount := uint32(3)
	if opts.withPrivateKey {
		tableCount = 4
	}
	b.u32(0) // schemaSize (unused by the decoder)
	b.u32(tableCount)
	tableOffsetSlots := make([]int, tableCount)
	for i := range tableOffsetSlots {
		tableOffsetSlots[i] = b.pos()
		b.u32(0) // placeholder, patched once each table's start is known
	}

	starts := []int{
		f.buildMetadataTable(t, b, masterKey),
		f.buildSymmetricKeyTable(t, b, opts.corruptSymmetricKeyRecord),
		f.buildGenericPasswordTable(t, b),
	}
	if opts.withPrivateKey {
		starts = append(starts, f.buildPrivateKeyTable(t, b))
	}
	for i, start := range starts {
		b.patchU32(tableOffsetSlots[i], uint32(start-20))
	}

	return b.buf
}

// tableHeader writes the seven-field _TABLE_HEADER and a single record
// offset slot (for fixture tables that hold exactly one record), returning the
// table's absolute start and the position of the offset slot to patch once
// the record's own start is known.
func tableHeader(b *fileBuilder, tableId container.RecordType) (tableStart, slotPos int) {
	starts, slots := tableHeaderN(b, tableId, 1)
	return starts, slots[0]
}

// tableHeaderN is the multi-record generalization of tableHeader, used by
// scenarios that lay down more than one record in the same table (e.g. one
// valid key-blob record alongside a corrupt one).
func tableHeaderN(b *fileBuilder, tableId container.RecordType, recordCount int) (tableStart int, slotPositions []int) {
	tableStart = b.pos()
	b.u32(0)                      // TableSize (unused by the decoder)
	b.u32(uint32(tableId))        // TableId
	b.u32(uint32(recordCount))    // RecordCount
	b.u32(0)                      // RecordsOffset (unused)
	b.u32(0)                      // IndexesOffset (unused)
	b.u32(0)                      // FreeListHead (unused)
	b.u32(uint32(recordCount))    // RecordNumbersCount (unused)
	slotPositions = make([]int, recordCount)
	for i := range slotPositions {
		slotPositions[i] = b.pos()
		b.u32(0) // placeholder record offset, patched by the caller
	}
	return
}

func patchRecordOffset(b *fileBuilder, tableStart, slotPos int) {
	recordStart := b.pos()
	b.patchU32(slotPos, uint32(recordStart-tableStart))
}

const dbBlobStartCryptoBlob = 92 // CommonBlob(8)+startCryptoBlob(4)+totalLength(4)+randomSig(16)+sequence(4)+params(8)+salt(20)+iv(8)+blobSig(20)

func (f fixture) buildMetadataTable(t *testing.T, b *fileBuilder, masterKey []byte) int {
	tableStart, slotPos := tableHeader(b, container.RecordTypeMetadata)
	patchRecordOffset(b, tableStart, slotPos)

	b.zero(0x38) // metadata record fields preceding the DB blob; unused here

	wrappingKeyCiphertext := encryptCBC(t, masterKey, f.dbIV[:], pkcs7Pad(f.wrappingKey[:]))
	totalLength := dbBlobStartCryptoBlob + len(wrappingKeyCiphertext)

	b.zero(8) // DB blob's own COMMON_BLOB magic+version, unused by ParseDBBlob
	b.u32(dbBlobStartCryptoBlob)
	b.u32(uint32(totalLength))
	b.zero(16)         // randomSignature
	b.u32(0)           // sequence
	b.zero(8)          // idleTimeout + lockOnSleep
	b.bytes(f.salt[:]) // 20 bytes
	b.bytes(f.dbIV[:]) // 8 bytes
	b.zero(20)         // blobSignature
	b.bytes(wrappingKeyCiphertext)

	return tableStart
}

// buildSymmetricKeyTable writes a table with one valid key-blob record. When
// withCorruptSibling is set, a second record with a bad COMMON_BLOB magic is
// appended alongside it: the orchestrator must skip that record and keep
// walking the rest of the table (spec §7 category 4), not abort, so the
// valid record's content key must still surface.
func (f fixture) buildSymmetricKeyTable(t *testing.T, b *fileBuilder, withCorruptSibling bool) int {
	recordCount := 1
	if withCorruptSibling {
		recordCount = 2
	}
	tableStart, slots := tableHeaderN(b, container.RecordTypeSymmetricKey, recordCount)

	patchRecordOffset(b, tableStart, slots[0])
	b.zero(4 + 4 + 0x7C) // _KEY_BLOB_REC_HEADER: RecordSize, RecordCount, reserved

	ciphertext := wrapContentKey(t, f.wrappingKey[:], f.contentKeyIV[:], f.contentKey[:])
	startCryptoBlob := uint32(24)
	totalLength := startCryptoBlob + uint32(len(ciphertext))

	b.u32(container.CommonBlobMagic)
	b.u32(0) // blob version, unused
	b.u32(startCryptoBlob)
	b.u32(totalLength)
	b.bytes(f.contentKeyIV[:])
	b.bytes(ciphertext)
	b.zero(8) // reserved, per spec §3 "then 8 bytes followed by the 20-byte label tag"
	b.bytes(f.tag[:])

	if withCorruptSibling {
		patchRecordOffset(b, tableStart, slots[1])
		b.zero(4 + 4 + 0x7C)
		b.u32(0xDEADBEEF)
		b.zero(16)
	}

	return tableStart
}

func (f fixture) buildGenericPasswordTable(t *testing.T, b *fileBuilder) int {
	tableStart, slotPos := tableHeader(b, container.RecordTypeGenericPassword)
	patchRecordOffset(b, tableStart, slotPos)

	ssgpCiphertext := encryptCBC(t, f.contentKey[:], f.ssgpIV[:], pkcs7Pad(f.plaintext))
	ssgp := append(append(append([]byte{}, f.tag[:]...), f.ssgpIV[:]...), ssgpCiphertext...)

	b.zero(16)                  // RecordSize, RecordNumber, Unknown2, Unknown3
	b.u32(uint32(len(ssgp)))    // SSGPArea
	b.zero(22*4 - 20)           // remaining fixed-header fields, all absent columns
	b.bytes(ssgp)

	return tableStart
}

func (f fixture) buildPrivateKeyTable(t *testing.T, b *fileBuilder) int {
	tableStart, slotPos := tableHeader(b, container.RecordTypePrivateKey)
	patchRecordOffset(b, tableStart, slotPos)

	ciphertext := wrapPrivateKey(t, f.wrappingKey[:], f.privateKeyIV[:], f.privateKeyLabel, f.privateKeyDER)
	// COMMON_BLOB(8) + startCryptoBlob(4) + totalLength(4) + iv(8) = 24: the
	// offset at which the embedded key blob's own ciphertext begins.
	const startCryptoBlob = 24
	totalLength := uint32(startCryptoBlob + len(ciphertext))

	blob := &fileBuilder{}
	blob.u32(container.CommonBlobMagic)
	blob.u32(0) // blob version, unused
	blob.u32(startCryptoBlob)
	blob.u32(totalLength)
	blob.bytes(f.privateKeyIV[:])
	blob.bytes(ciphertext)

	b.zero(16)                       // RecordSize, RecordNumber, Unknown1, Unknown2
	b.u32(uint32(len(blob.buf)))     // BlobSize
	b.zero(33*4 - 20)                 // remaining _SECKEY_HEADER fields, all absent columns
	b.bytes(blob.buf)

	return tableStart
}
