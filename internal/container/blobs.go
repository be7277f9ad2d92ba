package container

// CommonBlobMagic is the magic every COMMON_BLOB-shaped structure begins
// with (spec §6 "COMMON_BLOB.magic expected in key blobs").
const CommonBlobMagic = 0xFADE0711

// commonBlobSize: Magic uint32 + BlobVersion uint32.
const commonBlobSize = 8

// ParseKeyBlob reads a COMMON_BLOB-shaped key blob (spec §3 "Key blob
// record" layout, reused for both the public/private key table's embedded
// blob and any other COMMON_BLOB consumer): magic, version,
// startCryptoBlob, totalLength, an 8-byte IV, then ciphertext from
// startCryptoBlob to totalLength.
//
// Returns ok=false if the magic does not match (spec §7 category 4:
// malformed key blob, record skipped) or the ciphertext length is not a
// positive multiple of 8.
func ParseKeyBlob(a *Accessor) (iv, ciphertext []byte, ok bool) {
	magic := a.ReadU32(0)
	if magic != CommonBlobMagic {
		return nil, nil, false
	}
	startCryptoBlob := a.ReadU32(commonBlobSize)
	totalLength := a.ReadU32(commonBlobSize + 4)
	iv = a.ReadBytes(commonBlobSize+8, 8)

	cipherLen := int(totalLength) - int(startCryptoBlob)
	if cipherLen <= 0 || cipherLen%8 != 0 {
		return nil, nil, false
	}
	ciphertext = a.ReadBytes(int(startCryptoBlob), cipherLen)
	if iv == nil || ciphertext == nil {
		return nil, nil, false
	}
	return iv, ciphertext, true
}

// SymmetricKeyBlob is a decoded entry from the symmetric-key table (spec §3
// "Key blob record"): the 20-byte label tag it is stored under, plus its
// encrypted content-key ciphertext and IV, ready for
// keychain.unwrapContentKey.
type SymmetricKeyBlob struct {
	Tag        [20]byte
	IV         []byte
	Ciphertext []byte
}

// secureStorageGroup is the ASCII marker a symmetric-key blob's
// totalLength+8 bytes must equal (spec §3 key blob record invariant, §9 Open
// Question: confirmed as "ssgp").
const secureStorageGroup = "ssgp"

// keyBlobRecHeaderSize: RecordSize uint32 + RecordCount uint32 + a 0x7C
// reserved area (the _KEY_BLOB_REC_HEADER "Dummy" field).
const keyBlobRecHeaderSize = 4 + 4 + 0x7C

// ParseSymmetricKeyBlob decodes the key-blob record whose fixed header
// starts at recordBase, inside the symmetric-key table. Returns ok=false if
// the record is malformed (bad COMMON_BLOB magic, the "ssgp" group marker
// does not match, or the ciphertext length is not a multiple of 8): the
// orchestrator skips the record and continues (spec §7 category 4).
func ParseSymmetricKeyBlob(a *Accessor, recordBase int) (SymmetricKeyBlob, bool) {
	payloadBase := recordBase + keyBlobRecHeaderSize
	magic := a.ReadU32(payloadBase)
	if magic != CommonBlobMagic {
		return SymmetricKeyBlob{}, false
	}
	startCryptoBlob := a.ReadU32(payloadBase + commonBlobSize)
	totalLength := a.ReadU32(payloadBase + commonBlobSize + 4)
	iv := a.ReadBytes(payloadBase+commonBlobSize+8, 8)

	marker := a.ReadBytes(payloadBase+int(totalLength)+8, 4)
	if string(marker) != secureStorageGroup {
		return SymmetricKeyBlob{}, false
	}

	cipherLen := int(totalLength) - int(startCryptoBlob)
	if cipherLen <= 0 || cipherLen%8 != 0 {
		return SymmetricKeyBlob{}, false
	}
	ciphertext := a.ReadBytes(payloadBase+int(startCryptoBlob), cipherLen)
	// The 20-byte match tag starts at the same offset as the 4-byte "ssgp"
	// marker just checked above: the marker is the tag's own first 4 bytes,
	// not a separate field ahead of it.
	tagBytes := a.ReadBytes(payloadBase+int(totalLength)+8, 20)
	if iv == nil || ciphertext == nil || tagBytes == nil {
		return SymmetricKeyBlob{}, false
	}

	var blob SymmetricKeyBlob
	copy(blob.Tag[:], tagBytes)
	blob.IV = iv
	blob.Ciphertext = ciphertext
	return blob, true
}

// DBBlob is the metadata table's database blob (spec §3 "DB blob"), holding
// the salt and IV used to derive and recover the 24-byte wrapping key.
type DBBlob struct {
	Salt       [20]byte
	IV         [8]byte
	Ciphertext []byte
}

// dbBlobOffset is the fixed offset of the DB blob inside the metadata
// table's first record (spec §6 "DB blob offset inside the metadata
// table's first record: 0x38").
const dbBlobOffset = 0x38

// DB_BLOB layout: CommonBlob(8) + startCryptoBlob(4) + totalLength(4) +
// randomSignature(16) + sequence(4) + params(8) + salt(20) + iv(8) +
// blobSignature(20).
const (
	dbBlobStartCryptoOff = commonBlobSize
	dbBlobTotalLenOff    = commonBlobSize + 4
	dbBlobSaltOff        = commonBlobSize + 4 + 4 + 16 + 4 + 8
	dbBlobIVOff          = dbBlobSaltOff + 20
)

// ParseDBBlob decodes the DB blob embedded in the metadata table's record
// at metadataRecordBase (the metadata table's three-tier record base, per
// spec §4.2, with the fixed dbBlobOffset added).
func ParseDBBlob(a *Accessor, metadataRecordBase int) DBBlob {
	base := metadataRecordBase + dbBlobOffset

	startCryptoBlob := a.ReadU32(base + dbBlobStartCryptoOff)
	totalLength := a.ReadU32(base + dbBlobTotalLenOff)

	var blob DBBlob
	if salt := a.ReadBytes(base+dbBlobSaltOff, 20); salt != nil {
		copy(blob.Salt[:], salt)
	}
	if iv := a.ReadBytes(base+dbBlobIVOff, 8); iv != nil {
		copy(blob.IV[:], iv)
	}
	blob.Ciphertext = a.ReadBytes(base+int(startCryptoBlob), int(totalLength)-int(startCryptoBlob))
	return blob
}

// UnlockBlob is the system "unlock" blob format (spec §3 "System unlock
// blob"), as stored in /var/db/SystemKey: a COMMON_BLOB, the 24-byte master
// key (pre-unwrapped for the system keychain), and a 16-byte signature.
type UnlockBlob struct {
	MasterKey [24]byte
}

// unlockBlobMasterKeyOff: CommonBlob(8) then the 24-byte master key.
const unlockBlobMasterKeyOff = commonBlobSize

// ParseUnlockBlob decodes the contents of a system unlock file.
func ParseUnlockBlob(buf []byte) UnlockBlob {
	a := NewAccessor(buf)
	var blob UnlockBlob
	if key := a.ReadBytes(unlockBlobMasterKeyOff, 24); key != nil {
		copy(blob.MasterKey[:], key)
	}
	return blob
}

// SSGPHeader is the fixed portion of an SSGP payload (spec §3 "SSGP
// payload"): 4-byte magic, 16-byte label, 8-byte IV. The first 20 bytes of
// the payload (magic+label) double as the content-key lookup tag.
type SSGPHeader struct {
	IV  [8]byte
	Tag [20]byte
}

// ssgpHeaderSize: magic(4) + label(16) + iv(8).
const ssgpHeaderSize = 4 + 16 + 8

// ParseSSGP decodes the fixed header of an SSGP payload and returns the
// tail ciphertext. Returns ok=false if payload is shorter than the fixed
// header.
func ParseSSGP(payload []byte) (hdr SSGPHeader, ciphertext []byte, ok bool) {
	if len(payload) < ssgpHeaderSize {
		return SSGPHeader{}, nil, false
	}
	copy(hdr.Tag[:], payload[0:20])
	copy(hdr.IV[:], payload[20:28])
	return hdr, payload[ssgpHeaderSize:], true
}
