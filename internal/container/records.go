package container

// column resolves a record-header field that holds a column offset: it
// clears the offset's low bit (spec §4.2 "offset-with-flag-bit trick") and
// reports whether the column is present at all (an offset of 0 after
// masking means "absent", per spec §4.1).
type column struct {
	recordBase int
	a          *Accessor
}

func (c column) present(raw uint32) (int, bool) {
	masked := MaskOffset(raw)
	if masked == 0 {
		return 0, false
	}
	return c.recordBase + int(masked), true
}

// lv resolves a length-prefixed field.
func (c column) lv(raw uint32) []byte {
	off, ok := c.present(raw)
	if !ok {
		return nil
	}
	return c.a.ReadLV(off)
}

// fourCC resolves a four-character-code field.
func (c column) fourCC(raw uint32) string {
	off, ok := c.present(raw)
	if !ok {
		return ""
	}
	return c.a.ReadFourCC(off)
}

// timestamp resolves a 16-byte keychain time field.
func (c column) timestamp(raw uint32) string {
	off, ok := c.present(raw)
	if !ok {
		return ""
	}
	return c.a.ReadTimestamp(off)
}

// integer resolves a plain uint32 field.
func (c column) integer(raw uint32) uint32 {
	off, ok := c.present(raw)
	if !ok {
		return 0
	}
	return c.a.ReadU32(off)
}

// GenericPasswordRecord is the decoded form of a generic-password table
// entry (spec §3 "Record").
type GenericPasswordRecord struct {
	SSGP         []byte
	CreationDate string
	ModDate      string
	Description  []byte
	Creator      string
	Type         string
	PrintName    []byte
	Alias        []byte
	Account      []byte
	Service      []byte
}

// genericPWHeaderSize: RecordSize, RecordNumber, Unknown2, Unknown3,
// SSGPArea, Unknown5, CreationDate, ModDate, Description, Comment, Creator,
// Type, ScriptCode, PrintName, Alias, Invisible, Negative, CustomIcon,
// Protected, Account, Service, Generic — 22 uint32 fields.
const genericPWHeaderSize = 22 * 4

// ExtractGenericPassword decodes the record at recordBase (an absolute
// offset computed via RecordBase). recordBase must point at the start of
// the _GENERIC_PW_HEADER-shaped fixed header.
func ExtractGenericPassword(a *Accessor, recordBase int) GenericPasswordRecord {
	ssgpArea := a.ReadU32(recordBase + 16)

	c := column{recordBase: recordBase, a: a}
	r := GenericPasswordRecord{
		CreationDate: c.timestamp(a.ReadU32(recordBase + 24)),
		ModDate:      c.timestamp(a.ReadU32(recordBase + 28)),
		Description:  c.lv(a.ReadU32(recordBase + 32)),
		Creator:      c.fourCC(a.ReadU32(recordBase + 40)),
		Type:         c.fourCC(a.ReadU32(recordBase + 44)),
		PrintName:    c.lv(a.ReadU32(recordBase + 52)),
		Alias:        c.lv(a.ReadU32(recordBase + 56)),
		Account:      c.lv(a.ReadU32(recordBase + 76)),
		Service:      c.lv(a.ReadU32(recordBase + 80)),
	}
	if ssgpArea != 0 {
		r.SSGP = a.ReadBytes(recordBase+genericPWHeaderSize, int(ssgpArea))
	}
	return r
}

// InternetPasswordRecord is the decoded form of an internet-password table
// entry.
type InternetPasswordRecord struct {
	SSGP           []byte
	CreationDate   string
	ModDate        string
	Description    []byte
	Comment        []byte
	Creator        string
	Type           string
	PrintName      []byte
	Alias          []byte
	Protected      []byte
	Account        []byte
	SecurityDomain []byte
	Server         []byte
	Protocol       string
	AuthType       []byte
	Port           uint32
	Path           []byte
}

// internetPWHeaderSize: 26 uint32 fields (see field list in
// _INTERNET_PW_HEADER).
const internetPWHeaderSize = 26 * 4

// ExtractInternetPassword decodes the record at recordBase.
func ExtractInternetPassword(a *Accessor, recordBase int) InternetPasswordRecord {
	ssgpArea := a.ReadU32(recordBase + 16)
	c := column{recordBase: recordBase, a: a}

	r := InternetPasswordRecord{
		CreationDate:   c.timestamp(a.ReadU32(recordBase + 24)),
		ModDate:        c.timestamp(a.ReadU32(recordBase + 28)),
		Description:    c.lv(a.ReadU32(recordBase + 32)),
		Comment:        c.lv(a.ReadU32(recordBase + 36)),
		Creator:        c.fourCC(a.ReadU32(recordBase + 40)),
		Type:           c.fourCC(a.ReadU32(recordBase + 44)),
		PrintName:      c.lv(a.ReadU32(recordBase + 52)),
		Alias:          c.lv(a.ReadU32(recordBase + 56)),
		Protected:      c.lv(a.ReadU32(recordBase + 72)),
		Account:        c.lv(a.ReadU32(recordBase + 76)),
		SecurityDomain: c.lv(a.ReadU32(recordBase + 80)),
		Server:         c.lv(a.ReadU32(recordBase + 84)),
		Protocol:       c.fourCC(a.ReadU32(recordBase + 88)),
		AuthType:       c.lv(a.ReadU32(recordBase + 92)),
		Port:           c.integer(a.ReadU32(recordBase + 96)),
		Path:           c.lv(a.ReadU32(recordBase + 100)),
	}
	if ssgpArea != 0 {
		r.SSGP = a.ReadBytes(recordBase+internetPWHeaderSize, int(ssgpArea))
	}
	return r
}

// AppleShareRecord is the decoded form of an appleshare-password table
// entry.
//
// Per DESIGN.md's Open Question decision, Protected is decoded as a
// length-prefixed value (matching the upstream tool's getAppleshareRecord,
// which calls getLV on this field): the §9 caution about this column
// sometimes being a four-character code does not hold for the appleshare
// layout actually used by chainbreaker.py.
type AppleShareRecord struct {
	SSGP         []byte
	CreationDate string
	ModDate      string
	Description  []byte
	Comment      []byte
	Creator      string
	Type         string
	PrintName    []byte
	Alias        []byte
	Protected    []byte
	Account      []byte
	Volume       []byte
	Server       []byte
	Protocol     string
	Address      []byte
	Signature    []byte
}

// appleShareHeaderSize: 26 uint32 fields (see field list in
// _APPLE_SHARE_HEADER).
const appleShareHeaderSize = 26 * 4

// ExtractAppleShare decodes the record at recordBase.
func ExtractAppleShare(a *Accessor, recordBase int) AppleShareRecord {
	ssgpArea := a.ReadU32(recordBase + 16)
	c := column{recordBase: recordBase, a: a}

	r := AppleShareRecord{
		CreationDate: c.timestamp(a.ReadU32(recordBase + 24)),
		ModDate:      c.timestamp(a.ReadU32(recordBase + 28)),
		Description:  c.lv(a.ReadU32(recordBase + 32)),
		Comment:      c.lv(a.ReadU32(recordBase + 36)),
		Creator:      c.fourCC(a.ReadU32(recordBase + 40)),
		Type:         c.fourCC(a.ReadU32(recordBase + 44)),
		PrintName:    c.lv(a.ReadU32(recordBase + 52)),
		Alias:        c.lv(a.ReadU32(recordBase + 56)),
		Protected:    c.lv(a.ReadU32(recordBase + 72)),
		Account:      c.lv(a.ReadU32(recordBase + 76)),
		Volume:       c.lv(a.ReadU32(recordBase + 80)),
		Server:       c.lv(a.ReadU32(recordBase + 84)),
		Protocol:     c.fourCC(a.ReadU32(recordBase + 88)),
		Address:      c.lv(a.ReadU32(recordBase + 96)),
		Signature:    c.lv(a.ReadU32(recordBase + 100)),
	}
	if ssgpArea != 0 {
		r.SSGP = a.ReadBytes(recordBase+appleShareHeaderSize, int(ssgpArea))
	}
	return r
}

// X509CertRecord is the decoded form of an X.509-certificate table entry.
type X509CertRecord struct {
	CertType             uint32
	CertEncoding         uint32
	PrintName            []byte
	Alias                []byte
	Subject              []byte
	Issuer               []byte
	SerialNumber         []byte
	SubjectKeyIdentifier []byte
	PublicKeyHash        []byte
	DER                  []byte
}

// x509HeaderSize: RecordSize, RecordNumber, Unknown1, Unknown2, CertSize,
// Unknown3, CertType, CertEncoding, PrintName, Alias, Subject, Issuer,
// SerialNumber, SubjectKeyIdentifier, PublicKeyHash — 15 uint32 fields.
const x509HeaderSize = 15 * 4

// ExtractX509Cert decodes the record at recordBase.
func ExtractX509Cert(a *Accessor, recordBase int) X509CertRecord {
	certSize := a.ReadU32(recordBase + 16)
	c := column{recordBase: recordBase, a: a}

	r := X509CertRecord{
		CertType:             c.integer(a.ReadU32(recordBase + 24)),
		CertEncoding:         c.integer(a.ReadU32(recordBase + 28)),
		PrintName:            c.lv(a.ReadU32(recordBase + 32)),
		Alias:                c.lv(a.ReadU32(recordBase + 36)),
		Subject:              c.lv(a.ReadU32(recordBase + 40)),
		Issuer:               c.lv(a.ReadU32(recordBase + 44)),
		SerialNumber:         c.lv(a.ReadU32(recordBase + 48)),
		SubjectKeyIdentifier: c.lv(a.ReadU32(recordBase + 52)),
		PublicKeyHash:        c.lv(a.ReadU32(recordBase + 56)),
	}
	r.DER = a.ReadBytes(recordBase+x509HeaderSize, int(certSize))
	return r
}

// KeyRecord is the decoded form of a public- or private-key table entry,
// still holding the encrypted key blob (spec §3 "Key blob record").
type KeyRecord struct {
	PrintName        []byte
	Label            []byte
	KeyClass         uint32
	Private          uint32
	KeyType          uint32
	KeySizeInBits    uint32
	EffectiveKeySize uint32
	Extractable      uint32
	KeyCreator       []byte
	// IV and Ciphertext come from the COMMON_BLOB-shaped key blob embedded
	// after the fixed header, not from a column offset.
	IV         []byte
	Ciphertext []byte
}

// secKeyHeaderSize: 33 uint32 fields (see field list in _SECKEY_HEADER).
const secKeyHeaderSize = 33 * 4

// ExtractKeyRecord decodes the record at recordBase, used for both the
// public-key and private-key tables (spec §3 "tableId" enumerates both).
func ExtractKeyRecord(a *Accessor, recordBase int) KeyRecord {
	blobSize := a.ReadU32(recordBase + 16)
	c := column{recordBase: recordBase, a: a}

	r := KeyRecord{
		PrintName:        c.lv(a.ReadU32(recordBase + 28)),
		Label:            c.lv(a.ReadU32(recordBase + 48)),
		KeyClass:         c.integer(a.ReadU32(recordBase + 24)),
		Private:          c.integer(a.ReadU32(recordBase + 40)),
		KeyType:          c.integer(a.ReadU32(recordBase + 60)),
		KeySizeInBits:    c.integer(a.ReadU32(recordBase + 64)),
		EffectiveKeySize: c.integer(a.ReadU32(recordBase + 68)),
		Extractable:      c.integer(a.ReadU32(recordBase + 88)),
		KeyCreator:       c.lv(a.ReadU32(recordBase + 56)),
	}

	blob := a.ReadBytes(recordBase+secKeyHeaderSize, int(blobSize))
	iv, ciphertext, ok := ParseKeyBlob(NewAccessor(blob))
	if ok {
		r.IV = iv
		r.Ciphertext = ciphertext
	}
	return r
}
