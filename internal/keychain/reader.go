// Package keychain implements the key-derivation pipeline, payload
// decryption, and top-level orchestration for reading Apple's legacy
// keychain container format.
package keychain

import (
	"crypto/x509"
	"fmt"

	"github.com/destlaver/chainbreaker/internal/container"
	"github.com/destlaver/chainbreaker/internal/crypto"
	"github.com/pkg/errors"
)

// Read's phases follow the orchestrator state machine from spec §4.8:
// LOADED -> VALIDATED -> TABLES_INDEXED -> WRAPPING_KEY_READY ->
// KEYLIST_BUILT -> EMITTING -> DONE. Only the VALIDATED and
// WRAPPING_KEY_READY transitions can abort with a user-visible error; every
// later phase degrades to notices instead.

// Credential selects which of the three unlock paths Read uses to recover
// the wrapping key (spec §4.5 "Alternate credentials").
type Credential struct {
	// Passphrase, if non-empty, derives the master key via PBKDF2 before
	// unwrapping the DB blob.
	Passphrase string
	// RawKey, if non-nil, is used directly as the 24-byte wrapping key,
	// skipping PBKDF2 and the DB blob decrypt.
	RawKey []byte
	// UnlockBlob, if non-nil, is the raw bytes of a system unlock file; its
	// masterKey field is used directly (already unwrapped for the system
	// keychain).
	UnlockBlob []byte
}

// GenericPassword is a decrypted generic-password record (spec §3).
type GenericPassword struct {
	CreationDate string
	ModDate      string
	Description  []byte
	Creator      string
	Type         string
	PrintName    []byte
	Alias        []byte
	Account      []byte
	Service      []byte
	Password     []byte
	Notice       string
}

// InternetPassword is a decrypted internet-password record.
type InternetPassword struct {
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
	Password       []byte
	Notice         string
}

// AppleSharePassword is a decrypted appleshare-password record (legacy,
// unused by modern macOS, per spec §9/original source comment).
type AppleSharePassword struct {
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
	Password     []byte
	Notice       string
}

// Certificate is a decoded X.509 certificate record. DER holds the raw
// bytes as stored; Parsed is nil if x509.ParseCertificate rejected them
// (a record-level, non-fatal failure per spec §7 category 6).
type Certificate struct {
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
	Parsed               *x509.Certificate
	Notice               string
}

// PrivateKey is a recovered private-key record: a 12-byte label and the
// unwrapped key material (spec §4.5 "PrivateKeyDecryption").
type PrivateKey struct {
	PrintName   []byte
	KeyType     uint32
	Label       []byte
	KeyMaterial []byte
	Notice      string
}

// Result is everything Read recovers from a single keychain file.
type Result struct {
	GenericPasswords    []GenericPassword
	InternetPasswords   []InternetPassword
	AppleSharePasswords []AppleSharePassword
	Certificates        []Certificate
	PrivateKeys         []PrivateKey
	// Notices collects the file-level non-fatal conditions hit along the
	// way (spec §4.9): one entry per missing optional table. Failures of a
	// single certificate or private key are reported in that record's own
	// Notice field; a skipped symmetric-key record or a password that does
	// not decrypt leaves no notice, only an empty Password.
	Notices []string
}

func (r *Result) notef(format string, args ...any) {
	r.Notices = append(r.Notices, fmt.Sprintf(format, args...))
}

// Read parses buf as a keychain container and decrypts every record it can
// reach using cred. It returns ErrInvalidSignature or (wrapped)
// ErrInvalidCredential only for the two fatal categories in spec §7;
// everything else is absorbed into the returned Result's Notices and
// per-record Notice fields, so that as much of the database as possible is
// recovered even when a subset is corrupt or encrypted under an unknown
// key (spec §7 "propagation policy").
func Read(buf []byte, cred Credential) (*Result, error) {
	a := container.NewAccessor(buf)

	// VALIDATED
	hdr, err := container.ParseHeader(a)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSignature, err.Error())
	}

	// TABLES_INDEXED
	schema := container.ParseSchema(a, hdr.SchemaOffset)
	tables := make([]container.Table, 0, len(schema.TableOffsets))
	for _, off := range schema.TableOffsets {
		tables = append(tables, container.ParseTable(a, off))
	}
	index := container.BuildTableIndex(tables)

	metaIdx, ok := index[container.RecordTypeMetadata]
	if !ok || len(tables[metaIdx].RecordOffsets) == 0 {
		return nil, errors.Wrap(ErrInvalidCredential, "metadata table missing")
	}
	metaTable := tables[metaIdx]
	metaRecordBase := container.RecordBase(metaTable, metaTable.RecordOffsets[0])
	dbBlob := container.ParseDBBlob(a, metaRecordBase)

	// WRAPPING_KEY_READY
	wrappingKey, err := resolveWrappingKey(cred, dbBlob)
	if err != nil {
		return nil, err
	}
	defer wrappingKey.Zero()

	result := &Result{}

	// KEYLIST_BUILT. A missing symmetric-key table is non-fatal (spec §7
	// category 3): every downstream lookup simply misses, yielding empty
	// passwords rather than aborting the walk.
	var keys KeyList
	if symIdx, ok := index[container.RecordTypeSymmetricKey]; ok {
		keys = buildKeyList(a, tables[symIdx], wrappingKey)
	} else {
		result.notef("symmetric key table not available")
	}
	defer keys.Zero()

	// EMITTING
	emitGenericPasswords(a, tables, index, keys, result)
	emitInternetPasswords(a, tables, index, keys, result)
	emitAppleSharePasswords(a, tables, index, keys, result)
	emitCertificates(a, tables, index, result)
	emitPrivateKeys(a, tables, index, wrappingKey, result)

	// DONE
	return result, nil
}

// resolveWrappingKey dispatches on which of the three credential fields is
// set (spec §4.5 "Alternate credentials") and recovers the 24-byte wrapping
// key. Only the passphrase path derives a master key and decrypts the DB
// blob to reach it; the raw-key and unlock-blob paths already hold the
// wrapping key itself ("skipping PBKDF2" per spec §4.5 means skipping the
// whole derive-then-unwrap sequence, not just the KDF call — confirmed by
// spec §8 scenarios 3 and 4, both of which expect byte-identical output to
// the passphrase path's recovered wrapping key, not a second decrypt of the
// same DB blob under a different key). It returns ErrInvalidCredential if no
// usable key emerges, whichever path was taken (spec §9: "this aggregation
// is intentional").
func resolveWrappingKey(cred Credential, dbBlob container.DBBlob) (WrappingKey, error) {
	switch {
	case cred.RawKey != nil:
		if len(cred.RawKey) != crypto.KeyLen {
			return WrappingKey{}, ErrInvalidCredential
		}
		var wk WrappingKey
		copy(wk[:], cred.RawKey)
		return wk, nil

	case cred.UnlockBlob != nil:
		// COMMON_BLOB(8) followed by the 24-byte master key.
		if len(cred.UnlockBlob) < 8+crypto.KeyLen {
			return WrappingKey{}, ErrInvalidCredential
		}
		return WrappingKey(container.ParseUnlockBlob(cred.UnlockBlob).MasterKey), nil

	case cred.Passphrase != "":
		master := crypto.DeriveMasterKey(cred.Passphrase, dbBlob.Salt[:])
		plain, ok := crypto.DecryptCBC(master, dbBlob.IV[:], dbBlob.Ciphertext)
		if !ok || len(plain) < crypto.KeyLen {
			return WrappingKey{}, ErrInvalidCredential
		}
		var wk WrappingKey
		copy(wk[:], plain[:crypto.KeyLen])
		return wk, nil

	default:
		return WrappingKey{}, errors.Wrap(ErrInvalidCredential, "no credential supplied")
	}
}
