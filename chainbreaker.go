// Package chainbreaker is the root of a forensic reader for Apple's legacy
// (pre-iCloud) keychain container format. It is a thin re-export of
// internal/keychain, mirroring the teacher's own root-package-over-internal
// shape (nokhal.go over internal/database).
package chainbreaker

import (
	"os"

	"github.com/destlaver/chainbreaker/internal/keychain"
)

// Credential selects which of the three unlock paths Read uses to recover
// the database wrapping key: a passphrase, a raw wrapping key, or the bytes
// of a system unlock file.
type Credential = keychain.Credential

// Result is everything Read recovers from a single keychain file.
type Result = keychain.Result

// GenericPassword, InternetPassword, AppleSharePassword, Certificate and
// PrivateKey mirror the per-record-type result shapes in internal/keychain.
type (
	GenericPassword    = keychain.GenericPassword
	InternetPassword   = keychain.InternetPassword
	AppleSharePassword = keychain.AppleSharePassword
	Certificate        = keychain.Certificate
	PrivateKey         = keychain.PrivateKey
)

// ErrInvalidSignature and ErrInvalidCredential are the two fatal error
// categories Read (and ReadFile) can return; every other failure mode is
// absorbed into Result's Notices and per-record Notice fields.
var (
	ErrInvalidSignature  = keychain.ErrInvalidSignature
	ErrInvalidCredential = keychain.ErrInvalidCredential
)

// Read parses buf as a keychain container and decrypts every record it can
// reach using cred.
func Read(buf []byte, cred Credential) (*Result, error) {
	return keychain.Read(buf, cred)
}

// ReadFile loads the keychain file at path into memory and parses it with
// cred. The entire file is read once and held for the duration of the call
// (spec §5: no suspension points, no re-reads).
func ReadFile(path string, cred Credential) (*Result, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(buf, cred)
}
