package keychain

import "github.com/pkg/errors"

// ErrInvalidSignature is returned by Read when the file does not begin with
// the keychain magic (spec §7 category 1, structural failure).
var ErrInvalidSignature = errors.New("keychain: invalid container signature")

// ErrInvalidCredential is returned by Read when the supplied credential
// (passphrase, raw key, or unlock-blob bytes) does not recover a usable
// 24-byte wrapping key (spec §7 category 2). A corrupt DB blob and a wrong
// password are indistinguishable and collapse to this same error, per
// spec §9's note that this aggregation is intentional.
var ErrInvalidCredential = errors.New("keychain: password or master key candidate is invalid")
