package keychain

import "github.com/destlaver/chainbreaker/internal/crypto"

// magicCmsIV is the fixed IV used for the first stage of the two-stage CMS
// key unwrap (spec §6 "Constants").
var magicCmsIV = []byte{0x4A, 0xDD, 0xA2, 0x2C, 0x79, 0xE8, 0x21, 0x05}

// WrappingKey is the 24-byte database wrapping key recovered from the DB
// blob: every per-item content key and private key in the database is
// wrapped under it.
type WrappingKey [crypto.KeyLen]byte

// Zero overwrites k in place, the closest Go analogue to "zeroed on scope
// exit" for a value that would otherwise linger in memory (spec §5,
// DESIGN.md Open Question decision).
func (k *WrappingKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// ContentKey is a 24-byte symmetric key recovered from the symmetric-key
// table, used to decrypt one or more SSGP payloads.
type ContentKey [crypto.KeyLen]byte

// Zero overwrites k in place.
func (k *ContentKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// reverse returns a new slice holding b's bytes in reverse order.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// unwrapContentKey implements the per-item two-stage CMS-style key unwrap
// (spec §4.5 "KeyblobDecryption"): decrypt once under magicCmsIV, reverse
// the first 32 bytes of the result, decrypt again under the item's own IV,
// then skip 4 bytes to find the 24-byte content key.
//
// Returns ok=false for any crypto failure along the way (spec §7 category
// 5): a wrong wrapping key, a corrupt blob, or an unexpected remainder
// length all collapse to the same "skip this item" outcome.
func unwrapContentKey(wrappingKey WrappingKey, iv, ciphertext []byte) (ContentKey, bool) {
	step1, ok := crypto.DecryptCBC(wrappingKey[:], magicCmsIV, ciphertext)
	if !ok || len(step1) < 32 {
		return ContentKey{}, false
	}

	reversed := reverse(step1[:32])

	step2, ok := crypto.DecryptCBC(wrappingKey[:], iv, reversed)
	if !ok {
		return ContentKey{}, false
	}
	if len(step2) < 4 {
		return ContentKey{}, false
	}
	keyMaterial := step2[4:]
	if len(keyMaterial) != crypto.KeyLen {
		return ContentKey{}, false
	}

	var key ContentKey
	copy(key[:], keyMaterial)
	return key, true
}

// unwrapPrivateKey implements the private-key variant of the two-stage
// unwrap (spec §4.5 "PrivateKeyDecryption"): identical to
// unwrapContentKey, except the reversal covers the entire stage-1 output
// (not just the first 32 bytes), and the stage-2 output splits into a
// 12-byte label and the remaining key material, rather than a fixed
// 24-byte content key.
func unwrapPrivateKey(wrappingKey WrappingKey, iv, ciphertext []byte) (label, keyMaterial []byte, ok bool) {
	step1, ok := crypto.DecryptCBC(wrappingKey[:], magicCmsIV, ciphertext)
	if !ok || len(step1) == 0 {
		return nil, nil, false
	}

	reversed := reverse(step1)

	step2, ok := crypto.DecryptCBC(wrappingKey[:], iv, reversed)
	if !ok || len(step2) < 12 {
		return nil, nil, false
	}

	return step2[:12], step2[12:], true
}
