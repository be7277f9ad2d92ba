// Package crypto implements the keychain's legacy key-derivation and
// block-cipher primitives: PBKDF2-HMAC-SHA1 master-key derivation and the
// 3DES-CBC decryption shared by every wrapped blob in the container.
package crypto

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/sha1"

	"golang.org/x/crypto/pbkdf2"
)

// KeyLen is the length, in bytes, of every derived or wrapped key in the
// keychain format: a 3DES key in its 24-byte (three 8-byte halves) form.
const KeyLen = 24

// blockSize is the 3DES block size (spec §4.7).
const blockSize = des.BlockSize

// DeriveMasterKey runs PBKDF2-HMAC-SHA1 over passphrase and salt, 1000
// iterations, producing a KeyLen-byte master key (spec §4.6 "Deriving the
// master key"). This mirrors the upstream tool's pbkdf2(pw, salt, 1000,
// KEYLEN) call exactly, including the iteration count and hash.
func DeriveMasterKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, 1000, KeyLen, sha1.New)
}

// DecryptCBC performs a 3DES-CBC decrypt of ciphertext under key and iv,
// then validates and strips PKCS#7-style padding (spec §4.7 "Unwrapping the
// DB wrapping key" and §7 "wrong credential" detection).
//
// It returns ok=false — never an error — for any of: a ciphertext whose
// length isn't a positive multiple of the block size, a final padding byte
// of zero or greater than the block size, or padding bytes that don't all
// equal the pad length. All of these conditions are indistinguishable from
// "wrong password" to a caller and are treated identically (spec §7
// category 5):
// the caller sees an absent value, not a decryption error.
func DecryptCBC(key, iv, ciphertext []byte) (plaintext []byte, ok bool) {
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, false
	}

	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, false
	}
	mode := cipher.NewCBCDecrypter(block, iv)

	out := make([]byte, len(ciphertext))
	mode.CryptBlocks(out, ciphertext)

	pad := int(out[len(out)-1])
	if pad == 0 || pad > blockSize {
		return nil, false
	}
	for _, b := range out[len(out)-pad:] {
		if int(b) != pad {
			return nil, false
		}
	}
	return out[:len(out)-pad], true
}
