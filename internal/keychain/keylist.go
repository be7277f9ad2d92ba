package keychain

import "github.com/destlaver/chainbreaker/internal/container"

// KeyList maps a 20-byte label tag to the content key stored under it
// (spec §3 "Key list"). It is built in one pass over the symmetric-key
// table before any other table is processed, since password, internet and
// appleshare decryption all resolve their per-item key by tag lookup
// (spec §5: "this ordering is a correctness requirement, not a performance
// choice").
type KeyList map[[20]byte]ContentKey

// Zero overwrites every content key held in the list, then clears the map.
func (kl KeyList) Zero() {
	for tag, key := range kl {
		key.Zero()
		delete(kl, tag)
	}
}

// buildKeyList walks every record in the symmetric-key table, decoding and
// unwrapping each key blob. A record that fails to parse (bad COMMON_BLOB
// magic, missing "ssgp" marker, bad ciphertext length) or fails to unwrap
// under wrappingKey (wrong key, corrupt ciphertext) is silently skipped
// (spec §7 categories 4–5): the walk never aborts on a single bad entry.
func buildKeyList(a *container.Accessor, table container.Table, wrappingKey WrappingKey) KeyList {
	keys := make(KeyList, len(table.RecordOffsets))
	for _, off := range table.RecordOffsets {
		base := container.RecordBase(table, off)
		blob, ok := container.ParseSymmetricKeyBlob(a, base)
		if !ok {
			continue
		}
		key, ok := unwrapContentKey(wrappingKey, blob.IV, blob.Ciphertext)
		if !ok {
			continue
		}
		keys[blob.Tag] = key
	}
	return keys
}
