package keychain

import (
	"crypto/x509"

	"github.com/destlaver/chainbreaker/internal/container"
	"github.com/destlaver/chainbreaker/internal/crypto"
)

// ssgpTag returns the 20-byte lookup tag for an SSGP payload, or false if
// the payload is too short to hold one (spec §4.6).
func ssgpTag(ssgp []byte) ([20]byte, bool) {
	var tag [20]byte
	if len(ssgp) < 20 {
		return tag, false
	}
	copy(tag[:], ssgp[:20])
	return tag, true
}

// decryptSSGP resolves ssgp's content key by tag lookup in keys, then
// decrypts the payload (spec §4.6). Returns nil if the tag is unknown or
// decryption fails — both are non-fatal, record-level conditions (spec §7
// categories 4–5).
func decryptSSGP(ssgp []byte, keys KeyList) []byte {
	if len(ssgp) == 0 {
		return nil
	}
	tag, ok := ssgpTag(ssgp)
	if !ok {
		return nil
	}
	key, ok := keys[tag]
	if !ok {
		return nil
	}
	hdr, ciphertext, ok := container.ParseSSGP(ssgp)
	if !ok {
		return nil
	}
	plain, ok := crypto.DecryptCBC(key[:], hdr.IV[:], ciphertext)
	if !ok {
		return nil
	}
	return plain
}

func emitGenericPasswords(a *container.Accessor, tables []container.Table, index map[container.RecordType]int, keys KeyList, result *Result) {
	idx, ok := index[container.RecordTypeGenericPassword]
	if !ok {
		result.notef("generic password table not available")
		return
	}
	table := tables[idx]
	for _, off := range table.RecordOffsets {
		base := container.RecordBase(table, off)
		rec := container.ExtractGenericPassword(a, base)
		result.GenericPasswords = append(result.GenericPasswords, GenericPassword{
			CreationDate: rec.CreationDate,
			ModDate:      rec.ModDate,
			Description:  rec.Description,
			Creator:      rec.Creator,
			Type:         rec.Type,
			PrintName:    rec.PrintName,
			Alias:        rec.Alias,
			Account:      rec.Account,
			Service:      rec.Service,
			Password:     decryptSSGP(rec.SSGP, keys),
		})
	}
}

func emitInternetPasswords(a *container.Accessor, tables []container.Table, index map[container.RecordType]int, keys KeyList, result *Result) {
	idx, ok := index[container.RecordTypeInternetPassword]
	if !ok {
		result.notef("internet password table not available")
		return
	}
	table := tables[idx]
	for _, off := range table.RecordOffsets {
		base := container.RecordBase(table, off)
		rec := container.ExtractInternetPassword(a, base)
		result.InternetPasswords = append(result.InternetPasswords, InternetPassword{
			CreationDate:   rec.CreationDate,
			ModDate:        rec.ModDate,
			Description:    rec.Description,
			Comment:        rec.Comment,
			Creator:        rec.Creator,
			Type:           rec.Type,
			PrintName:      rec.PrintName,
			Alias:          rec.Alias,
			Protected:      rec.Protected,
			Account:        rec.Account,
			SecurityDomain: rec.SecurityDomain,
			Server:         rec.Server,
			Protocol:       rec.Protocol,
			AuthType:       rec.AuthType,
			Port:           rec.Port,
			Path:           rec.Path,
			Password:       decryptSSGP(rec.SSGP, keys),
		})
	}
}

func emitAppleSharePasswords(a *container.Accessor, tables []container.Table, index map[container.RecordType]int, keys KeyList, result *Result) {
	idx, ok := index[container.RecordTypeAppleSharePassword]
	if !ok {
		result.notef("appleshare password table not available")
		return
	}
	table := tables[idx]
	for _, off := range table.RecordOffsets {
		base := container.RecordBase(table, off)
		rec := container.ExtractAppleShare(a, base)
		result.AppleSharePasswords = append(result.AppleSharePasswords, AppleSharePassword{
			CreationDate: rec.CreationDate,
			ModDate:      rec.ModDate,
			Description:  rec.Description,
			Comment:      rec.Comment,
			Creator:      rec.Creator,
			Type:         rec.Type,
			PrintName:    rec.PrintName,
			Alias:        rec.Alias,
			Protected:    rec.Protected,
			Account:      rec.Account,
			Volume:       rec.Volume,
			Server:       rec.Server,
			Protocol:     rec.Protocol,
			Address:      rec.Address,
			Signature:    rec.Signature,
			Password:     decryptSSGP(rec.SSGP, keys),
		})
	}
}

func emitCertificates(a *container.Accessor, tables []container.Table, index map[container.RecordType]int, result *Result) {
	idx, ok := index[container.RecordTypeX509Certificate]
	if !ok {
		result.notef("certificate table not available")
		return
	}
	table := tables[idx]
	for _, off := range table.RecordOffsets {
		base := container.RecordBase(table, off)
		rec := container.ExtractX509Cert(a, base)
		cert := Certificate{
			CertType:             rec.CertType,
			CertEncoding:         rec.CertEncoding,
			PrintName:            rec.PrintName,
			Alias:                rec.Alias,
			Subject:              rec.Subject,
			Issuer:               rec.Issuer,
			SerialNumber:         rec.SerialNumber,
			SubjectKeyIdentifier: rec.SubjectKeyIdentifier,
			PublicKeyHash:        rec.PublicKeyHash,
			DER:                  rec.DER,
		}
		if parsed, err := x509.ParseCertificate(rec.DER); err == nil {
			cert.Parsed = parsed
		} else {
			cert.Notice = "certificate DER did not parse"
		}
		result.Certificates = append(result.Certificates, cert)
	}
}

func emitPrivateKeys(a *container.Accessor, tables []container.Table, index map[container.RecordType]int, wrappingKey WrappingKey, result *Result) {
	idx, ok := index[container.RecordTypePrivateKey]
	if !ok {
		result.notef("private key table not available")
		return
	}
	table := tables[idx]
	for _, off := range table.RecordOffsets {
		base := container.RecordBase(table, off)
		rec := container.ExtractKeyRecord(a, base)
		pk := PrivateKey{
			PrintName: rec.PrintName,
			KeyType:   rec.KeyType,
		}
		if rec.IV != nil && rec.Ciphertext != nil {
			label, material, ok := unwrapPrivateKey(wrappingKey, rec.IV, rec.Ciphertext)
			if ok {
				pk.Label = label
				pk.KeyMaterial = material
			} else {
				pk.Notice = "private key unwrap failed"
			}
		} else {
			pk.Notice = "private key blob malformed"
		}
		result.PrivateKeys = append(result.PrivateKeys, pk)
	}
}
