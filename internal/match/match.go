// Package match implements the §9 redesign of the original cert/private-key
// pairing step: a cryptographic comparison of a certificate's
// SubjectPublicKeyInfo against the public key derivable from each recovered
// private key, instead of the original's O(N×M) trial-decryption strategy.
package match

import (
	"crypto/rsa"
	"crypto/x509"
)

// PrivateKeyMaterial is the subset of internal/keychain.PrivateKey that
// matching needs: the unwrapped DER key bytes and the label the orchestrator
// recovered alongside them.
type PrivateKeyMaterial struct {
	Label   []byte
	DER     []byte
	KeyType uint32
}

// Pair is a certificate matched to the private key that produced its
// public key.
type Pair struct {
	Certificate *x509.Certificate
	Key         PrivateKeyMaterial
}

// Match compares every certificate's SubjectPublicKeyInfo against the
// public key derived from each key in keys, pairing on an exact modulus and
// exponent match (RSA only: the legacy keychain format's recovered private
// keys are PKCS#1 RSA in practice, per spec.md §9's redesign note). A
// private key that does not parse as PKCS#1 RSA, or whose public key
// matches no certificate, is simply absent from the result — matching never
// fails the caller, it only reports what paired.
func Match(certs []*x509.Certificate, keys []PrivateKeyMaterial) []Pair {
	var pairs []Pair
	for _, k := range keys {
		pub, ok := publicKeyOf(k.DER)
		if !ok {
			continue
		}
		for _, cert := range certs {
			if samePublicKey(cert, pub) {
				pairs = append(pairs, Pair{Certificate: cert, Key: k})
				break
			}
		}
	}
	return pairs
}

func publicKeyOf(der []byte) (*rsa.PublicKey, bool) {
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, false
	}
	return &key.PublicKey, true
}

func samePublicKey(cert *x509.Certificate, pub *rsa.PublicKey) bool {
	certPub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false
	}
	return certPub.E == pub.E && certPub.N.Cmp(pub.N) == 0
}
