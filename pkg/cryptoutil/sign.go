package cryptoutil

import (
	"encoding/base64"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Sign produces a base64 encoded DER signature of the given digest with the
// key pair's private key.
func (k *KeyPair) Sign(digest []byte) (string, error) {
	if len(digest) <= 0 {
		return "", ErrNullDigest
	}
	sig := ecdsa.Sign(k.prvkey, digest)
	return base64.StdEncoding.EncodeToString(sig.Serialize()), nil
}

// Verify checks a base64 encoded DER signature over the given digest against
// a base58 encoded public key. A bad signature, a wrong key or a malformed
// input all yield false, this is the expected case and never an error.
func Verify(pubkey, signature string, digest []byte) bool {
	key, err := ParsePubKey(pubkey)
	if err != nil {
		return false
	}
	buf, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(buf)
	if err != nil {
		return false
	}
	return sig.Verify(digest, key)
}
