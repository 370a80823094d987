package cryptoutil

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
)

// KeyPair wraps a secp256k1 private key. The base58 encoding of the
// compressed public key is the durable identifier of a participant in the
// trading network.
type KeyPair struct {
	prvkey *btcec.PrivateKey
}

// NewKeyPair generates a fresh random key pair.
func NewKeyPair() (*KeyPair, error) {
	prvkey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{prvkey}, nil
}

// KeyPairFromBytes restores a key pair from its 32-byte serialization.
func KeyPairFromBytes(buf []byte) *KeyPair {
	prvkey, _ := btcec.PrivKeyFromBytes(buf)
	return &KeyPair{prvkey}
}

// Serialize returns the 32-byte serialization of the private key.
func (k *KeyPair) Serialize() []byte {
	return k.prvkey.Serialize()
}

// PubKey returns the base58 encoded compressed public key.
func (k *KeyPair) PubKey() string {
	return base58.Encode(k.prvkey.PubKey().SerializeCompressed())
}

// ParsePubKey decodes a base58 encoded compressed public key.
func ParsePubKey(pubkey string) (*btcec.PublicKey, error) {
	buf := base58.Decode(pubkey)
	if len(buf) <= 0 {
		return nil, ErrInvalidPubKey
	}
	key, err := btcec.ParsePubKey(buf)
	if err != nil {
		return nil, ErrInvalidPubKey
	}
	return key, nil
}
