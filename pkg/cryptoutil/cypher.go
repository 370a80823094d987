package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/hkdf"
)

var hkdfInfo = []byte("peertrade-ecies-v1")

const compressedPubKeyLen = 33

// Encrypt encrypts a plaintext for the owner of the given base58 encoded
// public key with an ephemeral ECDH exchange, HKDF-SHA256 key derivation and
// AES-256-GCM. The returned payload is base64 encoded as
// ephemeralPubKey || nonce || sealed.
func Encrypt(pubkey string, plaintext []byte) (string, error) {
	if len(plaintext) <= 0 {
		return "", ErrNullPlainText
	}
	receiverKey, err := ParsePubKey(pubkey)
	if err != nil {
		return "", err
	}

	ephemeralKey, err := btcec.NewPrivateKey()
	if err != nil {
		return "", err
	}

	aead, err := newAEAD(btcec.GenerateSharedSecret(ephemeralKey, receiverKey))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	payload := ephemeralKey.PubKey().SerializeCompressed()
	payload = append(payload, nonce...)
	payload = aead.Seal(payload, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt decrypts a payload produced by Encrypt with the key pair's private
// key. It fails with ErrCypherText for a wrong key or a corrupted payload.
func (k *KeyPair) Decrypt(cyphertext string) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(cyphertext)
	if err != nil {
		return nil, ErrCypherText
	}
	if len(payload) <= compressedPubKeyLen {
		return nil, ErrCypherText
	}

	ephemeralKey, err := btcec.ParsePubKey(payload[:compressedPubKeyLen])
	if err != nil {
		return nil, ErrCypherText
	}

	aead, err := newAEAD(btcec.GenerateSharedSecret(k.prvkey, ephemeralKey))
	if err != nil {
		return nil, err
	}

	data := payload[compressedPubKeyLen:]
	if len(data) <= aead.NonceSize() {
		return nil, ErrCypherText
	}
	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrCypherText
	}
	return plaintext, nil
}

func newAEAD(sharedSecret []byte) (cipher.AEAD, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, sharedSecret, nil, hkdfInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blockCipher)
}
