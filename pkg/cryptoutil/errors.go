package cryptoutil

import "errors"

var (
	// ErrInvalidPubKey ...
	ErrInvalidPubKey = errors.New("public key must be a base58 encoded compressed secp256k1 point")
	// ErrNullDigest ...
	ErrNullDigest = errors.New("digest must not be null")
	// ErrNullPlainText ...
	ErrNullPlainText = errors.New("plaintext must not be null")
	// ErrCypherText is thrown when decrypting with the wrong key or a
	// corrupted payload.
	ErrCypherText = errors.New("cyphertext is not valid")
)
