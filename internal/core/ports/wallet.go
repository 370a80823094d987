package ports

import "context"

// WalletService is the wallet collaborator. It holds the local identity key
// pair, issues fresh escrow keys and signs digests and transaction scripts.
// Key derivation and multisig construction stay behind this interface.
type WalletService interface {
	// PubKey returns the base58 encoded profile public key of the local
	// identity.
	PubKey() string
	// Sign signs a digest with the profile private key.
	Sign(digest []byte) (string, error)
	// FreshPubKey issues a fresh escrow public key.
	FreshPubKey() (string, error)
	// SignEscrowTx signs a refund or payout transaction spending the escrow
	// identified by the funding tx, paying out to the given address.
	SignEscrowTx(ctx context.Context, fundingTxHash, payoutAddress string) (string, error)
	// WatchAddress registers an address for monitoring.
	WatchAddress(ctx context.Context, address string) error
	// ConfirmationDepth returns the confirmation depth of a transaction, 0
	// for an unconfirmed or unknown one.
	ConfirmationDepth(ctx context.Context, txHash string) (int, error)
}

// SecurityService protects sensitive payloads end-to-end from the untrusted
// relay and verifies protocol signatures on behalf of the application layer.
type SecurityService interface {
	Encrypt(pubkey string, plaintext []byte) (string, error)
	Decrypt(cyphertext string) ([]byte, error)
}
