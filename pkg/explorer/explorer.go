package explorer

import "context"

// TransactionStatus is the confirmation state of a transaction as reported
// by the chain explorer.
type TransactionStatus struct {
	Confirmed   bool `json:"confirmed"`
	BlockHeight int  `json:"block_height"`
}

// Service abstracts the blockchain explorer consulted for confirmation-depth
// facts.
type Service interface {
	GetBlockHeight(ctx context.Context) (int, error)
	GetTransactionStatus(ctx context.Context, txHash string) (*TransactionStatus, error)
	// ConfirmationDepth returns the number of blocks confirming the
	// transaction, 0 for an unconfirmed or unknown one.
	ConfirmationDepth(ctx context.Context, txHash string) (int, error)
}
