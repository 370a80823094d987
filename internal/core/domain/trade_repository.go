package domain

import "context"

// TradeRepository defines the persistence layer of the local trade aggregates.
type TradeRepository interface {
	// AddTrade inserts a new trade, failing if one with the same id exists.
	AddTrade(ctx context.Context, trade Trade) error
	// GetTrade returns the trade with the given id, or ErrTradeNotFound.
	GetTrade(ctx context.Context, id string) (*Trade, error)
	// GetAllTrades returns all persisted trades.
	GetAllTrades(ctx context.Context) ([]Trade, error)
	// UpdateTrade reads the trade with the given id, applies updateFn to it
	// and persists the returned aggregate.
	UpdateTrade(
		ctx context.Context, id string,
		updateFn func(t *Trade) (*Trade, error),
	) error
}
