package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
)

// TradeRepositoryImpl is a map-backed domain.TradeRepository used in tests
// and development mode.
type TradeRepositoryImpl struct {
	trades map[string]domain.Trade
	lock   *sync.RWMutex
}

// NewTradeRepositoryImpl returns a new empty in-memory trade repository.
func NewTradeRepositoryImpl() *TradeRepositoryImpl {
	return &TradeRepositoryImpl{
		trades: map[string]domain.Trade{},
		lock:   &sync.RWMutex{},
	}
}

func (r *TradeRepositoryImpl) AddTrade(ctx context.Context, trade domain.Trade) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.trades[trade.Id]; ok {
		return fmt.Errorf("trade %s already exists", trade.Id)
	}
	r.trades[trade.Id] = trade
	return nil
}

func (r *TradeRepositoryImpl) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	trade, ok := r.trades[id]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return &trade, nil
}

func (r *TradeRepositoryImpl) GetAllTrades(ctx context.Context) ([]domain.Trade, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	trades := make([]domain.Trade, 0, len(r.trades))
	for _, trade := range r.trades {
		trades = append(trades, trade)
	}
	return trades, nil
}

func (r *TradeRepositoryImpl) UpdateTrade(
	ctx context.Context, id string,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	trade, ok := r.trades[id]
	if !ok {
		return domain.ErrTradeNotFound
	}

	updated, err := updateFn(&trade)
	if err != nil {
		return err
	}
	r.trades[id] = *updated
	return nil
}
