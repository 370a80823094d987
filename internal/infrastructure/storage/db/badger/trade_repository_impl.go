package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
)

type tradeRepositoryImpl struct {
	db *DbManager
}

// NewTradeRepositoryImpl returns a badger-backed domain.TradeRepository.
func NewTradeRepositoryImpl(db *DbManager) domain.TradeRepository {
	return tradeRepositoryImpl{db}
}

func (r tradeRepositoryImpl) AddTrade(ctx context.Context, trade domain.Trade) error {
	if err := r.db.TradeStore.Insert(trade.Id, trade); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("trade %s already exists", trade.Id)
		}
		return err
	}
	return nil
}

func (r tradeRepositoryImpl) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	var trade domain.Trade
	if err := r.db.TradeStore.Get(id, &trade); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

func (r tradeRepositoryImpl) GetAllTrades(ctx context.Context) ([]domain.Trade, error) {
	trades := []domain.Trade{}
	if err := r.db.TradeStore.Find(&trades, nil); err != nil {
		return nil, err
	}
	return trades, nil
}

// UpdateTrade reads, transforms and persists a trade within one badger
// transaction, so no concurrent merge can interleave.
func (r tradeRepositoryImpl) UpdateTrade(
	ctx context.Context, id string,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	return r.db.TradeStore.Badger().Update(func(tx *badger.Txn) error {
		var trade domain.Trade
		if err := r.db.TradeStore.TxGet(tx, id, &trade); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrTradeNotFound
			}
			return err
		}

		updated, err := updateFn(&trade)
		if err != nil {
			return err
		}
		return r.db.TradeStore.TxUpsert(tx, id, *updated)
	})
}
