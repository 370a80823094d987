package dbbadger

import (
	"context"
	"errors"

	"github.com/timshannon/badgerhold/v4"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
)

type offerRepositoryImpl struct {
	db *DbManager
}

// NewOfferRepositoryImpl returns a badger-backed domain.OfferRepository.
func NewOfferRepositoryImpl(db *DbManager) domain.OfferRepository {
	return offerRepositoryImpl{db}
}

func (r offerRepositoryImpl) AddOffer(ctx context.Context, offer domain.Offer) error {
	return r.db.OfferStore.Upsert(offer.Id, offer)
}

func (r offerRepositoryImpl) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	var offer domain.Offer
	if err := r.db.OfferStore.Get(id, &offer); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, err
	}
	return &offer, nil
}

func (r offerRepositoryImpl) GetAllOffers(ctx context.Context) ([]domain.Offer, error) {
	offers := []domain.Offer{}
	if err := r.db.OfferStore.Find(&offers, nil); err != nil {
		return nil, err
	}
	return offers, nil
}

func (r offerRepositoryImpl) DeleteOffer(ctx context.Context, id string) error {
	if err := r.db.OfferStore.Delete(id, domain.Offer{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrOfferNotFound
		}
		return err
	}
	return nil
}
