package inmemory

import (
	"context"
	"sync"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
)

// OfferRepositoryImpl is a map-backed domain.OfferRepository used in tests
// and development mode.
type OfferRepositoryImpl struct {
	offers map[string]domain.Offer
	lock   *sync.RWMutex
}

// NewOfferRepositoryImpl returns a new empty in-memory offer repository.
func NewOfferRepositoryImpl() *OfferRepositoryImpl {
	return &OfferRepositoryImpl{
		offers: map[string]domain.Offer{},
		lock:   &sync.RWMutex{},
	}
}

func (r *OfferRepositoryImpl) AddOffer(ctx context.Context, offer domain.Offer) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.offers[offer.Id] = offer
	return nil
}

func (r *OfferRepositoryImpl) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	offer, ok := r.offers[id]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	return &offer, nil
}

func (r *OfferRepositoryImpl) GetAllOffers(ctx context.Context) ([]domain.Offer, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	offers := make([]domain.Offer, 0, len(r.offers))
	for _, offer := range r.offers {
		offers = append(offers, offer)
	}
	return offers, nil
}

func (r *OfferRepositoryImpl) DeleteOffer(ctx context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.offers[id]; !ok {
		return domain.ErrOfferNotFound
	}
	delete(r.offers, id)
	return nil
}
