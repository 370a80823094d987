package domain

import "context"

// OfferRepository defines the persistence layer of locally known offers.
type OfferRepository interface {
	// AddOffer inserts or replaces an offer keyed by its id.
	AddOffer(ctx context.Context, offer Offer) error
	// GetOffer returns the offer with the given id, or ErrOfferNotFound.
	GetOffer(ctx context.Context, id string) (*Offer, error)
	// GetAllOffers returns all persisted offers.
	GetAllOffers(ctx context.Context) ([]Offer, error)
	// DeleteOffer removes the offer with the given id, or ErrOfferNotFound.
	DeleteOffer(ctx context.Context, id string) error
}
