package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
	"github.com/peertrade-network/peertrade-daemon/internal/core/ports"
)

// OfferService manages the local maker's listings and the verified view of
// the relay's offer collection.
type OfferService interface {
	// MakeOffer assembles, signs, persists and publishes a new offer.
	MakeOffer(
		ctx context.Context, offerType domain.OfferType,
		currencyCode string, paymentMethod domain.PaymentMethod,
		minAmount, maxAmount, price decimal.Decimal,
	) (*domain.Offer, error)
	// PublishOffer re-publishes a local offer to keep the listing alive. The
	// relay overwrites the previous value for the same id.
	PublishOffer(ctx context.Context, id string) error
	// FetchOffer retrieves and verifies a single offer from the relay. Any
	// tampered or unverifiable payload is treated as not found.
	FetchOffer(ctx context.Context, id string) (*domain.Offer, error)
	// FetchAllOffers retrieves the relay's offer collection, silently
	// excluding every listing that fails verification.
	FetchAllOffers(ctx context.Context) ([]domain.Offer, error)
	// ListLocalOffers returns the offers persisted locally.
	ListLocalOffers(ctx context.Context) ([]domain.Offer, error)
	// WithdrawOffer removes an offer locally and from the relay.
	WithdrawOffer(ctx context.Context, id string) error
}

type offerService struct {
	offerRepository domain.OfferRepository
	relaySvc        ports.RelayService
	walletSvc       ports.WalletService
}

// NewOfferService returns an OfferService backed by the given repository,
// relay client and wallet.
func NewOfferService(
	offerRepository domain.OfferRepository,
	relaySvc ports.RelayService,
	walletSvc ports.WalletService,
) OfferService {
	return &offerService{
		offerRepository: offerRepository,
		relaySvc:        relaySvc,
		walletSvc:       walletSvc,
	}
}

func (s *offerService) MakeOffer(
	ctx context.Context, offerType domain.OfferType,
	currencyCode string, paymentMethod domain.PaymentMethod,
	minAmount, maxAmount, price decimal.Decimal,
) (*domain.Offer, error) {
	offer, err := domain.NewOffer(
		offerType, s.walletSvc.PubKey(), currencyCode, paymentMethod,
		minAmount, maxAmount, price,
	)
	if err != nil {
		return nil, err
	}
	if err := offer.Sign(s.walletSvc); err != nil {
		return nil, err
	}

	if err := s.offerRepository.AddOffer(ctx, *offer); err != nil {
		return nil, err
	}
	if err := s.relaySvc.PutOffer(ctx, *offer); err != nil {
		return nil, err
	}

	log.Infof("published offer %s (%s %s)", offer.Id, offer.Type, offer.CurrencyCode)
	return offer, nil
}

func (s *offerService) PublishOffer(ctx context.Context, id string) error {
	offer, err := s.offerRepository.GetOffer(ctx, id)
	if err != nil {
		return err
	}
	return s.relaySvc.PutOffer(ctx, *offer)
}

func (s *offerService) FetchOffer(ctx context.Context, id string) (*domain.Offer, error) {
	offer, err := s.relaySvc.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.Id != id {
		return nil, domain.ErrOfferNotFound
	}
	if err := offer.Verify(); err != nil {
		log.Warnf("offer %s failed verification: %s", id, err)
		return nil, domain.ErrOfferNotFound
	}
	return offer, nil
}

func (s *offerService) FetchAllOffers(ctx context.Context) ([]domain.Offer, error) {
	offers, err := s.relaySvc.GetOffers(ctx)
	if err != nil {
		return nil, err
	}

	verified := make([]domain.Offer, 0, len(offers))
	for _, offer := range offers {
		if err := offer.Verify(); err != nil {
			log.Debugf("excluding offer %s from batch: %s", offer.Id, err)
			continue
		}
		verified = append(verified, offer)
	}
	return verified, nil
}

func (s *offerService) ListLocalOffers(ctx context.Context) ([]domain.Offer, error) {
	return s.offerRepository.GetAllOffers(ctx)
}

func (s *offerService) WithdrawOffer(ctx context.Context, id string) error {
	offer, err := s.offerRepository.GetOffer(ctx, id)
	if err != nil {
		return err
	}
	if offer.MakerProfilePubKey != s.walletSvc.PubKey() {
		return ErrUnauthorizedRole
	}
	if err := s.offerRepository.DeleteOffer(ctx, id); err != nil {
		return err
	}
	if err := s.relaySvc.DeleteOffer(ctx, id); err != nil {
		if errors.Is(err, domain.ErrOfferNotFound) {
			return nil
		}
		return fmt.Errorf("withdrawing offer from relay: %w", err)
	}
	log.Infof("withdrew offer %s", id)
	return nil
}
