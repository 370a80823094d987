package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/peertrade-network/peertrade-daemon/pkg/cryptoutil"
	"github.com/peertrade-network/peertrade-daemon/pkg/hashutil"
)

// OfferType states whether the maker buys or sells bitcoin.
type OfferType string

const (
	OfferTypeBuy  OfferType = "BUY"
	OfferTypeSell OfferType = "SELL"
)

// CanonicalName implements hashutil.Named.
func (o OfferType) CanonicalName() string {
	return string(o)
}

// Signer signs a digest with a private key held elsewhere, typically the
// wallet collaborator.
type Signer interface {
	Sign(digest []byte) (string, error)
}

// Offer is a publicly advertised, signed listing. Id is the canonical hash of
// the priced fields and Signature is the maker's signature over Id. Both are
// write-once, mutating any priced field afterwards invalidates verification.
type Offer struct {
	Id                 string          `json:"id"`
	Type               OfferType       `json:"offerType"`
	MakerProfilePubKey string          `json:"makerProfilePubKey"`
	CurrencyCode       string          `json:"currencyCode"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod"`
	MinAmount          decimal.Decimal `json:"minAmount"`
	MaxAmount          decimal.Decimal `json:"maxAmount"`
	Price              decimal.Decimal `json:"price"`
	Signature          string          `json:"signature"`
}

// NewOffer assembles and validates a draft offer and computes its canonical
// id. The returned offer still needs to be sealed with the maker's key.
func NewOffer(
	offerType OfferType, makerProfilePubKey, currencyCode string,
	paymentMethod PaymentMethod, minAmount, maxAmount, price decimal.Decimal,
) (*Offer, error) {
	offer := &Offer{
		Type:               offerType,
		MakerProfilePubKey: makerProfilePubKey,
		CurrencyCode:       currencyCode,
		PaymentMethod:      paymentMethod,
		MinAmount:          minAmount,
		MaxAmount:          maxAmount,
		Price:              price,
	}
	if err := offer.validate(); err != nil {
		return nil, err
	}

	digest, err := offer.Digest()
	if err != nil {
		return nil, err
	}
	offer.Id = hex.EncodeToString(digest)
	return offer, nil
}

func (o *Offer) validate() error {
	if o.Type != OfferTypeBuy && o.Type != OfferTypeSell {
		return fmt.Errorf("%w: unknown offer type %s", ErrInvalidOffer, o.Type)
	}
	if len(o.MakerProfilePubKey) <= 0 {
		return fmt.Errorf("%w: missing maker pubkey", ErrInvalidOffer)
	}
	currency, err := GetCurrency(o.CurrencyCode)
	if err != nil {
		return err
	}
	if !currency.SupportsPaymentMethod(o.PaymentMethod) {
		return ErrPaymentMethodNotSupported
	}
	min, max := currency.Rescale(o.MinAmount), currency.Rescale(o.MaxAmount)
	if min.LessThanOrEqual(decimal.Zero) || min.GreaterThan(max) {
		return fmt.Errorf("%w: invalid amount range", ErrInvalidOffer)
	}
	if min.LessThan(currency.MinAmount) || max.GreaterThan(currency.MaxAmount) {
		return fmt.Errorf("%w: amounts out of currency bounds", ErrInvalidOffer)
	}
	if o.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOffer)
	}
	return nil
}

// Currency returns the reference data of the offer's currency.
func (o *Offer) Currency() (Currency, error) {
	return GetCurrency(o.CurrencyCode)
}

// Digest computes the canonical hash over the priced fields of the offer.
// Amounts are rescaled to the currency's canonical scale, so the digest does
// not depend on their surface representation.
func (o *Offer) Digest() ([]byte, error) {
	currency, err := GetCurrency(o.CurrencyCode)
	if err != nil {
		return nil, err
	}
	return hashutil.Sha256Fields(
		o.Type,
		o.MakerProfilePubKey,
		o.CurrencyCode,
		o.PaymentMethod,
		hashutil.Scaled{Amount: o.MinAmount, Scale: currency.Scale},
		hashutil.Scaled{Amount: o.MaxAmount, Scale: currency.Scale},
		hashutil.Scaled{Amount: o.Price, Scale: currency.Scale},
	)
}

// Sign seals the offer with the maker's signature over its id. The signature
// is write-once.
func (o *Offer) Sign(signer Signer) error {
	if len(o.Signature) > 0 {
		return ErrOfferAlreadySigned
	}
	digest, err := o.Digest()
	if err != nil {
		return err
	}
	signature, err := signer.Sign(digest)
	if err != nil {
		return err
	}
	o.Signature = signature
	return nil
}

// Verify recomputes the canonical id from the offer's own fields and checks
// the signature against the claimed maker key. It fails closed, any mismatch
// means the offer must be treated as not found.
func (o *Offer) Verify() error {
	if len(o.Signature) <= 0 {
		return ErrOfferNotSigned
	}
	if err := o.validate(); err != nil {
		return err
	}
	digest, err := o.Digest()
	if err != nil {
		return err
	}
	if hex.EncodeToString(digest) != o.Id {
		return ErrInvalidSignature
	}
	if !cryptoutil.Verify(o.MakerProfilePubKey, o.Signature, digest) {
		return ErrInvalidSignature
	}
	return nil
}
