package domain

import "errors"

var (
	// ErrCurrencyNotSupported ...
	ErrCurrencyNotSupported = errors.New("currency is not supported")
	// ErrPaymentMethodNotSupported ...
	ErrPaymentMethodNotSupported = errors.New("payment method is not supported for this currency")
	// ErrInvalidOffer is thrown for a malformed draft offer, ie. amounts out
	// of the currency bounds, min greater than max or a non-positive price.
	ErrInvalidOffer = errors.New("offer is not valid")
	// ErrOfferAlreadySigned is thrown when trying to re-sign a sealed offer.
	ErrOfferAlreadySigned = errors.New("offer is already signed")
	// ErrOfferNotSigned ...
	ErrOfferNotSigned = errors.New("offer is not signed")
	// ErrInvalidTradeRequest is thrown for a malformed take-offer message.
	ErrInvalidTradeRequest = errors.New("trade request is not valid")
	// ErrInvalidSignature is thrown when a sub-message or an offer fails
	// signature verification. The message is rejected and never merged.
	ErrInvalidSignature = errors.New("signature verification failed")
	// ErrProtocolSequence is thrown when attaching a sub-message out of
	// protocol order or attempting to overwrite a write-once field.
	ErrProtocolSequence = errors.New("sub-message violates the protocol sequence")
	// ErrUnknownRole is thrown when a public key matches none of the trade
	// participants. This should be unreachable for a correctly-routed trade.
	ErrUnknownRole = errors.New("public key does not belong to any trade participant")
	// ErrIndeterminateStatus is thrown when no status rule matches. This is
	// an internal invariant violation, not a normal outcome.
	ErrIndeterminateStatus = errors.New("trade status cannot be determined")
	// ErrOfferNotFound ...
	ErrOfferNotFound = errors.New("offer not found")
	// ErrTradeNotFound ...
	ErrTradeNotFound = errors.New("trade not found")
)
