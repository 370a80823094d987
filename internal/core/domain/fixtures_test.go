package domain_test

import (
	"encoding/hex"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
	"github.com/peertrade-network/peertrade-daemon/pkg/cryptoutil"
)

// tradeParties holds the key pairs of everybody involved in a test trade.
type tradeParties struct {
	maker      *cryptoutil.KeyPair
	taker      *cryptoutil.KeyPair
	arbitrator *cryptoutil.KeyPair
}

func (p tradeParties) seller(trade *domain.Trade) *cryptoutil.KeyPair {
	if trade.SellerProfilePubKey() == p.maker.PubKey() {
		return p.maker
	}
	return p.taker
}

func (p tradeParties) buyer(trade *domain.Trade) *cryptoutil.KeyPair {
	if trade.BuyerProfilePubKey() == p.maker.PubKey() {
		return p.maker
	}
	return p.taker
}

func newKeyPair(t *testing.T) *cryptoutil.KeyPair {
	t.Helper()
	keyPair, err := cryptoutil.NewKeyPair()
	require.NoError(t, err)
	return keyPair
}

func signDigest(t *testing.T, key *cryptoutil.KeyPair, digest []byte) string {
	t.Helper()
	signature, err := key.Sign(digest)
	require.NoError(t, err)
	return signature
}

// newSignedOffer returns a sealed SEK offer, 100-10000 SEK via Swish at a
// price of 123000 SEK per bitcoin.
func newSignedOffer(
	t *testing.T, maker *cryptoutil.KeyPair, offerType domain.OfferType,
) domain.Offer {
	t.Helper()
	offer, err := domain.NewOffer(
		offerType, maker.PubKey(), "SEK", domain.Swish,
		decimal.NewFromInt(100), decimal.NewFromInt(10000),
		decimal.NewFromInt(123000),
	)
	require.NoError(t, err)
	require.NoError(t, offer.Sign(maker))
	return *offer
}

func newSignedTradeRequest(
	t *testing.T, offer domain.Offer, taker *cryptoutil.KeyPair,
) domain.TradeRequest {
	t.Helper()
	escrow := newKeyPair(t)
	request := domain.TradeRequest{
		TakerProfilePubKey: taker.PubKey(),
		TakerEscrowPubKey:  escrow.PubKey(),
		BtcAmount:          decimal.RequireFromString("0.00270732"),
		PaymentAmount:      decimal.NewFromInt(334),
	}
	digest, err := request.DigestForOffer(&offer)
	require.NoError(t, err)
	request.Signature = signDigest(t, taker, digest)
	return request
}

// newTestTrade creates a trade on a SELL offer: the maker sells bitcoin, the
// taker buys it.
func newTestTrade(t *testing.T) (*domain.Trade, tradeParties) {
	t.Helper()
	parties := tradeParties{
		maker:      newKeyPair(t),
		taker:      newKeyPair(t),
		arbitrator: newKeyPair(t),
	}
	offer := newSignedOffer(t, parties.maker, domain.OfferTypeSell)
	request := newSignedTradeRequest(t, offer, parties.taker)

	trade, err := domain.NewTrade(offer, request)
	require.NoError(t, err)
	return trade, parties
}

func sealMessage(
	t *testing.T, trade *domain.Trade, key *cryptoutil.KeyPair,
	msg domain.TradeMessage,
) string {
	t.Helper()
	digest, err := domain.MessageDigest(trade, msg)
	require.NoError(t, err)
	return signDigest(t, key, digest)
}

func newAcceptance(
	t *testing.T, trade *domain.Trade, parties tradeParties,
) domain.TradeAcceptance {
	t.Helper()
	escrow := newKeyPair(t)
	acceptance := domain.TradeAcceptance{
		MakerEscrowPubKey:       escrow.PubKey(),
		ArbitratorProfilePubKey: parties.arbitrator.PubKey(),
	}
	acceptance.Signature = sealMessage(t, trade, parties.maker, acceptance)
	return acceptance
}

func newPaymentRequest(
	t *testing.T, trade *domain.Trade, parties tradeParties,
) domain.PaymentRequest {
	t.Helper()
	request := domain.PaymentRequest{
		FundingTxHash:     "aa11bb22cc33",
		PaymentDetails:    "encrypted-payment-details",
		RefundAddress:     "bc1qrefund",
		RefundTxSignature: "refund-tx-signature",
		TxFeePerKb:        decimal.RequireFromString("0.00001000"),
	}
	request.Signature = sealMessage(t, trade, parties.seller(trade), request)
	return request
}

func newPayoutRequest(
	t *testing.T, trade *domain.Trade, parties tradeParties,
) domain.PayoutRequest {
	t.Helper()
	request := domain.PayoutRequest{
		PaymentReference:  "swish-ref-42",
		PayoutAddress:     "bc1qpayout",
		PayoutTxSignature: "payout-tx-signature",
	}
	request.Signature = sealMessage(t, trade, parties.buyer(trade), request)
	return request
}

func newArbitrateRequest(
	t *testing.T, trade *domain.Trade, parties tradeParties,
	reason domain.ArbitrateReason,
) domain.ArbitrateRequest {
	t.Helper()
	request := domain.ArbitrateRequest{Reason: reason}
	signer := parties.seller(trade)
	if reason == domain.ArbitrateNoBtc {
		signer = parties.buyer(trade)
	}
	request.Signature = sealMessage(t, trade, signer, request)
	return request
}

func newCancelCompleted(
	t *testing.T, trade *domain.Trade, parties tradeParties,
	reason domain.CancelReason, payoutTxHash string,
) domain.CancelCompleted {
	t.Helper()
	cancel := domain.CancelCompleted{
		PayoutTxHash: payoutTxHash,
		Reason:       reason,
	}
	signer := parties.buyer(trade)
	if reason == domain.SellerCancelUnfunded {
		signer = parties.seller(trade)
	}
	cancel.Signature = sealMessage(t, trade, signer, cancel)
	return cancel
}

func newPayoutCompleted(
	t *testing.T, trade *domain.Trade, parties tradeParties,
	reason domain.PayoutReason, payoutTxHash string,
) domain.PayoutCompleted {
	t.Helper()
	payout := domain.PayoutCompleted{
		PayoutTxHash: payoutTxHash,
		Reason:       reason,
	}
	var signer *cryptoutil.KeyPair
	switch reason {
	case domain.SellerBuyerPayout:
		signer = parties.seller(trade)
	case domain.BuyerSellerRefund:
		signer = parties.buyer(trade)
	default:
		signer = parties.arbitrator
	}
	payout.Signature = sealMessage(t, trade, signer, payout)
	return payout
}

func mustApply(
	t *testing.T, trade *domain.Trade, msg domain.TradeMessage,
) *domain.Trade {
	t.Helper()
	updated, err := trade.Apply(msg)
	require.NoError(t, err)
	return updated
}

func hexEncode(buf []byte) string {
	return hex.EncodeToString(buf)
}

func statusOf(t *testing.T, trade *domain.Trade) domain.TradeStatus {
	t.Helper()
	status, err := trade.Status()
	require.NoError(t, err)
	return status
}
