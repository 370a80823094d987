package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/peertrade-network/peertrade-daemon/pkg/hashutil"
)

// MessageKind enumerates the signed sub-message kinds appended to a trade
// over its lifetime.
type MessageKind int

const (
	MessageKindTradeRequest MessageKind = iota
	MessageKindTradeAcceptance
	MessageKindPaymentRequest
	MessageKindPayoutRequest
	MessageKindArbitrateRequest
	MessageKindCancelCompleted
	MessageKindPayoutCompleted
)

func (k MessageKind) String() string {
	switch k {
	case MessageKindTradeRequest:
		return "TRADE_REQUEST"
	case MessageKindTradeAcceptance:
		return "TRADE_ACCEPTANCE"
	case MessageKindPaymentRequest:
		return "PAYMENT_REQUEST"
	case MessageKindPayoutRequest:
		return "PAYOUT_REQUEST"
	case MessageKindArbitrateRequest:
		return "ARBITRATE_REQUEST"
	case MessageKindCancelCompleted:
		return "CANCEL_COMPLETED"
	case MessageKindPayoutCompleted:
		return "PAYOUT_COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// TradeMessage is the closed union of signed sub-messages that can be merged
// into a trade aggregate with Trade.Apply.
type TradeMessage interface {
	Kind() MessageKind
	// digest is the canonical-hash scope of the message within its trade.
	digest(t *Trade) ([]byte, error)
	// signerPubKey returns the only profile key authorized to sign the
	// message for the given trade.
	signerPubKey(t *Trade) (string, error)
	signature() string
}

// TradeRequest is the take-offer message. Its canonical hash is scoped to the
// parent offer's currency scale, bitcoin amounts use BtcScale.
type TradeRequest struct {
	TakerProfilePubKey string          `json:"takerProfilePubKey"`
	TakerEscrowPubKey  string          `json:"takerEscrowPubKey"`
	BtcAmount          decimal.Decimal `json:"btcAmount"`
	PaymentAmount      decimal.Decimal `json:"paymentAmount"`
	Signature          string          `json:"signature"`
}

func (m TradeRequest) Kind() MessageKind { return MessageKindTradeRequest }

func (m TradeRequest) signature() string { return m.Signature }

func (m TradeRequest) digest(t *Trade) ([]byte, error) {
	return m.DigestForOffer(&t.Offer)
}

// DigestForOffer computes the canonical hash of the request scoped to the
// offer it takes.
func (m TradeRequest) DigestForOffer(offer *Offer) ([]byte, error) {
	currency, err := offer.Currency()
	if err != nil {
		return nil, err
	}
	return hashutil.Sha256Fields(
		offer.Id,
		m.TakerProfilePubKey,
		m.TakerEscrowPubKey,
		hashutil.Scaled{Amount: m.BtcAmount, Scale: BtcScale},
		hashutil.Scaled{Amount: m.PaymentAmount, Scale: currency.Scale},
	)
}

func (m TradeRequest) signerPubKey(t *Trade) (string, error) {
	return m.TakerProfilePubKey, nil
}

// TradeAcceptance is the maker's answer to a trade request. It binds the
// arbitrator for the whole life of the trade.
type TradeAcceptance struct {
	MakerEscrowPubKey      string `json:"makerEscrowPubKey"`
	ArbitratorProfilePubKey string `json:"arbitratorProfilePubKey"`
	Signature              string `json:"signature"`
}

func (m TradeAcceptance) Kind() MessageKind { return MessageKindTradeAcceptance }

func (m TradeAcceptance) signature() string { return m.Signature }

func (m TradeAcceptance) digest(t *Trade) ([]byte, error) {
	return hashutil.Sha256Fields(
		t.Id, m.MakerEscrowPubKey, m.ArbitratorProfilePubKey,
	)
}

func (m TradeAcceptance) signerPubKey(t *Trade) (string, error) {
	return t.Offer.MakerProfilePubKey, nil
}

// PaymentRequest is issued by the seller once the escrow funding transaction
// is broadcast. PaymentDetails travel encrypted end-to-end, the canonical
// digest covers the cyphertext. The pre-signed refund transaction keeps the
// buyer safe in case of a dispute.
type PaymentRequest struct {
	FundingTxHash     string          `json:"fundingTxHash"`
	PaymentDetails    string          `json:"paymentDetails"`
	RefundAddress     string          `json:"refundAddress"`
	RefundTxSignature string          `json:"refundTxSignature"`
	TxFeePerKb        decimal.Decimal `json:"txFeePerKb"`
	Signature         string          `json:"signature"`
}

func (m PaymentRequest) Kind() MessageKind { return MessageKindPaymentRequest }

func (m PaymentRequest) signature() string { return m.Signature }

func (m PaymentRequest) digest(t *Trade) ([]byte, error) {
	return hashutil.Sha256Fields(
		t.Id,
		m.FundingTxHash,
		m.PaymentDetails,
		m.RefundAddress,
		m.RefundTxSignature,
		hashutil.Scaled{Amount: m.TxFeePerKb, Scale: BtcScale},
	)
}

func (m PaymentRequest) signerPubKey(t *Trade) (string, error) {
	return t.SellerProfilePubKey(), nil
}

// PayoutRequest is issued by the buyer once the fiat payment has been sent.
// It carries the buyer's signature over the payout transaction.
type PayoutRequest struct {
	PaymentReference  string `json:"paymentReference"`
	PayoutAddress     string `json:"payoutAddress"`
	PayoutTxSignature string `json:"payoutTxSignature"`
	Signature         string `json:"signature"`
}

func (m PayoutRequest) Kind() MessageKind { return MessageKindPayoutRequest }

func (m PayoutRequest) signature() string { return m.Signature }

func (m PayoutRequest) digest(t *Trade) ([]byte, error) {
	return hashutil.Sha256Fields(
		t.Id, m.PaymentReference, m.PayoutAddress, m.PayoutTxSignature,
	)
}

func (m PayoutRequest) signerPubKey(t *Trade) (string, error) {
	return t.BuyerProfilePubKey(), nil
}

// ArbitrateReason states why a party escalates the trade to the arbitrator.
// The reason determines which party is authorized to raise it.
type ArbitrateReason string

const (
	// ArbitrateNoPayment is raised by the seller when no fiat payment arrived.
	ArbitrateNoPayment ArbitrateReason = "NO_PAYMENT"
	// ArbitrateNoBtc is raised by the buyer when the escrow is never paid out.
	ArbitrateNoBtc ArbitrateReason = "NO_BTC"
)

// CanonicalName implements hashutil.Named.
func (r ArbitrateReason) CanonicalName() string { return string(r) }

func (r ArbitrateReason) signerPubKey(t *Trade) (string, error) {
	switch r {
	case ArbitrateNoPayment:
		return t.SellerProfilePubKey(), nil
	case ArbitrateNoBtc:
		return t.BuyerProfilePubKey(), nil
	default:
		return "", fmt.Errorf("%w: unknown arbitrate reason %s", ErrInvalidSignature, r)
	}
}

// ArbitrateRequest escalates the trade to the arbitrator bound by the
// acceptance.
type ArbitrateRequest struct {
	Reason    ArbitrateReason `json:"reason"`
	Signature string          `json:"signature"`
}

func (m ArbitrateRequest) Kind() MessageKind { return MessageKindArbitrateRequest }

func (m ArbitrateRequest) signature() string { return m.Signature }

func (m ArbitrateRequest) digest(t *Trade) ([]byte, error) {
	return hashutil.Sha256Fields(t.Id, m.Reason)
}

func (m ArbitrateRequest) signerPubKey(t *Trade) (string, error) {
	return m.Reason.signerPubKey(t)
}

// CancelReason states why and by whom a trade is torn down before payout.
type CancelReason string

const (
	SellerCancelUnfunded CancelReason = "SELLER_CANCEL_UNFUNDED"
	BuyerCancelUnfunded  CancelReason = "BUYER_CANCEL_UNFUNDED"
	BuyerCancelFunded    CancelReason = "BUYER_CANCEL_FUNDED"
)

// CanonicalName implements hashutil.Named.
func (r CancelReason) CanonicalName() string { return string(r) }

// Unfunded returns whether the cancel happens before the escrow was funded,
// in which case there is no refund transaction to wait for.
func (r CancelReason) Unfunded() bool {
	return r == SellerCancelUnfunded || r == BuyerCancelUnfunded
}

func (r CancelReason) signerPubKey(t *Trade) (string, error) {
	switch r {
	case SellerCancelUnfunded:
		return t.SellerProfilePubKey(), nil
	case BuyerCancelUnfunded, BuyerCancelFunded:
		return t.BuyerProfilePubKey(), nil
	default:
		return "", fmt.Errorf("%w: unknown cancel reason %s", ErrInvalidSignature, r)
	}
}

// CancelCompleted tears the trade down. For a funded escrow it carries the
// hash of the refund transaction.
type CancelCompleted struct {
	PayoutTxHash string       `json:"payoutTxHash"`
	Reason       CancelReason `json:"reason"`
	Signature    string       `json:"signature"`
}

func (m CancelCompleted) Kind() MessageKind { return MessageKindCancelCompleted }

func (m CancelCompleted) signature() string { return m.Signature }

func (m CancelCompleted) digest(t *Trade) ([]byte, error) {
	return hashutil.Sha256Fields(t.Id, m.PayoutTxHash, m.Reason)
}

func (m CancelCompleted) signerPubKey(t *Trade) (string, error) {
	return m.Reason.signerPubKey(t)
}

// PayoutReason states which party broadcast the payout transaction and on
// which protocol path.
type PayoutReason string

const (
	SellerBuyerPayout       PayoutReason = "SELLER_BUYER_PAYOUT"
	ArbitratorSellerRefund  PayoutReason = "ARBITRATOR_SELLER_REFUND"
	ArbitratorBuyerPayout   PayoutReason = "ARBITRATOR_BUYER_PAYOUT"
	BuyerSellerRefund       PayoutReason = "BUYER_SELLER_REFUND"
)

// CanonicalName implements hashutil.Named.
func (r PayoutReason) CanonicalName() string { return string(r) }

func (r PayoutReason) signerPubKey(t *Trade) (string, error) {
	switch r {
	case SellerBuyerPayout:
		return t.SellerProfilePubKey(), nil
	case ArbitratorSellerRefund, ArbitratorBuyerPayout:
		arbitrator := t.ArbitratorProfilePubKey()
		if len(arbitrator) <= 0 {
			return "", ErrProtocolSequence
		}
		return arbitrator, nil
	case BuyerSellerRefund:
		return t.BuyerProfilePubKey(), nil
	default:
		return "", fmt.Errorf("%w: unknown payout reason %s", ErrInvalidSignature, r)
	}
}

// PayoutCompleted closes the trade with the hash of the broadcast payout
// transaction.
type PayoutCompleted struct {
	PayoutTxHash string       `json:"payoutTxHash"`
	Reason       PayoutReason `json:"reason"`
	Signature    string       `json:"signature"`
}

func (m PayoutCompleted) Kind() MessageKind { return MessageKindPayoutCompleted }

func (m PayoutCompleted) signature() string { return m.Signature }

func (m PayoutCompleted) digest(t *Trade) ([]byte, error) {
	return hashutil.Sha256Fields(t.Id, m.PayoutTxHash, m.Reason)
}

func (m PayoutCompleted) signerPubKey(t *Trade) (string, error) {
	return m.Reason.signerPubKey(t)
}

// Trade is the append-only aggregate of a single trade: the signed offer, the
// signed sub-messages merged so far and the externally-observed confirmation
// depths of the funding and payout transactions. Status and role are always
// derived, never stored.
type Trade struct {
	Id               string            `json:"id"`
	Version          uint64            `json:"version"`
	Offer            Offer             `json:"offer"`
	TradeRequest     TradeRequest      `json:"tradeRequest"`
	TradeAcceptance  *TradeAcceptance  `json:"tradeAcceptance,omitempty"`
	PaymentRequest   *PaymentRequest   `json:"paymentRequest,omitempty"`
	PayoutRequest    *PayoutRequest    `json:"payoutRequest,omitempty"`
	ArbitrateRequest *ArbitrateRequest `json:"arbitrateRequest,omitempty"`
	CancelCompleted  *CancelCompleted  `json:"cancelCompleted,omitempty"`
	PayoutCompleted  *PayoutCompleted  `json:"payoutCompleted,omitempty"`

	FundingConfirmations int `json:"fundingConfirmations"`
	PayoutConfirmations  int `json:"payoutConfirmations"`
}

// NewTrade creates a trade by attaching a signed trade request to a signed
// offer. Both signatures are verified before the aggregate comes to exist.
func NewTrade(offer Offer, request TradeRequest) (*Trade, error) {
	if err := offer.Verify(); err != nil {
		return nil, err
	}
	currency, err := offer.Currency()
	if err != nil {
		return nil, err
	}
	if len(request.TakerProfilePubKey) <= 0 || len(request.TakerEscrowPubKey) <= 0 {
		return nil, fmt.Errorf("%w: missing taker keys", ErrInvalidTradeRequest)
	}
	if request.BtcAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: btc amount must be positive", ErrInvalidTradeRequest)
	}
	paymentAmount := currency.Rescale(request.PaymentAmount)
	min, max := currency.Rescale(offer.MinAmount), currency.Rescale(offer.MaxAmount)
	if paymentAmount.LessThan(min) || paymentAmount.GreaterThan(max) {
		return nil, fmt.Errorf("%w: payment amount out of offer bounds", ErrInvalidTradeRequest)
	}

	digest, err := request.DigestForOffer(&offer)
	if err != nil {
		return nil, err
	}
	if !verifySignature(request.TakerProfilePubKey, request.Signature, digest) {
		return nil, ErrInvalidSignature
	}

	id, err := hashutil.Sha256Fields(
		offer.Id, request.TakerProfilePubKey, request.TakerEscrowPubKey,
	)
	if err != nil {
		return nil, err
	}

	return &Trade{
		Id:           hex.EncodeToString(id),
		Offer:        offer,
		TradeRequest: request,
	}, nil
}

// PayoutTxHash returns the hash of the payout or refund transaction closing
// the trade, or an empty string if none is known yet.
func (t *Trade) PayoutTxHash() string {
	if t.PayoutCompleted != nil {
		return t.PayoutCompleted.PayoutTxHash
	}
	if t.CancelCompleted != nil {
		return t.CancelCompleted.PayoutTxHash
	}
	return ""
}

// FundingTxHash returns the hash of the escrow funding transaction, or an
// empty string if the trade was never funded.
func (t *Trade) FundingTxHash() string {
	if t.PaymentRequest == nil {
		return ""
	}
	return t.PaymentRequest.FundingTxHash
}

// WithFundingConfirmations returns a copy of the trade with the observed
// confirmation depth of the funding transaction.
func (t Trade) WithFundingConfirmations(depth int) *Trade {
	t.FundingConfirmations = depth
	return &t
}

// WithPayoutConfirmations returns a copy of the trade with the observed
// confirmation depth of the payout transaction.
func (t Trade) WithPayoutConfirmations(depth int) *Trade {
	t.PayoutConfirmations = depth
	return &t
}

// MessageDigest computes the canonical-hash scope of a sub-message within its
// trade, the payload the sender signs.
func MessageDigest(t *Trade, msg TradeMessage) ([]byte, error) {
	return msg.digest(t)
}

// Messages returns the sub-messages present in the aggregate, in protocol
// order. Replaying them against another aggregate of the same trade through
// Apply merges the two views.
func (t *Trade) Messages() []TradeMessage {
	msgs := []TradeMessage{t.TradeRequest}
	if t.TradeAcceptance != nil {
		msgs = append(msgs, *t.TradeAcceptance)
	}
	if t.PaymentRequest != nil {
		msgs = append(msgs, *t.PaymentRequest)
	}
	if t.PayoutRequest != nil {
		msgs = append(msgs, *t.PayoutRequest)
	}
	if t.ArbitrateRequest != nil {
		msgs = append(msgs, *t.ArbitrateRequest)
	}
	if t.CancelCompleted != nil {
		msgs = append(msgs, *t.CancelCompleted)
	}
	if t.PayoutCompleted != nil {
		msgs = append(msgs, *t.PayoutCompleted)
	}
	return msgs
}

func sameMessage(t *Trade, existing, incoming TradeMessage) bool {
	if existing.signature() != incoming.signature() {
		return false
	}
	existingDigest, err := existing.digest(t)
	if err != nil {
		return false
	}
	incomingDigest, err := incoming.digest(t)
	if err != nil {
		return false
	}
	return bytes.Equal(existingDigest, incomingDigest)
}
