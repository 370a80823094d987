package domain

import (
	"fmt"

	"github.com/peertrade-network/peertrade-daemon/pkg/cryptoutil"
)

func verifySignature(pubkey, signature string, digest []byte) bool {
	return cryptoutil.Verify(pubkey, signature, digest)
}

// Apply merges an independently-received sub-message into the aggregate and
// returns the resulting trade, leaving the receiver untouched. Acceptance is
// gated entirely on signature verification plus sequence validation: an
// unverifiable message is rejected with ErrInvalidSignature, an out-of-order
// or overwriting one with ErrProtocolSequence. Re-applying a sub-message that
// is already part of the aggregate is a no-op, so merges are idempotent and
// the merge order of concurrent messages never changes the derived status.
func (t Trade) Apply(msg TradeMessage) (*Trade, error) {
	pubkey, err := msg.signerPubKey(&t)
	if err != nil {
		return nil, err
	}
	digest, err := msg.digest(&t)
	if err != nil {
		return nil, err
	}
	if !verifySignature(pubkey, msg.signature(), digest) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, msg.Kind())
	}

	switch m := msg.(type) {
	case TradeAcceptance:
		if t.TradeAcceptance != nil {
			return t.noopOrConflict(*t.TradeAcceptance, m)
		}
		if t.CancelCompleted != nil {
			return nil, sequenceError(m, "trade is already closing")
		}
		t.TradeAcceptance = &m

	case PaymentRequest:
		if t.PaymentRequest != nil {
			return t.noopOrConflict(*t.PaymentRequest, m)
		}
		if t.TradeAcceptance == nil {
			return nil, sequenceError(m, "requires an acceptance")
		}
		if t.CancelCompleted != nil {
			return nil, sequenceError(m, "trade is already closing")
		}
		t.PaymentRequest = &m

	case PayoutRequest:
		if t.PayoutRequest != nil {
			return t.noopOrConflict(*t.PayoutRequest, m)
		}
		if t.PaymentRequest == nil {
			return nil, sequenceError(m, "requires a payment request")
		}
		if t.CancelCompleted != nil || t.PayoutCompleted != nil {
			return nil, sequenceError(m, "trade is already closing")
		}
		t.PayoutRequest = &m

	case ArbitrateRequest:
		if t.ArbitrateRequest != nil {
			return t.noopOrConflict(*t.ArbitrateRequest, m)
		}
		if t.PaymentRequest == nil {
			return nil, sequenceError(m, "requires a funded escrow")
		}
		if t.CancelCompleted != nil || t.PayoutCompleted != nil {
			return nil, sequenceError(m, "trade is already closing")
		}
		t.ArbitrateRequest = &m

	case CancelCompleted:
		if t.CancelCompleted != nil {
			return t.noopOrConflict(*t.CancelCompleted, m)
		}
		if t.PayoutCompleted != nil {
			return nil, sequenceError(m, "trade is already paying out")
		}
		if m.Reason.Unfunded() {
			if t.PaymentRequest != nil {
				return nil, sequenceError(m, "escrow is already funded")
			}
			if len(m.PayoutTxHash) > 0 {
				return nil, sequenceError(m, "unfunded cancel cannot carry a payout tx")
			}
		} else {
			if t.PaymentRequest == nil {
				return nil, sequenceError(m, "funded cancel requires a payment request")
			}
			if len(m.PayoutTxHash) <= 0 {
				return nil, sequenceError(m, "funded cancel requires a payout tx")
			}
		}
		t.CancelCompleted = &m

	case PayoutCompleted:
		if t.PayoutCompleted != nil {
			return t.noopOrConflict(*t.PayoutCompleted, m)
		}
		if t.CancelCompleted != nil {
			return nil, sequenceError(m, "trade is already canceling")
		}
		if len(m.PayoutTxHash) <= 0 {
			return nil, sequenceError(m, "missing payout tx")
		}
		switch m.Reason {
		case SellerBuyerPayout:
			if t.PayoutRequest == nil {
				return nil, sequenceError(m, "requires a payout request")
			}
		case ArbitratorSellerRefund, ArbitratorBuyerPayout, BuyerSellerRefund:
			if t.ArbitrateRequest == nil {
				return nil, sequenceError(m, "requires an arbitrate request")
			}
		}
		t.PayoutCompleted = &m

	case TradeRequest:
		// The request only enters the aggregate through NewTrade.
		if sameMessage(&t, t.TradeRequest, m) {
			return &t, nil
		}
		return nil, sequenceError(m, "write-once")

	default:
		return nil, fmt.Errorf("%w: unknown message kind", ErrProtocolSequence)
	}

	return &t, nil
}

func (t *Trade) noopOrConflict(existing, incoming TradeMessage) (*Trade, error) {
	if sameMessage(t, existing, incoming) {
		return t, nil
	}
	return nil, sequenceError(incoming, "write-once")
}

func sequenceError(msg TradeMessage, detail string) error {
	return fmt.Errorf("%w: %s %s", ErrProtocolSequence, msg.Kind(), detail)
}
