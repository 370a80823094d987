package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
)

func TestNewTrade(t *testing.T) {
	trade, parties := newTestTrade(t)

	require.Len(t, trade.Id, 64)
	require.Equal(t, uint64(0), trade.Version)
	require.Equal(t, parties.maker.PubKey(), trade.SellerProfilePubKey())
	require.Equal(t, parties.taker.PubKey(), trade.BuyerProfilePubKey())
	require.Empty(t, trade.ArbitratorProfilePubKey())
	require.Equal(t, domain.StatusCreated, statusOf(t, trade))
}

func TestNewTradeIdIsDeterministic(t *testing.T) {
	maker, taker := newKeyPair(t), newKeyPair(t)
	offer := newSignedOffer(t, maker, domain.OfferTypeSell)
	request := newSignedTradeRequest(t, offer, taker)

	first, err := domain.NewTrade(offer, request)
	require.NoError(t, err)
	second, err := domain.NewTrade(offer, request)
	require.NoError(t, err)
	require.Equal(t, first.Id, second.Id)
}

func TestNewTradeValidation(t *testing.T) {
	maker, taker := newKeyPair(t), newKeyPair(t)
	offer := newSignedOffer(t, maker, domain.OfferTypeSell)

	t.Run("tampered_amount", func(t *testing.T) {
		request := newSignedTradeRequest(t, offer, taker)
		request.PaymentAmount = decimal.NewFromInt(335)

		_, err := domain.NewTrade(offer, request)
		require.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("amount_below_offer_bounds", func(t *testing.T) {
		request := newSignedTradeRequest(t, offer, taker)
		request.PaymentAmount = decimal.NewFromInt(50)
		digest, err := request.DigestForOffer(&offer)
		require.NoError(t, err)
		request.Signature = signDigest(t, taker, digest)

		_, err = domain.NewTrade(offer, request)
		require.ErrorIs(t, err, domain.ErrInvalidTradeRequest)
	})

	t.Run("non_positive_btc_amount", func(t *testing.T) {
		request := newSignedTradeRequest(t, offer, taker)
		request.BtcAmount = decimal.Zero
		digest, err := request.DigestForOffer(&offer)
		require.NoError(t, err)
		request.Signature = signDigest(t, taker, digest)

		_, err = domain.NewTrade(offer, request)
		require.ErrorIs(t, err, domain.ErrInvalidTradeRequest)
	})

	t.Run("missing_taker_keys", func(t *testing.T) {
		request := newSignedTradeRequest(t, offer, taker)
		request.TakerEscrowPubKey = ""

		_, err := domain.NewTrade(offer, request)
		require.ErrorIs(t, err, domain.ErrInvalidTradeRequest)
	})

	t.Run("unsigned_offer", func(t *testing.T) {
		draft, err := domain.NewOffer(
			domain.OfferTypeSell, maker.PubKey(), "SEK", domain.Swish,
			decimal.NewFromInt(100), decimal.NewFromInt(10000),
			decimal.NewFromInt(123000),
		)
		require.NoError(t, err)
		request := newSignedTradeRequest(t, *draft, taker)

		_, err = domain.NewTrade(*draft, request)
		require.ErrorIs(t, err, domain.ErrOfferNotSigned)
	})
}

func TestTradeHappyPath(t *testing.T) {
	trade, parties := newTestTrade(t)

	trade = mustApply(t, trade, newAcceptance(t, trade, parties))
	require.Equal(t, domain.StatusAccepted, statusOf(t, trade))
	require.Equal(t, parties.arbitrator.PubKey(), trade.ArbitratorProfilePubKey())

	trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))
	require.Equal(t, domain.StatusFunding, statusOf(t, trade))
	require.Equal(t, "aa11bb22cc33", trade.FundingTxHash())

	trade = trade.WithFundingConfirmations(2)
	require.Equal(t, domain.StatusFunded, statusOf(t, trade))

	trade = mustApply(t, trade, newPayoutRequest(t, trade, parties))
	require.Equal(t, domain.StatusPaid, statusOf(t, trade))

	trade = mustApply(t, trade, newPayoutCompleted(
		t, trade, parties, domain.SellerBuyerPayout, "dd44ee55ff66",
	))
	require.Equal(t, domain.StatusCompleting, statusOf(t, trade))
	require.Equal(t, "dd44ee55ff66", trade.PayoutTxHash())

	trade = trade.WithPayoutConfirmations(1)
	status := statusOf(t, trade)
	require.Equal(t, domain.StatusCompleted, status)
	require.True(t, status.Terminal())
}

func TestTradeArbitrationPath(t *testing.T) {
	trade, parties := newTestTrade(t)
	trade = mustApply(t, trade, newAcceptance(t, trade, parties))
	trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))

	trade = mustApply(t, trade, newArbitrateRequest(
		t, trade, parties, domain.ArbitrateNoBtc,
	))
	require.Equal(t, domain.StatusArbitrating, statusOf(t, trade))

	trade = mustApply(t, trade, newPayoutCompleted(
		t, trade, parties, domain.ArbitratorBuyerPayout, "dd44ee55ff66",
	))
	require.Equal(t, domain.StatusCompleting, statusOf(t, trade))

	trade = trade.WithPayoutConfirmations(3)
	require.Equal(t, domain.StatusCompleted, statusOf(t, trade))
}

func TestTradeUnfundedCancel(t *testing.T) {
	trade, parties := newTestTrade(t)
	trade = mustApply(t, trade, newAcceptance(t, trade, parties))

	trade = mustApply(t, trade, newCancelCompleted(
		t, trade, parties, domain.SellerCancelUnfunded, "",
	))

	status := statusOf(t, trade)
	require.Equal(t, domain.StatusCanceled, status)
	require.True(t, status.Terminal())
}

func TestTradeFundedCancel(t *testing.T) {
	trade, parties := newTestTrade(t)
	trade = mustApply(t, trade, newAcceptance(t, trade, parties))
	trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))

	trade = mustApply(t, trade, newCancelCompleted(
		t, trade, parties, domain.BuyerCancelFunded, "dd44ee55ff66",
	))
	require.Equal(t, domain.StatusCompleting, statusOf(t, trade))
	require.Equal(t, "dd44ee55ff66", trade.PayoutTxHash())

	trade = trade.WithPayoutConfirmations(1)
	require.Equal(t, domain.StatusCanceled, statusOf(t, trade))
}

func TestTradeApplyRejectsOutOfOrderMessages(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) (*domain.Trade, domain.TradeMessage)
	}{
		{
			name: "payment_request_before_acceptance",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				return trade, newPaymentRequest(t, trade, parties)
			},
		},
		{
			name: "payout_request_before_funding",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				return trade, newPayoutRequest(t, trade, parties)
			},
		},
		{
			name: "arbitrate_before_funding",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				return trade, newArbitrateRequest(t, trade, parties, domain.ArbitrateNoPayment)
			},
		},
		{
			name: "payout_completed_without_payout_request",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))
				return trade, newPayoutCompleted(
					t, trade, parties, domain.SellerBuyerPayout, "dd44ee55ff66",
				)
			},
		},
		{
			name: "arbitrator_payout_without_arbitrate_request",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))
				return trade, newPayoutCompleted(
					t, trade, parties, domain.ArbitratorSellerRefund, "dd44ee55ff66",
				)
			},
		},
		{
			name: "funded_cancel_without_payment_request",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				return trade, newCancelCompleted(
					t, trade, parties, domain.BuyerCancelFunded, "dd44ee55ff66",
				)
			},
		},
		{
			name: "unfunded_cancel_with_payout_tx",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				return trade, newCancelCompleted(
					t, trade, parties, domain.SellerCancelUnfunded, "dd44ee55ff66",
				)
			},
		},
		{
			name: "unfunded_cancel_after_funding",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))
				return trade, newCancelCompleted(
					t, trade, parties, domain.BuyerCancelUnfunded, "",
				)
			},
		},
		{
			name: "acceptance_after_cancel",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newCancelCompleted(
					t, trade, parties, domain.BuyerCancelUnfunded, "",
				))
				return trade, newAcceptance(t, trade, parties)
			},
		},
		{
			name: "payout_completed_after_cancel",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))
				trade = mustApply(t, trade, newPayoutRequest(t, trade, parties))
				trade = mustApply(t, trade, newCancelCompleted(
					t, trade, parties, domain.BuyerCancelFunded, "dd44ee55ff66",
				))
				return trade, newPayoutCompleted(
					t, trade, parties, domain.SellerBuyerPayout, "0099aa88bb77",
				)
			},
		},
		{
			name: "cancel_after_payout_completed",
			build: func(t *testing.T) (*domain.Trade, domain.TradeMessage) {
				trade, parties := newTestTrade(t)
				trade = mustApply(t, trade, newAcceptance(t, trade, parties))
				trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))
				trade = mustApply(t, trade, newPayoutRequest(t, trade, parties))
				trade = mustApply(t, trade, newPayoutCompleted(
					t, trade, parties, domain.SellerBuyerPayout, "dd44ee55ff66",
				))
				return trade, newCancelCompleted(
					t, trade, parties, domain.BuyerCancelFunded, "0099aa88bb77",
				)
			},
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			trade, msg := tt.build(t)
			_, err := trade.Apply(msg)
			require.ErrorIs(t, err, domain.ErrProtocolSequence)
		})
	}
}

func TestTradeApplyRejectsUnauthorizedSigner(t *testing.T) {
	trade, parties := newTestTrade(t)

	// an acceptance must be signed by the maker, not the taker
	escrow := newKeyPair(t)
	acceptance := domain.TradeAcceptance{
		MakerEscrowPubKey:       escrow.PubKey(),
		ArbitratorProfilePubKey: parties.arbitrator.PubKey(),
	}
	acceptance.Signature = sealMessage(t, trade, parties.taker, acceptance)

	_, err := trade.Apply(acceptance)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTradeApplyRejectsTamperedMessage(t *testing.T) {
	trade, parties := newTestTrade(t)
	acceptance := newAcceptance(t, trade, parties)
	acceptance.ArbitratorProfilePubKey = newKeyPair(t).PubKey()

	_, err := trade.Apply(acceptance)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTradeApplyIsIdempotent(t *testing.T) {
	trade, parties := newTestTrade(t)
	acceptance := newAcceptance(t, trade, parties)

	trade = mustApply(t, trade, acceptance)
	again := mustApply(t, trade, acceptance)
	require.Equal(t, trade, again)
}

func TestTradeApplyRejectsOverwrite(t *testing.T) {
	trade, parties := newTestTrade(t)
	trade = mustApply(t, trade, newAcceptance(t, trade, parties))

	// a second acceptance binding another arbitrator, correctly signed by
	// the maker, must not overwrite the first one
	other := tradeParties{
		maker:      parties.maker,
		taker:      parties.taker,
		arbitrator: newKeyPair(t),
	}
	_, err := trade.Apply(newAcceptance(t, trade, other))
	require.ErrorIs(t, err, domain.ErrProtocolSequence)
}

func TestTradeApplyLeavesReceiverUntouched(t *testing.T) {
	trade, parties := newTestTrade(t)

	updated := mustApply(t, trade, newAcceptance(t, trade, parties))
	require.Nil(t, trade.TradeAcceptance)
	require.NotNil(t, updated.TradeAcceptance)
}

func TestTradeMergeOrderIndependence(t *testing.T) {
	trade, parties := newTestTrade(t)
	acceptance := newAcceptance(t, trade, parties)

	funded := mustApply(t, trade, acceptance)
	payment := newPaymentRequest(t, funded, parties)
	funded = mustApply(t, funded, payment)

	// a peer holding only the bare aggregate replays the remote messages in
	// whatever order they arrive
	replayed := trade
	for _, msg := range []domain.TradeMessage{payment, acceptance} {
		next, err := replayed.Apply(msg)
		if err != nil {
			// out-of-order messages are skipped and retried on the next sync
			continue
		}
		replayed = next
	}
	replayed = mustApply(t, replayed, payment)

	require.Equal(t, statusOf(t, funded), statusOf(t, replayed))
	require.Equal(t, funded.Messages(), replayed.Messages())
}

func TestTradeMessages(t *testing.T) {
	trade, parties := newTestTrade(t)
	require.Len(t, trade.Messages(), 1)

	trade = mustApply(t, trade, newAcceptance(t, trade, parties))
	trade = mustApply(t, trade, newPaymentRequest(t, trade, parties))

	msgs := trade.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, domain.MessageKindTradeRequest, msgs[0].Kind())
	require.Equal(t, domain.MessageKindTradeAcceptance, msgs[1].Kind())
	require.Equal(t, domain.MessageKindPaymentRequest, msgs[2].Kind())
}

func TestTradeStatusIndeterminate(t *testing.T) {
	trade := &domain.Trade{}
	_, err := trade.Status()
	require.ErrorIs(t, err, domain.ErrIndeterminateStatus)
}

func TestTradeRoles(t *testing.T) {
	t.Run("sell_offer", func(t *testing.T) {
		trade, parties := newTestTrade(t)
		trade = mustApply(t, trade, newAcceptance(t, trade, parties))

		role, err := trade.RoleOf(parties.maker.PubKey())
		require.NoError(t, err)
		require.Equal(t, domain.RoleSeller, role)

		role, err = trade.RoleOf(parties.taker.PubKey())
		require.NoError(t, err)
		require.Equal(t, domain.RoleBuyer, role)

		role, err = trade.RoleOf(parties.arbitrator.PubKey())
		require.NoError(t, err)
		require.Equal(t, domain.RoleArbitrator, role)
	})

	t.Run("buy_offer", func(t *testing.T) {
		maker, taker := newKeyPair(t), newKeyPair(t)
		offer := newSignedOffer(t, maker, domain.OfferTypeBuy)
		request := newSignedTradeRequest(t, offer, taker)
		trade, err := domain.NewTrade(offer, request)
		require.NoError(t, err)

		require.Equal(t, taker.PubKey(), trade.SellerProfilePubKey())
		require.Equal(t, maker.PubKey(), trade.BuyerProfilePubKey())
	})

	t.Run("unknown_key", func(t *testing.T) {
		trade, _ := newTestTrade(t)

		_, err := trade.RoleOf(newKeyPair(t).PubKey())
		require.ErrorIs(t, err, domain.ErrUnknownRole)

		_, err = trade.RoleOf("")
		require.ErrorIs(t, err, domain.ErrUnknownRole)
	})

	t.Run("no_arbitrator_before_acceptance", func(t *testing.T) {
		trade, parties := newTestTrade(t)

		_, err := trade.RoleOf(parties.arbitrator.PubKey())
		require.ErrorIs(t, err, domain.ErrUnknownRole)
	})
}
