package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
	"github.com/peertrade-network/peertrade-daemon/internal/core/ports"
	"github.com/peertrade-network/peertrade-daemon/pkg/txwatcher"
)

// TradeService drives the local side of the trade lifecycle protocol: it
// builds and signs outgoing sub-messages, merges incoming ones after
// verification and feeds externally-observed confirmation facts into the
// aggregates.
type TradeService interface {
	// TakeOffer attaches a signed trade request to a verified offer and
	// creates the local trade aggregate.
	TakeOffer(
		ctx context.Context, offerId string,
		btcAmount, paymentAmount decimal.Decimal,
	) (*domain.Trade, error)
	// AcceptTrade lets the maker bind an arbitrator for the trade.
	AcceptTrade(ctx context.Context, tradeId, arbitratorPubKey string) error
	// FundTrade lets the seller announce the escrow funding transaction
	// along with encrypted payment details and a pre-signed refund.
	FundTrade(
		ctx context.Context, tradeId, fundingTxHash, paymentDetails,
		refundAddress string, txFeePerKb decimal.Decimal,
	) error
	// RequestPayout lets the buyer claim the escrow after sending the fiat
	// payment.
	RequestPayout(
		ctx context.Context, tradeId, paymentReference, payoutAddress string,
	) error
	// Arbitrate escalates the trade to the arbitrator.
	Arbitrate(ctx context.Context, tradeId string, reason domain.ArbitrateReason) error
	// CancelTrade tears the trade down. The cancel reason is derived from
	// the local role and the funding state; payoutTxHash carries the refund
	// transaction for a funded cancel and stays empty otherwise.
	CancelTrade(ctx context.Context, tradeId, payoutTxHash string) error
	// CompletePayout closes the trade with the broadcast payout transaction.
	CompletePayout(
		ctx context.Context, tradeId string,
		reason domain.PayoutReason, payoutTxHash string,
	) error
	// PaymentDetails decrypts the seller's payment details for the buyer.
	PaymentDetails(ctx context.Context, tradeId string) (string, error)
	// GetTrade returns a local trade aggregate.
	GetTrade(ctx context.Context, tradeId string) (*domain.Trade, error)
	// ListTrades returns all local trade aggregates.
	ListTrades(ctx context.Context) ([]domain.Trade, error)
	// SyncTrade merges the relay's view of a trade into the local aggregate.
	SyncTrade(ctx context.Context, tradeId string) error
	// SyncAllTrades refreshes every non-terminal local trade.
	SyncAllTrades(ctx context.Context) error
	// HandleTxEvent merges a confirmation-depth fact into the trade that
	// references the transaction.
	HandleTxEvent(ctx context.Context, event txwatcher.Event) error
}

type tradeService struct {
	tradeRepository domain.TradeRepository
	offerRepository domain.OfferRepository
	relaySvc        ports.RelayService
	walletSvc       ports.WalletService
	securitySvc     ports.SecurityService
	watcherSvc      txwatcher.Service
}

// NewTradeService returns a TradeService backed by the given repositories and
// collaborators.
func NewTradeService(
	tradeRepository domain.TradeRepository,
	offerRepository domain.OfferRepository,
	relaySvc ports.RelayService,
	walletSvc ports.WalletService,
	securitySvc ports.SecurityService,
	watcherSvc txwatcher.Service,
) TradeService {
	return &tradeService{
		tradeRepository: tradeRepository,
		offerRepository: offerRepository,
		relaySvc:        relaySvc,
		walletSvc:       walletSvc,
		securitySvc:     securitySvc,
		watcherSvc:      watcherSvc,
	}
}

func (s *tradeService) TakeOffer(
	ctx context.Context, offerId string,
	btcAmount, paymentAmount decimal.Decimal,
) (*domain.Trade, error) {
	offer, err := s.relaySvc.GetOffer(ctx, offerId)
	if err != nil {
		return nil, err
	}
	if err := offer.Verify(); err != nil {
		return nil, domain.ErrOfferNotFound
	}

	escrowPubKey, err := s.walletSvc.FreshPubKey()
	if err != nil {
		return nil, err
	}
	request := domain.TradeRequest{
		TakerProfilePubKey: s.walletSvc.PubKey(),
		TakerEscrowPubKey:  escrowPubKey,
		BtcAmount:          btcAmount,
		PaymentAmount:      paymentAmount,
	}
	digest, err := request.DigestForOffer(offer)
	if err != nil {
		return nil, err
	}
	if request.Signature, err = s.walletSvc.Sign(digest); err != nil {
		return nil, err
	}

	trade, err := domain.NewTrade(*offer, request)
	if err != nil {
		return nil, err
	}
	trade.Version = 1

	if err := s.tradeRepository.AddTrade(ctx, *trade); err != nil {
		return nil, err
	}
	if err := s.pushTrade(ctx, *trade); err != nil {
		return nil, err
	}

	log.Infof("took offer %s, created trade %s", offerId, trade.Id)
	return trade, nil
}

func (s *tradeService) AcceptTrade(
	ctx context.Context, tradeId, arbitratorPubKey string,
) error {
	trade, err := s.tradeRepository.GetTrade(ctx, tradeId)
	if err != nil {
		return err
	}
	if trade.Offer.MakerProfilePubKey != s.walletSvc.PubKey() {
		return ErrUnauthorizedRole
	}

	escrowPubKey, err := s.walletSvc.FreshPubKey()
	if err != nil {
		return err
	}
	acceptance := domain.TradeAcceptance{
		MakerEscrowPubKey:       escrowPubKey,
		ArbitratorProfilePubKey: arbitratorPubKey,
	}
	msg, err := s.signed(trade, acceptance, func(signature string) domain.TradeMessage {
		acceptance.Signature = signature
		return acceptance
	})
	if err != nil {
		return err
	}
	return s.applyAndPush(ctx, tradeId, msg)
}

func (s *tradeService) FundTrade(
	ctx context.Context, tradeId, fundingTxHash, paymentDetails,
	refundAddress string, txFeePerKb decimal.Decimal,
) error {
	trade, err := s.tradeRepository.GetTrade(ctx, tradeId)
	if err != nil {
		return err
	}
	if err := s.requireRole(trade, domain.RoleSeller); err != nil {
		return err
	}

	// Payment details are for the buyer only, the relay never sees them in
	// clear.
	encryptedDetails, err := s.securitySvc.Encrypt(
		trade.BuyerProfilePubKey(), []byte(paymentDetails),
	)
	if err != nil {
		return err
	}
	refundTxSignature, err := s.walletSvc.SignEscrowTx(ctx, fundingTxHash, refundAddress)
	if err != nil {
		return err
	}

	paymentRequest := domain.PaymentRequest{
		FundingTxHash:     fundingTxHash,
		PaymentDetails:    encryptedDetails,
		RefundAddress:     refundAddress,
		RefundTxSignature: refundTxSignature,
		TxFeePerKb:        txFeePerKb,
	}
	msg, err := s.signed(trade, paymentRequest, func(signature string) domain.TradeMessage {
		paymentRequest.Signature = signature
		return paymentRequest
	})
	if err != nil {
		return err
	}
	if err := s.applyAndPush(ctx, tradeId, msg); err != nil {
		return err
	}

	s.watcherSvc.WatchTx(fundingTxHash)
	return nil
}

func (s *tradeService) RequestPayout(
	ctx context.Context, tradeId, paymentReference, payoutAddress string,
) error {
	trade, err := s.tradeRepository.GetTrade(ctx, tradeId)
	if err != nil {
		return err
	}
	if err := s.requireRole(trade, domain.RoleBuyer); err != nil {
		return err
	}

	payoutTxSignature, err := s.walletSvc.SignEscrowTx(
		ctx, trade.FundingTxHash(), payoutAddress,
	)
	if err != nil {
		return err
	}
	payoutRequest := domain.PayoutRequest{
		PaymentReference:  paymentReference,
		PayoutAddress:     payoutAddress,
		PayoutTxSignature: payoutTxSignature,
	}
	msg, err := s.signed(trade, payoutRequest, func(signature string) domain.TradeMessage {
		payoutRequest.Signature = signature
		return payoutRequest
	})
	if err != nil {
		return err
	}
	return s.applyAndPush(ctx, tradeId, msg)
}

func (s *tradeService) Arbitrate(
	ctx context.Context, tradeId string, reason domain.ArbitrateReason,
) error {
	trade, err := s.tradeRepository.GetTrade(ctx, tradeId)
	if err != nil {
		return err
	}
	required := domain.RoleSeller
	if reason == domain.ArbitrateNoBtc {
		required = domain.RoleBuyer
	}
	if err := s.requireRole(trade, required); err != nil {
		return err
	}

	arbitrateRequest := domain.ArbitrateRequest{Reason: reason}
	msg, err := s.signed(trade, arbitrateRequest, func(signature string) domain.TradeMessage {
		arbitrateRequest.Signature = signature
		return arbitrateRequest
	})
	if err != nil {
		return err
	}
	if err := s.applyAndPush(ctx, tradeId, msg); err != nil {
		return err
	}

	log.Infof("trade %s escalated to arbitrator (%s)", tradeId, reason.CanonicalName())
	return nil
}

func (s *tradeService) CancelTrade(
	ctx context.Context, tradeId, payoutTxHash string,
) error {
	trade, err := s.tradeRepository.GetTrade(ctx, tradeId)
	if err != nil {
		return err
	}
	role, err := trade.RoleOf(s.walletSvc.PubKey())
	if err != nil {
		return err
	}

	var reason domain.CancelReason
	switch {
	case trade.PaymentRequest == nil && role == domain.RoleSeller:
		reason = domain.SellerCancelUnfunded
	case trade.PaymentRequest == nil && role == domain.RoleBuyer:
		reason = domain.BuyerCancelUnfunded
	case role == domain.RoleBuyer:
		reason = domain.BuyerCancelFunded
	default:
		return ErrUnauthorizedRole
	}

	cancelCompleted := domain.CancelCompleted{
		PayoutTxHash: payoutTxHash,
		Reason:       reason,
	}
	msg, err := s.signed(trade, cancelCompleted, func(signature string) domain.TradeMessage {
		cancelCompleted.Signature = signature
		return cancelCompleted
	})
	if err != nil {
		return err
	}
	if err := s.applyAndPush(ctx, tradeId, msg); err != nil {
		return err
	}

	if len(payoutTxHash) > 0 {
		s.watcherSvc.WatchTx(payoutTxHash)
	}
	return nil
}

func (s *tradeService) CompletePayout(
	ctx context.Context, tradeId string,
	reason domain.PayoutReason, payoutTxHash string,
) error {
	trade, err := s.tradeRepository.GetTrade(ctx, tradeId)
	if err != nil {
		return err
	}

	payoutCompleted := domain.PayoutCompleted{
		PayoutTxHash: payoutTxHash,
		Reason:       reason,
	}
	msg, err := s.signed(trade, payoutCompleted, func(signature string) domain.TradeMessage {
		payoutCompleted.Signature = signature
		return payoutCompleted
	})
	if err != nil {
		return err
	}
	if err := s.applyAndPush(ctx, tradeId, msg); err != nil {
		return err
	}

	s.watcherSvc.WatchTx(payoutTxHash)
	return nil
}

func (s *tradeService) PaymentDetails(
	ctx context.Context, tradeId string,
) (string, error) {
	trade, err := s.tradeRepository.GetTrade(ctx, tradeId)
	if err != nil {
		return "", err
	}
	if err := s.requireRole(trade, domain.RoleBuyer); err != nil {
		return "", err
	}
	if trade.PaymentRequest == nil {
		return "", domain.ErrProtocolSequence
	}
	plaintext, err := s.securitySvc.Decrypt(trade.PaymentRequest.PaymentDetails)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *tradeService) GetTrade(ctx context.Context, tradeId string) (*domain.Trade, error) {
	return s.tradeRepository.GetTrade(ctx, tradeId)
}

func (s *tradeService) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	return s.tradeRepository.GetAllTrades(ctx)
}

func (s *tradeService) SyncTrade(ctx context.Context, tradeId string) error {
	remote, err := s.relaySvc.GetTrade(ctx, tradeId)
	if err != nil {
		if errors.Is(err, domain.ErrTradeNotFound) {
			return nil
		}
		return err
	}
	return s.mergeRemote(ctx, tradeId, remote)
}

func (s *tradeService) SyncAllTrades(ctx context.Context) error {
	trades, err := s.tradeRepository.GetAllTrades(ctx)
	if err != nil {
		return err
	}
	for i := range trades {
		status, err := trades[i].Status()
		if err != nil {
			return err
		}
		if status.Terminal() {
			continue
		}
		if err := s.SyncTrade(ctx, trades[i].Id); err != nil {
			log.Warnf("syncing trade %s: %s", trades[i].Id, err)
		}
	}
	return nil
}

func (s *tradeService) HandleTxEvent(ctx context.Context, event txwatcher.Event) error {
	trades, err := s.tradeRepository.GetAllTrades(ctx)
	if err != nil {
		return err
	}
	for i := range trades {
		trade := trades[i]
		var updateFn func(t *domain.Trade) (*domain.Trade, error)
		switch event.TxHash {
		case trade.FundingTxHash():
			updateFn = func(t *domain.Trade) (*domain.Trade, error) {
				return t.WithFundingConfirmations(event.Confirmations), nil
			}
		case trade.PayoutTxHash():
			updateFn = func(t *domain.Trade) (*domain.Trade, error) {
				return t.WithPayoutConfirmations(event.Confirmations), nil
			}
		default:
			continue
		}

		if err := s.tradeRepository.UpdateTrade(ctx, trade.Id, updateFn); err != nil {
			return err
		}

		updated, err := s.tradeRepository.GetTrade(ctx, trade.Id)
		if err != nil {
			return err
		}
		status, err := updated.Status()
		if err != nil {
			return err
		}
		log.Infof(
			"trade %s: tx %s reached depth %d, status %s",
			trade.Id, event.TxHash, event.Confirmations, status,
		)
		if status.Terminal() {
			s.watcherSvc.UnwatchTx(event.TxHash)
		}
	}
	return nil
}

// signed computes the digest of a sub-message within its trade, signs it with
// the local profile key and returns the sealed message.
func (s *tradeService) signed(
	trade *domain.Trade, draft domain.TradeMessage,
	seal func(signature string) domain.TradeMessage,
) (domain.TradeMessage, error) {
	digest, err := domain.MessageDigest(trade, draft)
	if err != nil {
		return nil, err
	}
	signature, err := s.walletSvc.Sign(digest)
	if err != nil {
		return nil, err
	}
	return seal(signature), nil
}

// applyAndPush merges a locally-built sub-message into the aggregate, bumps
// the resource version and pushes the result to the relay.
func (s *tradeService) applyAndPush(
	ctx context.Context, tradeId string, msg domain.TradeMessage,
) error {
	var updated domain.Trade
	if err := s.tradeRepository.UpdateTrade(
		ctx, tradeId,
		func(t *domain.Trade) (*domain.Trade, error) {
			next, err := t.Apply(msg)
			if err != nil {
				return nil, err
			}
			next.Version = t.Version + 1
			updated = *next
			return next, nil
		},
	); err != nil {
		return err
	}
	return s.pushTrade(ctx, updated)
}

// pushTrade writes the trade resource to the relay. On a version conflict it
// refetches, re-derives the aggregate and retries exactly once.
func (s *tradeService) pushTrade(ctx context.Context, trade domain.Trade) error {
	err := s.relaySvc.PutTrade(ctx, trade)
	if !errors.Is(err, ports.ErrConflict) {
		return err
	}

	log.Debugf("trade %s: version conflict, refetching", trade.Id)
	remote, err := s.relaySvc.GetTrade(ctx, trade.Id)
	if err != nil {
		return err
	}
	if err := s.mergeRemote(ctx, trade.Id, remote); err != nil {
		return err
	}

	// The re-put must supersede the version that won the race.
	var merged domain.Trade
	if err := s.tradeRepository.UpdateTrade(
		ctx, trade.Id,
		func(t *domain.Trade) (*domain.Trade, error) {
			next := *t
			if next.Version <= remote.Version {
				next.Version = remote.Version + 1
			}
			merged = next
			return &next, nil
		},
	); err != nil {
		return err
	}
	return s.relaySvc.PutTrade(ctx, merged)
}

// mergeRemote merges the sub-messages of a relay-fetched trade into the local
// aggregate in protocol order. Every message is verified by Apply before it
// enters the aggregate, and applying an already-present message is a no-op.
func (s *tradeService) mergeRemote(
	ctx context.Context, tradeId string, remote *domain.Trade,
) error {
	if remote.Id != tradeId {
		return fmt.Errorf("%w: relay returned trade %s", domain.ErrTradeNotFound, remote.Id)
	}

	// A trade this side has never seen, typically the maker learning that
	// its offer was taken, is rebuilt from the remote's offer and request.
	// NewTrade re-verifies both signatures and recomputes the id.
	if _, err := s.tradeRepository.GetTrade(ctx, tradeId); err != nil {
		if !errors.Is(err, domain.ErrTradeNotFound) {
			return err
		}
		created, err := domain.NewTrade(remote.Offer, remote.TradeRequest)
		if err != nil {
			return err
		}
		if created.Id != tradeId {
			return fmt.Errorf("%w: trade id mismatch", domain.ErrTradeNotFound)
		}
		if err := s.tradeRepository.AddTrade(ctx, *created); err != nil {
			return err
		}
	}

	var merged *domain.Trade
	if err := s.tradeRepository.UpdateTrade(
		ctx, tradeId,
		func(t *domain.Trade) (*domain.Trade, error) {
			next := t
			for _, msg := range remote.Messages() {
				applied, err := next.Apply(msg)
				if err != nil {
					return nil, err
				}
				next = applied
			}
			if remote.Version > next.Version {
				next.Version = remote.Version
			}
			merged = next
			return next, nil
		},
	); err != nil {
		return err
	}

	// A funded or closing trade learned from the relay must be watched for
	// confirmations on this side too.
	if hash := merged.FundingTxHash(); len(hash) > 0 && merged.FundingConfirmations == 0 {
		s.watcherSvc.WatchTx(hash)
	}
	if hash := merged.PayoutTxHash(); len(hash) > 0 && merged.PayoutConfirmations == 0 {
		s.watcherSvc.WatchTx(hash)
	}
	return nil
}

func (s *tradeService) requireRole(trade *domain.Trade, required domain.Role) error {
	role, err := trade.RoleOf(s.walletSvc.PubKey())
	if err != nil {
		return err
	}
	if role != required {
		return ErrUnauthorizedRole
	}
	return nil
}
