package application_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peertrade-network/peertrade-daemon/internal/core/application"
	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
	"github.com/peertrade-network/peertrade-daemon/internal/core/ports"
	"github.com/peertrade-network/peertrade-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/peertrade-network/peertrade-daemon/pkg/cryptoutil"
	"github.com/peertrade-network/peertrade-daemon/pkg/hashutil"
	"github.com/peertrade-network/peertrade-daemon/pkg/txwatcher"
)

// fakeWallet implements ports.WalletService and ports.SecurityService on a
// throwaway key pair.
type fakeWallet struct {
	keyPair *cryptoutil.KeyPair
}

func newFakeWallet(t *testing.T) *fakeWallet {
	t.Helper()
	keyPair, err := cryptoutil.NewKeyPair()
	require.NoError(t, err)
	return &fakeWallet{keyPair}
}

func (w *fakeWallet) PubKey() string { return w.keyPair.PubKey() }

func (w *fakeWallet) Sign(digest []byte) (string, error) {
	return w.keyPair.Sign(digest)
}

func (w *fakeWallet) FreshPubKey() (string, error) {
	escrow, err := cryptoutil.NewKeyPair()
	if err != nil {
		return "", err
	}
	return escrow.PubKey(), nil
}

func (w *fakeWallet) SignEscrowTx(
	ctx context.Context, fundingTxHash, payoutAddress string,
) (string, error) {
	digest, err := hashutil.Sha256Fields(fundingTxHash, payoutAddress)
	if err != nil {
		return "", err
	}
	return w.keyPair.Sign(digest)
}

func (w *fakeWallet) WatchAddress(ctx context.Context, address string) error {
	return nil
}

func (w *fakeWallet) ConfirmationDepth(ctx context.Context, txHash string) (int, error) {
	return 0, nil
}

func (w *fakeWallet) Encrypt(pubkey string, plaintext []byte) (string, error) {
	return cryptoutil.Encrypt(pubkey, plaintext)
}

func (w *fakeWallet) Decrypt(cyphertext string) ([]byte, error) {
	return w.keyPair.Decrypt(cyphertext)
}

// fakeRelay is an in-memory relay honoring the optimistic-concurrency
// contract: a put with a stale trade version yields ports.ErrConflict.
type fakeRelay struct {
	offers map[string]domain.Offer
	trades map[string]domain.Trade
	lock   sync.RWMutex
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{
		offers: map[string]domain.Offer{},
		trades: map[string]domain.Trade{},
	}
}

func (r *fakeRelay) PutOffer(ctx context.Context, offer domain.Offer) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.offers[offer.Id] = offer
	return nil
}

func (r *fakeRelay) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	offer, ok := r.offers[id]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	return &offer, nil
}

func (r *fakeRelay) GetOffers(ctx context.Context) ([]domain.Offer, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	offers := make([]domain.Offer, 0, len(r.offers))
	for _, offer := range r.offers {
		offers = append(offers, offer)
	}
	return offers, nil
}

func (r *fakeRelay) DeleteOffer(ctx context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.offers[id]; !ok {
		return domain.ErrOfferNotFound
	}
	delete(r.offers, id)
	return nil
}

func (r *fakeRelay) PutTrade(ctx context.Context, trade domain.Trade) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if existing, ok := r.trades[trade.Id]; ok && trade.Version <= existing.Version {
		return ports.ErrConflict
	}
	r.trades[trade.Id] = trade
	return nil
}

func (r *fakeRelay) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	trade, ok := r.trades[id]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return &trade, nil
}

// tamperOffer overwrites a relay listing in place, bypassing the client.
func (r *fakeRelay) tamperOffer(id string, tamper func(o *domain.Offer)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	offer := r.offers[id]
	tamper(&offer)
	r.offers[id] = offer
}

// fakeWatcher records watched transaction hashes without polling anything.
type fakeWatcher struct {
	watched map[string]bool
	lock    sync.Mutex
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{watched: map[string]bool{}}
}

func (w *fakeWatcher) Stop()                        {}
func (w *fakeWatcher) EventChannel() chan txwatcher.Event { return nil }

func (w *fakeWatcher) WatchTx(txHash string) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.watched[txHash] = true
}

func (w *fakeWatcher) UnwatchTx(txHash string) {
	w.lock.Lock()
	defer w.lock.Unlock()
	delete(w.watched, txHash)
}

func (w *fakeWatcher) IsWatching(txHash string) bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.watched[txHash]
}

// daemon bundles the application services of one simulated participant, all
// sharing the same relay.
type daemon struct {
	wallet   *fakeWallet
	watcher  *fakeWatcher
	offerSvc application.OfferService
	tradeSvc application.TradeService
}

func newDaemon(t *testing.T, relay *fakeRelay) *daemon {
	t.Helper()
	wallet := newFakeWallet(t)
	watcher := newFakeWatcher()
	offerRepository := inmemory.NewOfferRepositoryImpl()
	tradeRepository := inmemory.NewTradeRepositoryImpl()

	return &daemon{
		wallet:  wallet,
		watcher: watcher,
		offerSvc: application.NewOfferService(
			offerRepository, relay, wallet,
		),
		tradeSvc: application.NewTradeService(
			tradeRepository, offerRepository, relay, wallet, wallet, watcher,
		),
	}
}
