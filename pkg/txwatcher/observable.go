package txwatcher

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DepthSource supplies confirmation-depth facts for a transaction hash. It
// returns 0 for an unconfirmed or still unknown transaction.
type DepthSource interface {
	ConfirmationDepth(ctx context.Context, txHash string) (int, error)
}

type observableHandler struct {
	txHash      string
	source      DepthSource
	interval    time.Duration
	rateLimiter *rate.Limiter
	eventChan   chan Event
	wg          *sync.WaitGroup
	quitChan    chan struct{}
	lastDepth   int
}

func newObservableHandler(
	txHash string,
	source DepthSource,
	wg *sync.WaitGroup,
	interval time.Duration,
	eventChan chan Event,
	rateLimiter *rate.Limiter,
) *observableHandler {
	return &observableHandler{
		txHash:      txHash,
		source:      source,
		interval:    interval,
		rateLimiter: rateLimiter,
		eventChan:   eventChan,
		wg:          wg,
		quitChan:    make(chan struct{}),
		lastDepth:   -1,
	}
}

func (oh *observableHandler) start() {
	ticker := time.NewTicker(oh.interval)
	defer ticker.Stop()

	oh.observe()
	for {
		select {
		case <-ticker.C:
			oh.observe()
		case <-oh.quitChan:
			oh.wg.Done()
			return
		}
	}
}

func (oh *observableHandler) stop() {
	close(oh.quitChan)
}

func (oh *observableHandler) observe() {
	if err := oh.rateLimiter.Wait(context.Background()); err != nil {
		return
	}

	depth, err := oh.source.ConfirmationDepth(context.Background(), oh.txHash)
	if err != nil {
		log.Debugf("tx watcher: polling %s: %s", oh.txHash, err)
		return
	}
	if depth == oh.lastDepth {
		return
	}
	oh.lastDepth = depth

	oh.eventChan <- Event{TxHash: oh.txHash, Confirmations: depth}
}
