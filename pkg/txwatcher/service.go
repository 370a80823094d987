package txwatcher

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const eventQueueMaxSize = 100

// Service periodically polls a DepthSource for every watched transaction and
// publishes depth changes on its event channel. Use Start and Stop to manage
// it.
type Service interface {
	Stop()
	EventChannel() chan Event
	WatchTx(txHash string)
	UnwatchTx(txHash string)
	IsWatching(txHash string) bool
}

type txWatcher struct {
	source      DepthSource
	interval    time.Duration
	rateLimiter *rate.Limiter
	eventChan   chan Event
	observables map[string]*observableHandler
	mutex       *sync.RWMutex
	wg          *sync.WaitGroup
}

// Opts defines the parameters needed for creating a watcher with NewService.
type Opts struct {
	Source            DepthSource
	Interval          time.Duration
	RequestsPerSecond int
}

// NewService returns a watcher ready to observe transaction confirmations.
func NewService(opts Opts) Service {
	return &txWatcher{
		source:      opts.Source,
		interval:    opts.Interval,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		eventChan:   make(chan Event, eventQueueMaxSize),
		observables: map[string]*observableHandler{},
		mutex:       &sync.RWMutex{},
		wg:          &sync.WaitGroup{},
	}
}

func (w *txWatcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	for _, handler := range w.observables {
		handler.stop()
	}
	w.observables = map[string]*observableHandler{}
	w.wg.Wait()
	close(w.eventChan)
}

func (w *txWatcher) EventChannel() chan Event {
	return w.eventChan
}

// WatchTx registers a transaction hash for observation, only if it is not
// watched already.
func (w *txWatcher) WatchTx(txHash string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, ok := w.observables[txHash]; ok {
		return
	}
	handler := newObservableHandler(
		txHash, w.source, w.wg, w.interval, w.eventChan, w.rateLimiter,
	)
	w.observables[txHash] = handler
	w.wg.Add(1)
	go handler.start()
}

func (w *txWatcher) UnwatchTx(txHash string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if handler, ok := w.observables[txHash]; ok {
		handler.stop()
		delete(w.observables, txHash)
	}
}

func (w *txWatcher) IsWatching(txHash string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	_, ok := w.observables[txHash]
	return ok
}
