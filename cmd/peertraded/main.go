package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/peertrade-network/peertrade-daemon/internal/config"
	"github.com/peertrade-network/peertrade-daemon/internal/core/application"
	"github.com/peertrade-network/peertrade-daemon/internal/infrastructure/relay"
	dbbadger "github.com/peertrade-network/peertrade-daemon/internal/infrastructure/storage/db/badger"
	"github.com/peertrade-network/peertrade-daemon/internal/infrastructure/wallet"
	"github.com/peertrade-network/peertrade-daemon/pkg/explorer/esplora"
	"github.com/peertrade-network/peertrade-daemon/pkg/stats"
	"github.com/peertrade-network/peertrade-daemon/pkg/txwatcher"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	datadir := config.GetDatadir()

	dbManager, err := dbbadger.NewDbManager(
		filepath.Join(datadir, config.DbLocation), nil,
	)
	if err != nil {
		log.WithError(err).Fatal("error while opening db")
	}
	offerRepository := dbbadger.NewOfferRepositoryImpl(dbManager)
	tradeRepository := dbbadger.NewTradeRepositoryImpl(dbManager)

	explorerSvc, err := esplora.NewService(config.GetString(config.ExplorerUrlKey))
	if err != nil {
		log.WithError(err).Fatal("error while connecting to explorer")
	}

	walletSvc, err := wallet.NewService(wallet.Opts{
		Datadir:     datadir,
		ExplorerSvc: explorerSvc,
	})
	if err != nil {
		log.WithError(err).Fatal("error while loading wallet")
	}

	relaySvc := relay.NewService(relay.Opts{
		RelayURL: config.GetString(config.RelayUrlKey),
		Retry: relay.RetryPolicy{
			MaxAttempts: config.GetInt(config.RelayRetryAttemptsKey),
			Delay: time.Duration(
				config.GetInt(config.RelayRetryDelayKey),
			) * time.Second,
		},
	})

	watcherSvc := txwatcher.NewService(txwatcher.Opts{
		Source: explorerSvc,
		Interval: time.Duration(
			config.GetInt(config.TxPollIntervalKey),
		) * time.Second,
		RequestsPerSecond: config.GetInt(config.ExplorerRequestsPerSecondKey),
	})

	offerSvc := application.NewOfferService(offerRepository, relaySvc, walletSvc)
	tradeSvc := application.NewTradeService(
		tradeRepository, offerRepository, relaySvc,
		walletSvc, walletSvc, watcherSvc,
	)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		for event := range watcherSvc.EventChannel() {
			if err := tradeSvc.HandleTxEvent(ctx, event); err != nil {
				log.WithError(err).Warnf(
					"error while handling confirmation of tx %s", event.TxHash,
				)
			}
		}
	}()

	syncInterval := time.Duration(config.GetInt(config.SyncIntervalKey)) * time.Second
	syncTicker := time.NewTicker(syncInterval)
	go func() {
		for {
			select {
			case <-syncTicker.C:
				if err := tradeSvc.SyncAllTrades(ctx); err != nil {
					log.WithError(err).Warn("error while syncing trades")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if config.GetBool(config.EnableProfilerKey) {
		statsInterval := time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
		stats.EnableMemoryStatistics(
			ctx, statsInterval,
			filepath.Join(datadir, config.ProfilerLocation, "metrics"),
		)
	}

	// catch-up with whatever happened on the relay while we were down
	go func() {
		if err := tradeSvc.SyncAllTrades(ctx); err != nil {
			log.WithError(err).Warn("error while syncing trades at startup")
		}
	}()

	log.Infof("profile pubkey: %s", walletSvc.PubKey())
	offers, err := offerSvc.ListLocalOffers(ctx)
	if err != nil {
		log.WithError(err).Fatal("error while reading local offers")
	}
	log.Infof("daemon started with %d local offers", len(offers))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down")
	cancel()
	syncTicker.Stop()
	watcherSvc.Stop()
	if err := dbManager.Close(); err != nil {
		log.WithError(err).Warn("error while closing db")
	}
	log.Info("exiting")
}
