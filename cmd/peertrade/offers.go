package main

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/peertrade-network/peertrade-daemon/internal/core/ports"
	"github.com/peertrade-network/peertrade-daemon/internal/infrastructure/relay"
)

var listoffers = cli.Command{
	Name:   "listoffers",
	Usage:  "list all verified offers published on the relay",
	Action: listOffersAction,
}

var showoffer = cli.Command{
	Name:      "showoffer",
	Usage:     "show a single offer published on the relay",
	ArgsUsage: "<offer_id>",
	Action:    showOfferAction,
}

func getRelayClient() (ports.RelayService, error) {
	relayUrl, err := getRelayUrlFromState()
	if err != nil {
		return nil, err
	}
	return relay.NewService(relay.Opts{
		RelayURL: relayUrl,
		Retry: relay.RetryPolicy{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
		},
	}), nil
}

func listOffersAction(ctx *cli.Context) error {
	client, err := getRelayClient()
	if err != nil {
		return err
	}

	offers, err := client.GetOffers(context.Background())
	if err != nil {
		return err
	}

	verified := offers[:0]
	for _, offer := range offers {
		if err := offer.Verify(); err == nil {
			verified = append(verified, offer)
		}
	}

	printJSON(verified)

	return nil
}

func showOfferAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("offer id is missing")
	}
	offerId := ctx.Args().First()

	client, err := getRelayClient()
	if err != nil {
		return err
	}

	offer, err := client.GetOffer(context.Background(), offerId)
	if err != nil {
		return err
	}
	if err := offer.Verify(); err != nil {
		return err
	}

	printJSON(offer)

	return nil
}
