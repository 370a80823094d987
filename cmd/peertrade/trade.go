package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
)

var showtrade = cli.Command{
	Name:      "showtrade",
	Usage:     "show a trade published on the relay along with its derived status",
	ArgsUsage: "<trade_id>",
	Action:    showTradeAction,
}

func showTradeAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return errors.New("trade id is missing")
	}
	tradeId := ctx.Args().First()

	client, err := getRelayClient()
	if err != nil {
		return err
	}

	trade, err := client.GetTrade(context.Background(), tradeId)
	if err != nil {
		return err
	}

	status, err := trade.Status()
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\n", status)

	printJSON(trade)

	return nil
}
