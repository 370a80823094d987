package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

var (
	peertradeDataDir = btcutil.AppDataDir("peertrade-cli", false)
	statePath        = path.Join(peertradeDataDir, "state.json")
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "peertrade CLI"
	app.Usage = "Command line interface for browsing offers and trades on a peertrade relay"
	app.Commands = append(
		app.Commands,
		&config,
		&listoffers,
		&showoffer,
		&showtrade,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	json.Unmarshal(file, &data)

	return data, nil
}

func setState(data map[string]string) error {
	if _, err := os.Stat(peertradeDataDir); os.IsNotExist(err) {
		os.Mkdir(peertradeDataDir, os.ModeDir|0755)
	}

	currentState := map[string]string{}
	if file, err := os.ReadFile(statePath); err == nil {
		json.Unmarshal(file, &currentState)
	}
	for key, value := range data {
		currentState[key] = value
	}

	content, err := json.Marshal(currentState)
	if err != nil {
		return err
	}
	return os.WriteFile(statePath, content, 0644)
}

func getRelayUrlFromState() (string, error) {
	state, err := getState()
	if err != nil {
		return "", err
	}
	relayUrl, ok := state["relay_url"]
	if !ok {
		return "", errors.New("set relay url with `config set relay_url`")
	}
	return relayUrl, nil
}

func printJSON(v interface{}) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(content))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[peertrade] %v\n", err)
	os.Exit(1)
}
