package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

// DbManager holds the badgerhold stores in a single data structure.
type DbManager struct {
	OfferStore *badgerhold.Store
	TradeStore *badgerhold.Store
}

// NewDbManager opens (or creates if not exists) the badger stores on disk.
// It expects a base data dir and an optional logger and creates a dedicated
// directory per collection.
func NewDbManager(baseDbDir string, logger badger.Logger) (*DbManager, error) {
	offerDb, err := createDb(filepath.Join(baseDbDir, "offers"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening offers db: %w", err)
	}

	tradeDb, err := createDb(filepath.Join(baseDbDir, "trades"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening trades db: %w", err)
	}

	return &DbManager{
		OfferStore: offerDb,
		TradeStore: tradeDb,
	}, nil
}

// Close closes the underlying stores.
func (d *DbManager) Close() error {
	if err := d.OfferStore.Close(); err != nil {
		return err
	}
	return d.TradeStore.Close()
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	return badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

// JSONEncode is a custom JSON based encoder for badger. Domain entities carry
// decimal amounts that survive a JSON round-trip losslessly.
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer
	if err := json.NewEncoder(&buff).Encode(value); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger.
func JSONDecode(data []byte, value interface{}) error {
	return json.NewDecoder(bytes.NewReader(data)).Decode(value)
}
