package wallet

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/peertrade-network/peertrade-daemon/pkg/cryptoutil"
	"github.com/peertrade-network/peertrade-daemon/pkg/explorer"
	"github.com/peertrade-network/peertrade-daemon/pkg/hashutil"
)

const keyFileName = "identity.key"

// Opts defines the parameters needed for creating a wallet service with
// NewService.
type Opts struct {
	Datadir     string
	ExplorerSvc explorer.Service
}

// service is a file-backed wallet holding the profile identity key and the
// escrow keys issued per trade. Multisig script construction stays opaque
// behind SignEscrowTx.
type service struct {
	keyPair     *cryptoutil.KeyPair
	explorerSvc explorer.Service

	escrowKeys map[string]*cryptoutil.KeyPair
	watched    map[string]struct{}
	mutex      *sync.RWMutex
}

// NewService restores the identity key pair from the datadir, generating and
// persisting a fresh one on first run.
func NewService(opts Opts) (*service, error) {
	keyPair, err := loadOrCreateKeyPair(filepath.Join(opts.Datadir, keyFileName))
	if err != nil {
		return nil, err
	}

	return &service{
		keyPair:     keyPair,
		explorerSvc: opts.ExplorerSvc,
		escrowKeys:  map[string]*cryptoutil.KeyPair{},
		watched:     map[string]struct{}{},
		mutex:       &sync.RWMutex{},
	}, nil
}

func (s *service) PubKey() string {
	return s.keyPair.PubKey()
}

func (s *service) Sign(digest []byte) (string, error) {
	return s.keyPair.Sign(digest)
}

func (s *service) FreshPubKey() (string, error) {
	keyPair, err := cryptoutil.NewKeyPair()
	if err != nil {
		return "", err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.escrowKeys[keyPair.PubKey()] = keyPair
	return keyPair.PubKey(), nil
}

func (s *service) SignEscrowTx(
	ctx context.Context, fundingTxHash, payoutAddress string,
) (string, error) {
	digest, err := hashutil.Sha256Fields(fundingTxHash, payoutAddress)
	if err != nil {
		return "", err
	}
	return s.keyPair.Sign(digest)
}

func (s *service) WatchAddress(ctx context.Context, address string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.watched[address]; !ok {
		s.watched[address] = struct{}{}
		log.Debugf("wallet: watching address %s", address)
	}
	return nil
}

func (s *service) ConfirmationDepth(ctx context.Context, txHash string) (int, error) {
	return s.explorerSvc.ConfirmationDepth(ctx, txHash)
}

func (s *service) Encrypt(pubkey string, plaintext []byte) (string, error) {
	return cryptoutil.Encrypt(pubkey, plaintext)
}

func (s *service) Decrypt(cyphertext string) ([]byte, error) {
	return s.keyPair.Decrypt(cyphertext)
}

func loadOrCreateKeyPair(path string) (*cryptoutil.KeyPair, error) {
	buf, err := ioutil.ReadFile(path)
	if err == nil {
		return cryptoutil.KeyPairFromBytes(buf), nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading identity key: %w", err)
	}

	keyPair, err := cryptoutil.NewKeyPair()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	if err := ioutil.WriteFile(path, keyPair.Serialize(), 0600); err != nil {
		return nil, fmt.Errorf("persisting identity key: %w", err)
	}
	log.Infof("wallet: generated new identity %s", keyPair.PubKey())
	return keyPair, nil
}
