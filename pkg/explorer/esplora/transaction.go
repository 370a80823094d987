package esplora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/peertrade-network/peertrade-daemon/pkg/explorer"
	"github.com/peertrade-network/peertrade-daemon/pkg/httputil"
)

func (e *esplora) GetBlockHeight(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", e.apiURL)
	status, resp, err := httputil.NewHTTPRequest(ctx, "GET", url, "", nil)
	if err != nil {
		return -1, err
	}
	if status != http.StatusOK {
		return -1, fmt.Errorf("esplora answered %d: %s", status, resp)
	}

	return strconv.Atoi(resp)
}

func (e *esplora) GetTransactionStatus(
	ctx context.Context, txHash string,
) (*explorer.TransactionStatus, error) {
	url := fmt.Sprintf("%s/tx/%s/status", e.apiURL, txHash)
	status, resp, err := httputil.NewHTTPRequest(ctx, "GET", url, "", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &explorer.TransactionStatus{}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("esplora answered %d: %s", status, resp)
	}

	txStatus := &explorer.TransactionStatus{}
	if err := json.Unmarshal([]byte(resp), txStatus); err != nil {
		return nil, err
	}
	return txStatus, nil
}

func (e *esplora) ConfirmationDepth(ctx context.Context, txHash string) (int, error) {
	txStatus, err := e.GetTransactionStatus(ctx, txHash)
	if err != nil {
		return 0, err
	}
	if !txStatus.Confirmed {
		return 0, nil
	}

	tip, err := e.GetBlockHeight(ctx)
	if err != nil {
		return 0, err
	}
	if tip < txStatus.BlockHeight {
		return 0, nil
	}
	return tip - txStatus.BlockHeight + 1, nil
}
