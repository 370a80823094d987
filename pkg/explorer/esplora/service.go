package esplora

import (
	"context"
	"fmt"
	"net/http"

	"github.com/peertrade-network/peertrade-daemon/pkg/explorer"
	"github.com/peertrade-network/peertrade-daemon/pkg/httputil"
)

type esplora struct {
	apiURL string
}

// NewService returns a new esplora client as an explorer.Service interface.
func NewService(apiURL string) (explorer.Service, error) {
	service := &esplora{apiURL}

	if err := service.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	return service, nil
}

func (e *esplora) healthCheck() error {
	url := fmt.Sprintf("%s/blocks/tip/height", e.apiURL)
	status, resp, err := httputil.NewHTTPRequest(context.Background(), "GET", url, "", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("esplora answered %d: %s", status, resp)
	}
	return nil
}
