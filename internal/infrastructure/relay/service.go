package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
	"github.com/peertrade-network/peertrade-daemon/internal/core/ports"
	"github.com/peertrade-network/peertrade-daemon/pkg/circuitbreaker"
	"github.com/peertrade-network/peertrade-daemon/pkg/httputil"
)

var (
	relayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peertrade_relay_requests_total",
		Help: "Total number of requests sent to the relay.",
	}, []string{"method"})
	relayFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peertrade_relay_failures_total",
		Help: "Total number of failed relay requests.",
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(relayRequests, relayFailures)
}

// RetryPolicy bounds the automatic retries wrapped around every relay call.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Opts defines the parameters needed for creating a relay client with
// NewService.
type Opts struct {
	RelayURL string
	Retry    RetryPolicy
}

type service struct {
	apiURL string
	retry  RetryPolicy
	cb     *gobreaker.CircuitBreaker
}

// NewService returns a client of the relay's HTTP API as a ports.RelayService.
// The relay is trusted for availability only, callers must verify every
// payload read through it.
func NewService(opts Opts) ports.RelayService {
	return &service{
		apiURL: opts.RelayURL,
		retry:  opts.Retry,
		cb:     circuitbreaker.NewCircuitBreaker("relay"),
	}
}

func (s *service) PutOffer(ctx context.Context, offer domain.Offer) error {
	body, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/offers/%s", s.apiURL, offer.Id)
	status, resp, err := s.call(ctx, "PUT", url, string(body))
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusNoContent {
		return fmt.Errorf("putting offer: relay answered %d: %s", status, resp)
	}
	return nil
}

func (s *service) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	url := fmt.Sprintf("%s/offers/%s", s.apiURL, id)
	status, resp, err := s.call(ctx, "GET", url, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrOfferNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("getting offer: relay answered %d: %s", status, resp)
	}

	offer := &domain.Offer{}
	if err := json.Unmarshal([]byte(resp), offer); err != nil {
		return nil, domain.ErrOfferNotFound
	}
	return offer, nil
}

func (s *service) GetOffers(ctx context.Context) ([]domain.Offer, error) {
	url := fmt.Sprintf("%s/offers", s.apiURL)
	status, resp, err := s.call(ctx, "GET", url, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("getting offers: relay answered %d: %s", status, resp)
	}

	offers := []domain.Offer{}
	if err := json.Unmarshal([]byte(resp), &offers); err != nil {
		return nil, fmt.Errorf("getting offers: malformed relay payload: %w", err)
	}
	return offers, nil
}

func (s *service) DeleteOffer(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/offers/%s", s.apiURL, id)
	status, resp, err := s.call(ctx, "DELETE", url, "")
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return domain.ErrOfferNotFound
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("deleting offer: relay answered %d: %s", status, resp)
	}
	return nil
}

func (s *service) PutTrade(ctx context.Context, trade domain.Trade) error {
	body, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/trades/%s", s.apiURL, trade.Id)
	status, resp, err := s.call(ctx, "PUT", url, string(body))
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return ports.ErrConflict
	default:
		return fmt.Errorf("putting trade: relay answered %d: %s", status, resp)
	}
}

func (s *service) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	url := fmt.Sprintf("%s/trades/%s", s.apiURL, id)
	status, resp, err := s.call(ctx, "GET", url, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrTradeNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("getting trade: relay answered %d: %s", status, resp)
	}

	trade := &domain.Trade{}
	if err := json.Unmarshal([]byte(resp), trade); err != nil {
		return nil, fmt.Errorf("getting trade: malformed relay payload: %w", err)
	}
	return trade, nil
}

type callResult struct {
	status int
	body   string
}

// call performs one relay request with the configured bounded retry policy.
// Server-side and transport failures are retried, anything the relay answered
// deliberately is returned as-is. Exhausting the retries surfaces
// ports.ErrRelayUnavailable.
func (s *service) call(
	ctx context.Context, method, url, body string,
) (int, string, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
		"X-Request-Id": uuid.NewString(),
	}

	var lastErr error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, "", ctx.Err()
			case <-time.After(s.retry.Delay):
			}
		}

		relayRequests.WithLabelValues(method).Inc()
		res, err := s.cb.Execute(func() (interface{}, error) {
			status, resp, err := httputil.NewHTTPRequest(ctx, method, url, body, headers)
			if err != nil {
				return nil, err
			}
			if status >= http.StatusInternalServerError {
				return nil, fmt.Errorf("relay answered %d: %s", status, resp)
			}
			return callResult{status, resp}, nil
		})
		if err == nil {
			result := res.(callResult)
			return result.status, result.body, nil
		}

		relayFailures.WithLabelValues(method).Inc()
		lastErr = err
		log.Debugf("relay %s %s failed (attempt %d/%d): %s",
			method, url, attempt+1, s.retry.MaxAttempts, err)
	}
	return 0, "", fmt.Errorf("%w: %s", ports.ErrRelayUnavailable, lastErr)
}
