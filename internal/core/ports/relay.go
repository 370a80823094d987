package ports

import (
	"context"
	"errors"

	"github.com/peertrade-network/peertrade-daemon/internal/core/domain"
)

var (
	// ErrConflict is returned on an optimistic-concurrency version mismatch.
	// The caller must refetch and re-derive before retrying.
	ErrConflict = errors.New("relay resource version conflict")
	// ErrRelayUnavailable is returned once the bounded retry policy around a
	// relay call is exhausted.
	ErrRelayUnavailable = errors.New("relay is unavailable")
)

// RelayService is the client of the untrusted relay server. The relay is
// trusted for availability and delivery, never for content integrity: every
// payload read through it must be verified by the caller.
type RelayService interface {
	PutOffer(ctx context.Context, offer domain.Offer) error
	GetOffer(ctx context.Context, id string) (*domain.Offer, error)
	GetOffers(ctx context.Context) ([]domain.Offer, error)
	DeleteOffer(ctx context.Context, id string) error
	// PutTrade writes a versioned trade resource. A stale version yields
	// ErrConflict.
	PutTrade(ctx context.Context, trade domain.Trade) error
	GetTrade(ctx context.Context, id string) (*domain.Trade, error)
}
