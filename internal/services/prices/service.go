// Package prices maintains the latest known price snapshot per tracked
// asset. Reads always serve the last stored snapshot set; a refresh either
// replaces the whole set or leaves it untouched.
package prices

import (
	"context"
	"strings"

	"github.com/hashbridge/ledger-gateway/internal/domain/price"
	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
	"github.com/hashbridge/ledger-gateway/internal/storage"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

// Service is the price cache over the shared storage backend.
type Service struct {
	store   storage.PriceStore
	fetcher Fetcher
	assets  []string
	log     *logger.Logger
}

// New constructs a price cache for the given tracked asset ids.
func New(store storage.PriceStore, fetcher Fetcher, assets []string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("prices")
	}
	tracked := make([]string, 0, len(assets))
	for _, id := range assets {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			tracked = append(tracked, trimmed)
		}
	}
	return &Service{store: store, fetcher: fetcher, assets: tracked, log: log}
}

// RefreshOnce fetches all tracked assets in one batched oracle call and
// replaces the stored snapshot set. On any fetch failure the existing cache
// is left untouched and the failure is reported for logging; it is never
// fatal.
func (s *Service) RefreshOnce(ctx context.Context) error {
	if s.fetcher == nil || len(s.assets) == 0 {
		return nil
	}

	snaps, err := s.fetcher.Fetch(ctx, s.assets)
	if err != nil {
		return svcerr.OracleUnavailable(err)
	}

	if err := s.store.ReplacePrices(ctx, snaps); err != nil {
		return svcerr.StorageUnavailable(err)
	}
	s.log.WithField("assets", len(snaps)).Debug("price cache refreshed")
	return nil
}

// ReadAll returns the cached snapshot set. When nothing has ever been
// cached it falls back to a synchronous on-demand fetch.
func (s *Service) ReadAll(ctx context.Context) ([]price.Snapshot, error) {
	snaps, err := s.store.ListPrices(ctx)
	if err != nil {
		return nil, svcerr.StorageUnavailable(err)
	}
	if len(snaps) > 0 {
		return snaps, nil
	}

	if err := s.RefreshOnce(ctx); err != nil {
		return nil, err
	}
	snaps, err = s.store.ListPrices(ctx)
	if err != nil {
		return nil, svcerr.StorageUnavailable(err)
	}
	return snaps, nil
}
