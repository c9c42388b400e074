// Package oracle retrieves and caches exchange rates from external providers.
package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"vledger/internal/domain"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

var identityRate = decimal.NewFromInt(1)

// RateProvider is one source of exchange rates. Providers are tried in order
// until one answers.
type RateProvider interface {
	Name() string
	GetRate(ctx context.Context, from, to domain.Currency) (*domain.ExchangeRate, error)
}

// RateCache is the distributed cache in front of the providers.
type RateCache interface {
	Get(ctx context.Context, key string) (*domain.ExchangeRate, error)
	Set(ctx context.Context, key string, rate *domain.ExchangeRate, ttl time.Duration) error
}

// Service answers rate lookups from an in-memory cache, then the distributed
// cache, then the provider chain. The conversion engine is its only consumer.
type Service struct {
	cache     RateCache
	providers []RateProvider
	logger    logger.Logger
	ttl       time.Duration

	mu    sync.RWMutex
	local map[string]cachedRate
}

type cachedRate struct {
	rate    *domain.ExchangeRate
	expires time.Time
}

func NewService(cache RateCache, providers []RateProvider, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		cache:     cache,
		providers: providers,
		logger:    log,
		ttl:       ttl,
		local:     make(map[string]cachedRate),
	}
}

// GetRate returns the current rate for a currency pair. Identical currencies
// quote 1 without consulting any provider. A rate that is zero or negative is
// rejected as ErrOracleRate; an exhausted provider chain is ErrOracleUnavailable.
func (s *Service) GetRate(ctx context.Context, from, to domain.Currency) (*domain.ExchangeRate, error) {
	if from == to {
		return &domain.ExchangeRate{
			BaseCurrency:   from,
			TargetCurrency: to,
			Rate:           identityRate,
			Source:         "identity",
			FetchedAt:      time.Now(),
		}, nil
	}

	key := fmt.Sprintf("%s-%s", from, to)

	s.mu.RLock()
	if entry, ok := s.local[key]; ok && time.Now().Before(entry.expires) {
		s.mu.RUnlock()
		return entry.rate, nil
	}
	s.mu.RUnlock()

	if s.cache != nil {
		if rate, err := s.cache.Get(ctx, key); err == nil {
			s.storeLocal(key, rate)
			return rate, nil
		}
	}

	return s.fetch(ctx, key, from, to)
}

func (s *Service) fetch(ctx context.Context, key string, from, to domain.Currency) (*domain.ExchangeRate, error) {
	for _, provider := range s.providers {
		rate, err := provider.GetRate(ctx, from, to)
		if err != nil {
			s.logger.Warn("Rate provider failed", map[string]interface{}{
				"provider": provider.Name(),
				"from":     from,
				"to":       to,
				"error":    err.Error(),
			})
			continue
		}
		if !rate.Rate.IsPositive() {
			s.logger.Warn("Rate provider returned non-positive rate", map[string]interface{}{
				"provider": provider.Name(),
				"from":     from,
				"to":       to,
				"rate":     rate.Rate.String(),
			})
			return nil, errors.Wrap(errors.ErrOracleRate, provider.Name())
		}

		if s.cache != nil {
			if err := s.cache.Set(ctx, key, rate, s.ttl); err != nil {
				s.logger.Error("Failed to cache rate", map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				})
			}
		}
		s.storeLocal(key, rate)
		return rate, nil
	}

	return nil, errors.ErrOracleUnavailable
}

func (s *Service) storeLocal(key string, rate *domain.ExchangeRate) {
	s.mu.Lock()
	s.local[key] = cachedRate{rate: rate, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
}
