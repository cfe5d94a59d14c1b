package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
	"github.com/iho/cashledger/internal/usecase"
)

const (
	settingsCacheKey = "settings"
	// DefaultSettingsTTL bounds how long a stale value can survive a save
	// made by another process.
	DefaultSettingsTTL = 30 * time.Second
)

type cachedSettings struct {
	CardCommissionPercent decimal.Decimal `json:"card_commission_percent"`
	CashRegisterEnabled   bool            `json:"cash_register_enabled"`
}

// SettingsCache decorates a SettingsRepository with a read-through cache.
// Cache failures fall back to the wrapped repository.
type SettingsCache struct {
	next    usecase.SettingsRepository
	cache   usecase.Cache
	logger  zerolog.Logger
	metrics *metrics.Metrics
	ttl     time.Duration
}

// NewSettingsCache creates a new SettingsCache.
func NewSettingsCache(next usecase.SettingsRepository, cache usecase.Cache, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	return &SettingsCache{
		next:   next,
		cache:  cache,
		logger: zerolog.Nop(),
		ttl:    ttl,
	}
}

// WithLogger sets the logger.
func (c *SettingsCache) WithLogger(logger zerolog.Logger) *SettingsCache {
	c.logger = logger
	return c
}

// WithMetrics counts cache failures in RedisErrors.
func (c *SettingsCache) WithMetrics(m *metrics.Metrics) *SettingsCache {
	c.metrics = m
	return c
}

func (c *SettingsCache) failed(operation string, err error) {
	c.logger.Warn().Err(err).Str("operation", operation).Msg("settings cache failure")
	if c.metrics != nil {
		c.metrics.RedisErrors.WithLabelValues(operation).Inc()
	}
}

// Get returns cached settings, loading them on a miss.
func (c *SettingsCache) Get(ctx context.Context) (domain.Settings, error) {
	raw, err := c.cache.Get(ctx, settingsCacheKey)
	switch {
	case err == nil:
		var cached cachedSettings
		if err := json.Unmarshal(raw, &cached); err == nil {
			return domain.Settings{
				CardCommissionPercent: cached.CardCommissionPercent,
				CashRegisterEnabled:   cached.CashRegisterEnabled,
			}, nil
		}
		c.logger.Warn().Msg("discarding malformed cached settings")
	case !errors.Is(err, ErrCacheMiss):
		c.failed("settings_get", err)
	}

	settings, err := c.next.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	payload, err := json.Marshal(cachedSettings{
		CardCommissionPercent: settings.CardCommissionPercent,
		CashRegisterEnabled:   settings.CashRegisterEnabled,
	})
	if err == nil {
		if err := c.cache.Set(ctx, settingsCacheKey, payload, c.ttl); err != nil {
			c.failed("settings_set", err)
		}
	}

	return settings, nil
}

// Save stores settings and drops the cached copy.
func (c *SettingsCache) Save(ctx context.Context, tx usecase.Transaction, settings domain.Settings) error {
	if err := c.next.Save(ctx, tx, settings); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached copy. It is also called once the saving
// transaction has committed so readers cannot re-cache the old row.
func (c *SettingsCache) Invalidate(ctx context.Context) {
	if err := c.cache.Delete(ctx, settingsCacheKey); err != nil {
		c.failed("settings_invalidate", err)
	}
}
