// Package policy holds the static tier limit table consulted by the limit
// enforcer.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"vledger/internal/domain"
	"vledger/pkg/config"
	"vledger/pkg/errors"
)

// Entry is the pair of limits applied to one verification tier, in
// whole-token units.
type Entry struct {
	SingleLimit decimal.Decimal `json:"single_limit"`
	DailyLimit  decimal.Decimal `json:"daily_limit"`
}

// Table maps every verification tier to its limits. It is built once from
// configuration and read-only afterwards, so independent ledgers can carry
// independent policies.
type Table struct {
	entries map[domain.Tier]Entry
}

// NewTable parses the configured limits and validates that every tier is
// covered and that single_limit <= daily_limit throughout.
func NewTable(cfg config.PolicyConfig) (*Table, error) {
	raw := map[domain.Tier]config.TierLimits{
		domain.TierNone:     cfg.None,
		domain.TierBasic:    cfg.Basic,
		domain.TierEnhanced: cfg.Enhanced,
		domain.TierPremium:  cfg.Premium,
	}

	entries := make(map[domain.Tier]Entry, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		limits := raw[tier]
		single, err := decimal.NewFromString(limits.SingleLimit)
		if err != nil {
			return nil, fmt.Errorf("tier %s: invalid single limit %q: %w", tier, limits.SingleLimit, err)
		}
		daily, err := decimal.NewFromString(limits.DailyLimit)
		if err != nil {
			return nil, fmt.Errorf("tier %s: invalid daily limit %q: %w", tier, limits.DailyLimit, err)
		}
		if single.IsNegative() || daily.IsNegative() {
			return nil, fmt.Errorf("tier %s: limits must not be negative", tier)
		}
		if single.GreaterThan(daily) {
			return nil, fmt.Errorf("tier %s: single limit %s exceeds daily limit %s", tier, single, daily)
		}
		entries[tier] = Entry{SingleLimit: single, DailyLimit: daily}
	}

	return &Table{entries: entries}, nil
}

// Lookup returns the limits for a tier. An unknown tier is a configuration
// bug surfaced as ErrUnknownTier rather than a zero entry.
func (t *Table) Lookup(tier domain.Tier) (Entry, error) {
	entry, ok := t.entries[tier]
	if !ok {
		return Entry{}, errors.Wrap(errors.ErrUnknownTier, string(tier))
	}
	return entry, nil
}
