package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vledger/internal/domain"
	"vledger/pkg/config"
	"vledger/pkg/errors"
)

func validConfig() config.PolicyConfig {
	return config.PolicyConfig{
		None:     config.TierLimits{SingleLimit: "0", DailyLimit: "0"},
		Basic:    config.TierLimits{SingleLimit: "500", DailyLimit: "1000"},
		Enhanced: config.TierLimits{SingleLimit: "5000", DailyLimit: "10000"},
		Premium:  config.TierLimits{SingleLimit: "50000", DailyLimit: "100000"},
	}
}

func TestLookup(t *testing.T) {
	table, err := NewTable(validConfig())
	require.NoError(t, err)

	entry, err := table.Lookup(domain.TierBasic)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(entry.SingleLimit))
	assert.True(t, decimal.NewFromInt(1000).Equal(entry.DailyLimit))

	entry, err = table.Lookup(domain.TierNone)
	require.NoError(t, err)
	assert.True(t, entry.SingleLimit.IsZero())
	assert.True(t, entry.DailyLimit.IsZero())
}

func TestLookupUnknownTier(t *testing.T) {
	table, err := NewTable(validConfig())
	require.NoError(t, err)

	_, err = table.Lookup(domain.Tier("platinum"))
	assert.ErrorIs(t, err, errors.ErrUnknownTier)
}

func TestNewTableRejectsInvertedLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Basic = config.TierLimits{SingleLimit: "2000", DailyLimit: "1000"}

	_, err := NewTable(cfg)
	assert.Error(t, err)
}

func TestNewTableRejectsUnparseableLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Premium.DailyLimit = "lots"

	_, err := NewTable(cfg)
	assert.Error(t, err)
}

func TestNewTableRejectsNegativeLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Enhanced.SingleLimit = "-1"

	_, err := NewTable(cfg)
	assert.Error(t, err)
}
