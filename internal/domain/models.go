// Package domain defines the core entities of the value ledger.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency represents a registered currency identifier, ISO 4217 style.
type Currency string

// Tier is a named level of identity verification gating transaction size.
type Tier string

const (
	TierNone     Tier = "none"
	TierBasic    Tier = "basic"
	TierEnhanced Tier = "enhanced"
	TierPremium  Tier = "premium"
)

// Tiers lists every tier in ascending order. The policy table must carry an
// entry for each.
var Tiers = []Tier{TierNone, TierBasic, TierEnhanced, TierPremium}

// VerificationStatus is the lifecycle state of an identity record.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusApproved   VerificationStatus = "approved"
	StatusSuspended  VerificationStatus = "suspended"
	StatusExpired    VerificationStatus = "expired"
)

// IdentityRecord holds per-account verification state. Records are created
// implicitly with (TierNone, StatusUnverified) on first reference and never
// deleted. ExpiresAt nil means the verification never expires; an approved
// record past its expiry reads as StatusExpired without a write (lazy expiry).
type IdentityRecord struct {
	AccountID  uuid.UUID          `json:"account_id" db:"account_id"`
	Status     VerificationStatus `json:"status" db:"status"`
	Tier       Tier               `json:"tier" db:"tier"`
	Reference  string             `json:"reference" db:"reference"`
	VerifiedAt *time.Time         `json:"verified_at,omitempty" db:"verified_at"`
	ExpiresAt  *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
	UpdatedAt  time.Time          `json:"updated_at" db:"updated_at"`
}

// NewIdentityRecord returns the implicit default record for an account that
// has never been verified.
func NewIdentityRecord(accountID uuid.UUID) *IdentityRecord {
	return &IdentityRecord{
		AccountID: accountID,
		Status:    StatusUnverified,
		Tier:      TierNone,
	}
}

// UsageWindow accumulates an account's transfer volume within a rolling
// 24-hour window starting at WindowStart. Once the window has elapsed the
// stored value is stale and reads as zero until the next recorded movement
// resets it.
type UsageWindow struct {
	AccountID   uuid.UUID       `json:"account_id" db:"account_id"`
	UsedToday   decimal.Decimal `json:"used_today" db:"used_today"`
	WindowStart time.Time       `json:"window_start" db:"window_start"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// WindowDuration is the length of the usage window.
const WindowDuration = 24 * time.Hour

// CurrencyBalance is one account's balance in one currency.
type CurrencyBalance struct {
	AccountID uuid.UUID       `json:"account_id" db:"account_id"`
	Currency  Currency        `json:"currency" db:"currency"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ExchangeRate is one quoted conversion rate between two currencies. Rate is
// the multiplier applied to a source amount; conversion math scales it to
// 18 fixed-point digits and floors.
type ExchangeRate struct {
	BaseCurrency   Currency        `json:"base_currency"`
	TargetCurrency Currency        `json:"target_currency"`
	Rate           decimal.Decimal `json:"rate"`
	Source         string          `json:"source"`
	FetchedAt      time.Time       `json:"fetched_at"`
}

// Metadata is a JSON-compatible map
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, &m)
}

// EventKind classifies transition records in the event log.
type EventKind string

const (
	EventIdentityUpdated     EventKind = "identity_updated"
	EventIdentitySuspended   EventKind = "identity_suspended"
	EventIdentityReinstated  EventKind = "identity_reinstated"
	EventEnforcementToggled  EventKind = "enforcement_toggled"
	EventCurrencyRegistered  EventKind = "currency_registered"
	EventCurrencyIssued      EventKind = "currency_issued"
	EventCurrencyRedeemed    EventKind = "currency_redeemed"
	EventTransferCompleted   EventKind = "transfer_completed"
	EventConversionCompleted EventKind = "conversion_completed"
)

// TransitionEvent is one observable state transition: identity changes,
// enforcement toggles, registrations, transfers, and conversions all emit one.
type TransitionEvent struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Kind      EventKind  `json:"kind" db:"kind"`
	AccountID *uuid.UUID `json:"account_id,omitempty" db:"account_id"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty" db:"actor_id"`
	Detail    Metadata   `json:"detail" db:"detail"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
