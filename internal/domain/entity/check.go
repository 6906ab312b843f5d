package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckStatus represents the lifecycle status of a check
type CheckStatus string

const (
	CheckStatusPending   CheckStatus = "pending"
	CheckStatusUsed      CheckStatus = "used"
	CheckStatusExpired   CheckStatus = "expired"
	CheckStatusCancelled CheckStatus = "cancelled"
)

// ValidityDays is the fixed expiry window applied at issuance.
// A check stops being redeemable exactly 30 days after creation.
const ValidityDays = 30

// String returns the string representation of the status
func (s CheckStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the known check statuses
func (s CheckStatus) IsValid() bool {
	switch s {
	case CheckStatusPending, CheckStatusUsed, CheckStatusExpired, CheckStatusCancelled:
		return true
	}
	return false
}

// Check represents a redeemable fuel bonus check.
// Amounts are stored as integer centiliters so that balance arithmetic stays
// exact and can be expressed as relative deltas in SQL.
type Check struct {
	ID                int64       `json:"id"`
	Code              string      `json:"code"`
	QRCode            string      `json:"qr_code,omitempty"` // base64 PNG of the redemption deep link
	AmountCentiliters int64       `json:"amount_centiliters"`
	Status            CheckStatus `json:"status"`
	IsPrinted         bool        `json:"is_printed"`

	OperatorID int64  `json:"operator_id"`
	StationID  int64  `json:"station_id"`
	CustomerID *int64 `json:"customer_id,omitempty"`

	// Snapshot of customer details as entered at issuance time.
	// Kept independent of the linked customer record for audit and export.
	CustomerName    string `json:"customer_name,omitempty"`
	CustomerPhone   string `json:"customer_phone,omitempty"`
	CustomerAddress string `json:"customer_address,omitempty"`

	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	// Display-only fields resolved by joins, not persisted on the check row.
	StationName  string `json:"station_name,omitempty"`
	OperatorName string `json:"operator_name,omitempty"`
}

// AmountLiters returns the check amount in liters for display purposes.
func (c *Check) AmountLiters() decimal.Decimal {
	return decimal.NewFromInt(c.AmountCentiliters).Div(decimal.NewFromInt(100))
}

// IsExpiredAt reports whether the check is past its expiry time.
func (c *Check) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// LitersToCentiliters converts a liter quantity to the stored integer form,
// rounding to whole centiliters.
func LitersToCentiliters(liters decimal.Decimal) int64 {
	return liters.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CentilitersToLiters converts the stored integer form back to liters.
func CentilitersToLiters(cl int64) decimal.Decimal {
	return decimal.NewFromInt(cl).Div(decimal.NewFromInt(100))
}
