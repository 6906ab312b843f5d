package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role represents the access role of a user account
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleOperator  Role = "operator"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleOperator, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Customer represents a loyalty program participant or a staff account.
// BalanceCentiliters is a running total maintained solely via relative
// increments and decrements inside check transactions.
type Customer struct {
	ID               int64  `json:"id"`
	Username         string `json:"username,omitempty"` // staff login, empty for plain customers
	PasswordHash     string `json:"-"`
	FullName         string `json:"full_name"`
	Phone            string `json:"phone,omitempty"`
	TelegramID       string `json:"telegram_id,omitempty"`
	TelegramUsername string `json:"telegram_username,omitempty"`

	Role               Role   `json:"role"`
	BalanceCentiliters int64  `json:"balance_centiliters"`
	StationID          *int64 `json:"station_id,omitempty"`
	IsActive           bool   `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}

// BalanceLiters returns the accumulated balance in liters.
func (c *Customer) BalanceLiters() decimal.Decimal {
	return CentilitersToLiters(c.BalanceCentiliters)
}

// Station represents an issuing physical location, recorded for audit and
// reporting. It is never enforced against redemption eligibility.
type Station struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
