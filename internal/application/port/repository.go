package port

import (
	"context"
	"time"

	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
)

// CheckFilter narrows check listings. Nil fields are ignored.
type CheckFilter struct {
	StationID  *int64
	OperatorID *int64
	Status     *entity.CheckStatus
	IsPrinted  *bool
	Limit      int
	Offset     int
}

// OperatorDailyStats aggregates an operator's issuance activity
type OperatorDailyStats struct {
	TodayChecks      int   `json:"today_checks"`
	TodayCentiliters int64 `json:"today_centiliters"`
	TotalChecks      int   `json:"total_checks"`
}

// CustomerPeriodStats aggregates a customer's redemptions since a point in time
type CustomerPeriodStats struct {
	Checks      int   `json:"checks"`
	Centiliters int64 `json:"centiliters"`
}

// CheckRepository defines persistence operations for Check
type CheckRepository interface {
	// Create inserts a new check. A unique-constraint violation on the code
	// column surfaces as entity.ErrConflict.
	Create(ctx context.Context, check *entity.Check) error

	GetByID(ctx context.Context, id int64) (*entity.Check, error)
	GetByCode(ctx context.Context, code string) (*entity.Check, error)

	// List returns checks matching the filter, newest first, plus the total
	// match count for pagination.
	List(ctx context.Context, filter CheckFilter) ([]*entity.Check, int, error)

	// ListBetween returns all checks created within [from, to] for export
	ListBetween(ctx context.Context, from, to time.Time) ([]*entity.Check, error)

	// TransitionFromPending conditionally moves a check out of pending.
	// The guard is the WHERE clause itself, so of any number of concurrent
	// callers exactly one observes ok=true; the rest see ok=false.
	// customerID and usedAt are applied only when non-nil.
	TransitionFromPending(ctx context.Context, id int64, to entity.CheckStatus, customerID *int64, usedAt *time.Time) (bool, error)

	// ExpireOverdue flips every pending check whose expiry has passed and
	// returns the number of rows affected. Idempotent by the pending guard.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// MarkPrinted flips the physical-issuance flag without touching status
	MarkPrinted(ctx context.Context, id int64) error

	Delete(ctx context.Context, id int64) error

	OperatorDailyStats(ctx context.Context, operatorID int64, dayStart time.Time) (*OperatorDailyStats, error)
	CustomerStatsSince(ctx context.Context, customerID int64, since time.Time) (*CustomerPeriodStats, error)
	CountUsedByCustomer(ctx context.Context, customerID int64) (int, error)
}

// CustomerListFilter narrows customer listings
type CustomerListFilter struct {
	Role   *entity.Role
	Limit  int
	Offset int
}

// RankedCustomer is a ranking/report projection row
type RankedCustomer struct {
	ID                 int64     `json:"id"`
	FullName           string    `json:"full_name"`
	Phone              string    `json:"phone,omitempty"`
	TelegramUsername   string    `json:"telegram_username,omitempty"`
	BalanceCentiliters int64     `json:"balance_centiliters"`
	UsedChecks         int       `json:"used_checks"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// CustomerRepository defines persistence operations for Customer
type CustomerRepository interface {
	// Create inserts a new customer. Duplicate username, phone or telegram
	// id surfaces as entity.ErrConflict.
	Create(ctx context.Context, customer *entity.Customer) error

	GetByID(ctx context.Context, id int64) (*entity.Customer, error)
	GetByUsername(ctx context.Context, username string) (*entity.Customer, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*entity.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*entity.Customer, error)

	// FindByPhoneVariants returns the first customer whose stored phone
	// matches any of the given variants (exact match or suffix).
	FindByPhoneVariants(ctx context.Context, variants []string, suffix string) (*entity.Customer, error)

	Update(ctx context.Context, customer *entity.Customer) error
	Delete(ctx context.Context, id int64) error

	// AdjustBalance applies a relative delta to the balance, never an
	// absolute write, so concurrent redemptions against the same customer
	// stay correct.
	AdjustBalance(ctx context.Context, id int64, deltaCentiliters int64) error

	List(ctx context.Context, filter CustomerListFilter) ([]*entity.Customer, int, error)
	Ranking(ctx context.Context, limit int) ([]*RankedCustomer, error)
	TopByBalance(ctx context.Context, ascending bool, limit int) ([]*RankedCustomer, error)
	RankOf(ctx context.Context, id int64) (int, error)
	StationCustomers(ctx context.Context, stationID int64) ([]*RankedCustomer, error)
	Report(ctx context.Context, ascending bool) ([]*RankedCustomer, error)

	// BroadcastTargets returns telegram ids of all active customers
	BroadcastTargets(ctx context.Context) ([]string, error)
}

// StationRepository defines persistence operations for Station
type StationRepository interface {
	Create(ctx context.Context, station *entity.Station) error
	GetByID(ctx context.Context, id int64) (*entity.Station, error)
	List(ctx context.Context) ([]*entity.Station, error)
}

// TransactionManager executes a function within a database transaction.
// Repository calls made with the supplied context join the transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
