package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/persistence/sqlite"
)

// isUniqueViolation reports whether err is a sqlite unique-constraint error
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// checkColumns is the select list shared by all check queries. Station and
// operator names are resolved for display; the check row itself stays
// denormalized per the issuance snapshot.
const checkColumns = `
	c.id, c.code, c.qr_code, c.amount_centiliters, c.status, c.is_printed,
	c.operator_id, c.station_id, c.customer_id,
	c.customer_name, c.customer_phone, c.customer_address,
	c.expires_at, c.used_at, c.created_at,
	s.name, u.full_name
`

const checkJoins = `
	FROM checks c
	LEFT JOIN stations s ON s.id = c.station_id
	LEFT JOIN users u ON u.id = c.operator_id
`

// CheckRepository implements port.CheckRepository on sqlite
type CheckRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCheckRepository creates a new check repository
func NewCheckRepository(db *sql.DB, logger *zap.Logger) port.CheckRepository {
	return &CheckRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CheckRepository) getExecutor(ctx context.Context) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

func scanCheck(row interface {
	Scan(dest ...interface{}) error
}) (*entity.Check, error) {
	var check entity.Check
	var customerID sql.NullInt64
	var usedAt sql.NullTime
	var stationName, operatorName sql.NullString

	err := row.Scan(
		&check.ID,
		&check.Code,
		&check.QRCode,
		&check.AmountCentiliters,
		&check.Status,
		&check.IsPrinted,
		&check.OperatorID,
		&check.StationID,
		&customerID,
		&check.CustomerName,
		&check.CustomerPhone,
		&check.CustomerAddress,
		&check.ExpiresAt,
		&usedAt,
		&check.CreatedAt,
		&stationName,
		&operatorName,
	)
	if err != nil {
		return nil, err
	}

	if customerID.Valid {
		check.CustomerID = &customerID.Int64
	}
	if usedAt.Valid {
		t := usedAt.Time
		check.UsedAt = &t
	}
	check.StationName = stationName.String
	check.OperatorName = operatorName.String

	return &check, nil
}

// Create inserts a new check record
func (r *CheckRepository) Create(ctx context.Context, check *entity.Check) error {
	query := `
		INSERT INTO checks (
			code, qr_code, amount_centiliters, status, is_printed,
			operator_id, station_id, customer_id,
			customer_name, customer_phone, customer_address,
			expires_at, used_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var customerID interface{}
	if check.CustomerID != nil {
		customerID = *check.CustomerID
	}
	var usedAt interface{}
	if check.UsedAt != nil {
		usedAt = *check.UsedAt
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		check.Code,
		check.QRCode,
		check.AmountCentiliters,
		check.Status,
		check.IsPrinted,
		check.OperatorID,
		check.StationID,
		customerID,
		check.CustomerName,
		check.CustomerPhone,
		check.CustomerAddress,
		check.ExpiresAt,
		usedAt,
		check.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("check code %s: %w", check.Code, entity.ErrConflict)
		}
		r.logger.Error("Failed to create check", zap.Error(err))
		return fmt.Errorf("failed to create check: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	check.ID = id
	return nil
}

// GetByID retrieves a check by ID
func (r *CheckRepository) GetByID(ctx context.Context, id int64) (*entity.Check, error) {
	query := "SELECT " + checkColumns + checkJoins + " WHERE c.id = ?"

	check, err := scanCheck(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrCheckNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get check", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get check: %w", err)
	}
	return check, nil
}

// GetByCode retrieves a check by its code
func (r *CheckRepository) GetByCode(ctx context.Context, code string) (*entity.Check, error) {
	query := "SELECT " + checkColumns + checkJoins + " WHERE c.code = ?"

	check, err := scanCheck(r.getExecutor(ctx).QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, entity.ErrCheckNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get check by code", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get check: %w", err)
	}
	return check, nil
}

func buildCheckFilter(filter port.CheckFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	var args []interface{}

	if filter.StationID != nil {
		where += " AND c.station_id = ?"
		args = append(args, *filter.StationID)
	}
	if filter.OperatorID != nil {
		where += " AND c.operator_id = ?"
		args = append(args, *filter.OperatorID)
	}
	if filter.Status != nil {
		where += " AND c.status = ?"
		args = append(args, *filter.Status)
	}
	if filter.IsPrinted != nil {
		where += " AND c.is_printed = ?"
		args = append(args, *filter.IsPrinted)
	}
	return where, args
}

// List returns checks matching the filter, newest first, plus the total count
func (r *CheckRepository) List(ctx context.Context, filter port.CheckFilter) ([]*entity.Check, int, error) {
	where, args := buildCheckFilter(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM checks c" + where
	if err := r.getExecutor(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count checks: %w", err)
	}

	query := "SELECT " + checkColumns + checkJoins + where + " ORDER BY c.created_at DESC, c.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list checks", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list checks: %w", err)
	}
	defer rows.Close()

	var checks []*entity.Check
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan check: %w", err)
		}
		checks = append(checks, check)
	}
	return checks, total, rows.Err()
}

// ListBetween returns all checks created within [from, to], oldest first
func (r *CheckRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*entity.Check, error) {
	query := "SELECT " + checkColumns + checkJoins +
		" WHERE c.created_at >= ? AND c.created_at <= ? ORDER BY c.created_at ASC"

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks for export: %w", err)
	}
	defer rows.Close()

	var checks []*entity.Check
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}

// TransitionFromPending conditionally moves a check out of pending.
// The pending-only WHERE clause is the row-level guard that makes concurrent
// redemption attempts on the same code resolve to exactly one winner.
func (r *CheckRepository) TransitionFromPending(ctx context.Context, id int64, to entity.CheckStatus, customerID *int64, usedAt *time.Time) (bool, error) {
	query := `
		UPDATE checks
		SET status = ?,
		    customer_id = COALESCE(?, customer_id),
		    used_at = COALESCE(?, used_at)
		WHERE id = ? AND status = ?
	`

	var custArg interface{}
	if customerID != nil {
		custArg = *customerID
	}
	var usedArg interface{}
	if usedAt != nil {
		usedArg = *usedAt
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		to, custArg, usedArg, id, entity.CheckStatusPending)
	if err != nil {
		r.logger.Error("Failed to transition check",
			zap.Int64("id", id), zap.String("to", to.String()), zap.Error(err))
		return false, fmt.Errorf("failed to transition check: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// ExpireOverdue flips every overdue pending check to expired
func (r *CheckRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE checks SET status = ? WHERE status = ? AND expires_at < ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.CheckStatusExpired, entity.CheckStatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire checks: %w", err)
	}
	return result.RowsAffected()
}

// MarkPrinted flips the physical-issuance flag, independent of status
func (r *CheckRepository) MarkPrinted(ctx context.Context, id int64) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		"UPDATE checks SET is_printed = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark check printed: %w", err)
	}
	return nil
}

// Delete removes a check row
func (r *CheckRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, "DELETE FROM checks WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete check", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete check: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrCheckNotFound
	}
	return nil
}

// OperatorDailyStats aggregates an operator's issuance since dayStart
func (r *CheckRepository) OperatorDailyStats(ctx context.Context, operatorID int64, dayStart time.Time) (*port.OperatorDailyStats, error) {
	query := `
		SELECT
			COUNT(CASE WHEN created_at >= ? THEN 1 END),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN amount_centiliters END), 0),
			COUNT(*)
		FROM checks
		WHERE operator_id = ?
	`

	var stats port.OperatorDailyStats
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, dayStart, dayStart, operatorID).Scan(
		&stats.TodayChecks,
		&stats.TodayCentiliters,
		&stats.TotalChecks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load operator stats: %w", err)
	}
	return &stats, nil
}

// CustomerStatsSince aggregates a customer's redemptions since a point in time
func (r *CheckRepository) CustomerStatsSince(ctx context.Context, customerID int64, since time.Time) (*port.CustomerPeriodStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount_centiliters), 0)
		FROM checks
		WHERE customer_id = ? AND status = ? AND used_at >= ?
	`

	var stats port.CustomerPeriodStats
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, customerID, entity.CheckStatusUsed, since).Scan(
		&stats.Checks,
		&stats.Centiliters,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer stats: %w", err)
	}
	return &stats, nil
}

// CountUsedByCustomer counts a customer's redeemed checks
func (r *CheckRepository) CountUsedByCustomer(ctx context.Context, customerID int64) (int, error) {
	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM checks WHERE customer_id = ? AND status = ?",
		customerID, entity.CheckStatusUsed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count used checks: %w", err)
	}
	return count, nil
}

// Verify interface compliance
var _ port.CheckRepository = (*CheckRepository)(nil)
