package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/persistence/sqlite"
)

const customerColumns = `
	id, username, password_hash, full_name, phone,
	telegram_id, telegram_username, role, balance_centiliters,
	station_id, is_active, created_at
`

// CustomerRepository implements port.CustomerRepository on sqlite
type CustomerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB, logger *zap.Logger) port.CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CustomerRepository) getExecutor(ctx context.Context) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

func scanCustomer(row interface {
	Scan(dest ...interface{}) error
}) (*entity.Customer, error) {
	var c entity.Customer
	var username, passwordHash, telegramID, telegramUsername sql.NullString
	var stationID sql.NullInt64

	err := row.Scan(
		&c.ID,
		&username,
		&passwordHash,
		&c.FullName,
		&c.Phone,
		&telegramID,
		&telegramUsername,
		&c.Role,
		&c.BalanceCentiliters,
		&stationID,
		&c.IsActive,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Username = username.String
	c.PasswordHash = passwordHash.String
	c.TelegramID = telegramID.String
	c.TelegramUsername = telegramUsername.String
	if stationID.Valid {
		c.StationID = &stationID.Int64
	}
	return &c, nil
}

// nullIfEmpty keeps optional identity columns NULL so the partial unique
// indexes on username and telegram_id only apply to real values.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts a new customer record
func (r *CustomerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	query := `
		INSERT INTO users (
			username, password_hash, full_name, phone,
			telegram_id, telegram_username, role, balance_centiliters,
			station_id, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var stationID interface{}
	if customer.StationID != nil {
		stationID = *customer.StationID
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		nullIfEmpty(customer.Username),
		nullIfEmpty(customer.PasswordHash),
		customer.FullName,
		customer.Phone,
		nullIfEmpty(customer.TelegramID),
		nullIfEmpty(customer.TelegramUsername),
		customer.Role,
		customer.BalanceCentiliters,
		stationID,
		customer.IsActive,
		customer.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("customer %s: %w", customer.FullName, entity.ErrConflict)
		}
		r.logger.Error("Failed to create customer", zap.Error(err))
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	customer.ID = id
	return nil
}

func (r *CustomerRepository) getBy(ctx context.Context, column string, value interface{}) (*entity.Customer, error) {
	query := "SELECT " + customerColumns + " FROM users WHERE " + column + " = ?"

	customer, err := scanCustomer(r.getExecutor(ctx).QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		return nil, entity.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*entity.Customer, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername retrieves a staff account by username
func (r *CustomerRepository) GetByUsername(ctx context.Context, username string) (*entity.Customer, error) {
	return r.getBy(ctx, "username", username)
}

// GetByTelegramID retrieves a customer by telegram identity
func (r *CustomerRepository) GetByTelegramID(ctx context.Context, telegramID string) (*entity.Customer, error) {
	return r.getBy(ctx, "telegram_id", telegramID)
}

// GetByPhone retrieves a customer by exact phone match
func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*entity.Customer, error) {
	return r.getBy(ctx, "phone", phone)
}

// FindByPhoneVariants looks up a customer whose stored phone either matches
// one of the probed formats exactly or ends with the nine-digit suffix.
// Returns (nil, nil) when nothing matches.
func (r *CustomerRepository) FindByPhoneVariants(ctx context.Context, variants []string, suffix string) (*entity.Customer, error) {
	if len(variants) == 0 && suffix == "" {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(variants)), ", ")
	args := make([]interface{}, 0, len(variants)+1)
	for _, v := range variants {
		args = append(args, v)
	}

	query := "SELECT " + customerColumns + " FROM users WHERE "
	if len(variants) > 0 {
		query += "phone IN (" + placeholders + ")"
	}
	if suffix != "" {
		if len(variants) > 0 {
			query += " OR "
		}
		query += "phone LIKE '%' || ?"
		args = append(args, suffix)
	}
	query += " ORDER BY id ASC LIMIT 1"

	customer, err := scanCustomer(r.getExecutor(ctx).QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by phone: %w", err)
	}
	return customer, nil
}

// Update rewrites a customer record. Balance is excluded; all balance changes
// go through AdjustBalance so concurrent deltas never overwrite each other.
func (r *CustomerRepository) Update(ctx context.Context, customer *entity.Customer) error {
	query := `
		UPDATE users
		SET username = ?, password_hash = ?, full_name = ?, phone = ?,
		    telegram_id = ?, telegram_username = ?, role = ?,
		    station_id = ?, is_active = ?
		WHERE id = ?
	`

	var stationID interface{}
	if customer.StationID != nil {
		stationID = *customer.StationID
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		nullIfEmpty(customer.Username),
		nullIfEmpty(customer.PasswordHash),
		customer.FullName,
		customer.Phone,
		nullIfEmpty(customer.TelegramID),
		nullIfEmpty(customer.TelegramUsername),
		customer.Role,
		stationID,
		customer.IsActive,
		customer.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("customer %d: %w", customer.ID, entity.ErrConflict)
		}
		r.logger.Error("Failed to update customer", zap.Int64("id", customer.ID), zap.Error(err))
		return fmt.Errorf("failed to update customer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrCustomerNotFound
	}
	return nil
}

// Delete removes a customer record
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrCustomerNotFound
	}
	return nil
}

// AdjustBalance applies a relative balance delta in store arithmetic, so the
// update composes correctly under concurrent transactions.
func (r *CustomerRepository) AdjustBalance(ctx context.Context, id int64, deltaCentiliters int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		"UPDATE users SET balance_centiliters = balance_centiliters + ? WHERE id = ?",
		deltaCentiliters, id)
	if err != nil {
		r.logger.Error("Failed to adjust balance",
			zap.Int64("id", id), zap.Int64("delta", deltaCentiliters), zap.Error(err))
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrCustomerNotFound
	}
	return nil
}

// List returns customers matching the filter plus the total count
func (r *CustomerRepository) List(ctx context.Context, filter port.CustomerListFilter) ([]*entity.Customer, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.Role != nil {
		where += " AND role = ?"
		args = append(args, *filter.Role)
	}

	var total int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	query := "SELECT " + customerColumns + " FROM users" + where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*entity.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}
	return customers, total, rows.Err()
}

// rankedColumns selects customer fields joined with the redeemed-check count
const rankedQuery = `
	SELECT u.id, u.full_name, u.phone,
	       COALESCE(u.telegram_username, ''), u.balance_centiliters,
	       COUNT(c.id), u.is_active, u.created_at
	FROM users u
	LEFT JOIN checks c ON c.customer_id = u.id AND c.status = 'used'
`

func (r *CustomerRepository) queryRanked(ctx context.Context, query string, args ...interface{}) ([]*port.RankedCustomer, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked customers: %w", err)
	}
	defer rows.Close()

	var ranked []*port.RankedCustomer
	for rows.Next() {
		var rc port.RankedCustomer
		if err := rows.Scan(
			&rc.ID, &rc.FullName, &rc.Phone, &rc.TelegramUsername,
			&rc.BalanceCentiliters, &rc.UsedChecks, &rc.IsActive, &rc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ranked customer: %w", err)
		}
		ranked = append(ranked, &rc)
	}
	return ranked, rows.Err()
}

// Ranking lists active customers by balance, highest first
func (r *CustomerRepository) Ranking(ctx context.Context, limit int) ([]*port.RankedCustomer, error) {
	query := rankedQuery + `
		WHERE u.role = 'customer' AND u.is_active = 1
		GROUP BY u.id
		ORDER BY u.balance_centiliters DESC, u.id ASC
		LIMIT ?
	`
	return r.queryRanked(ctx, query, limit)
}

// TopByBalance lists active customers ordered by balance in either direction
func (r *CustomerRepository) TopByBalance(ctx context.Context, ascending bool, limit int) ([]*port.RankedCustomer, error) {
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	query := rankedQuery + `
		WHERE u.role = 'customer' AND u.is_active = 1
		GROUP BY u.id
		ORDER BY u.balance_centiliters ` + direction + `, u.id ASC
		LIMIT ?
	`
	return r.queryRanked(ctx, query, limit)
}

// RankOf returns the 1-based balance rank of a customer among active customers
func (r *CustomerRepository) RankOf(ctx context.Context, id int64) (int, error) {
	query := `
		SELECT COUNT(*) + 1
		FROM users
		WHERE role = 'customer' AND is_active = 1
		  AND balance_centiliters > (SELECT balance_centiliters FROM users WHERE id = ?)
	`

	var rank int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(&rank)
	if err == sql.ErrNoRows {
		return 0, entity.ErrCustomerNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank: %w", err)
	}
	return rank, nil
}

// StationCustomers lists customers who redeemed checks issued at a station
func (r *CustomerRepository) StationCustomers(ctx context.Context, stationID int64) ([]*port.RankedCustomer, error) {
	query := `
		SELECT u.id, u.full_name, u.phone,
		       COALESCE(u.telegram_username, ''), u.balance_centiliters,
		       COUNT(c.id), u.is_active, u.created_at
		FROM users u
		JOIN checks c ON c.customer_id = u.id AND c.status = 'used' AND c.station_id = ?
		GROUP BY u.id
		ORDER BY COUNT(c.id) DESC, u.id ASC
	`
	return r.queryRanked(ctx, query, stationID)
}

// Report lists every customer ordered by balance for spreadsheet export
func (r *CustomerRepository) Report(ctx context.Context, ascending bool) ([]*port.RankedCustomer, error) {
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	query := rankedQuery + `
		WHERE u.role = 'customer'
		GROUP BY u.id
		ORDER BY u.balance_centiliters ` + direction + `, u.id ASC
	`
	return r.queryRanked(ctx, query)
}

// BroadcastTargets returns telegram ids of active customers reachable by bot
func (r *CustomerRepository) BroadcastTargets(ctx context.Context) ([]string, error) {
	query := `
		SELECT telegram_id FROM users
		WHERE telegram_id IS NOT NULL AND telegram_id != '' AND is_active = 1
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load broadcast targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan telegram id: %w", err)
		}
		targets = append(targets, id)
	}
	return targets, rows.Err()
}

// Verify interface compliance
var _ port.CustomerRepository = (*CustomerRepository)(nil)
