package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
	"github.com/webgradeuz/fuelbonus/internal/phone"
)

// CreateCustomerInput carries fields for explicit customer/staff creation
type CreateCustomerInput struct {
	Username  string
	Password  string
	FullName  string
	Phone     string
	Role      entity.Role
	StationID *int64
}

// UpdateCustomerInput carries updatable fields; nil means leave unchanged
type UpdateCustomerInput struct {
	Password  *string
	FullName  *string
	Phone     *string
	Role      *entity.Role
	StationID *int64
	IsActive  *bool
}

// TelegramRegistration carries data collected during bot sign-up
type TelegramRegistration struct {
	TelegramID       string
	TelegramUsername string
	FullName         string
	Phone            string
}

// CustomerProfile is the bot-facing profile projection
type CustomerProfile struct {
	FullName           string
	Phone              string
	BalanceCentiliters int64
	UsedChecks         int
}

// CustomerService manages customers: phone resolution, CRUD, rankings and
// the telegram self-registration path.
type CustomerService interface {
	CustomerResolver

	Create(ctx context.Context, input CreateCustomerInput) (*entity.Customer, error)
	Update(ctx context.Context, id int64, input UpdateCustomerInput) (*entity.Customer, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*entity.Customer, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*entity.Customer, error)
	List(ctx context.Context, filter port.CustomerListFilter) ([]*entity.Customer, int, error)

	RegisterViaTelegram(ctx context.Context, reg TelegramRegistration) (*entity.Customer, error)
	Profile(ctx context.Context, telegramID string) (*CustomerProfile, error)
	MonthlyStats(ctx context.Context, telegramID string) (*port.CustomerPeriodStats, int64, error)

	Ranking(ctx context.Context, limit int) ([]*port.RankedCustomer, error)
	TopByBalance(ctx context.Context, ascending bool, limit int) ([]*port.RankedCustomer, error)
	RankOf(ctx context.Context, id int64) (int, error)
	StationCustomers(ctx context.Context, stationID int64) ([]*port.RankedCustomer, error)
}

type customerServiceImpl struct {
	customerRepo port.CustomerRepository
	checkRepo    port.CheckRepository
	logger       Logger
	now          func() time.Time
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(
	customerRepo port.CustomerRepository,
	checkRepo port.CheckRepository,
	logger Logger,
) CustomerService {
	return &customerServiceImpl{
		customerRepo: customerRepo,
		checkRepo:    checkRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// ResolveByPhone finds an existing customer by any stored phone format
// matching the normalized suffix, or creates a new one with role customer
// and zero balance. A blank phone resolves to no customer and is the
// caller's signal to issue customer-less.
func (s *customerServiceImpl) ResolveByPhone(ctx context.Context, fullName, rawPhone string) (*entity.Customer, error) {
	suffix := phone.Normalize(rawPhone)
	if suffix == "" {
		return nil, nil
	}

	existing, err := s.customerRepo.FindByPhoneVariants(ctx, phone.Candidates(rawPhone), suffix)
	if err != nil {
		return nil, fmt.Errorf("find by phone: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	customer := &entity.Customer{
		FullName:  fullName,
		Phone:     rawPhone,
		Role:      entity.RoleCustomer,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.Info("Customer created from issuance", "id", customer.ID, "phone_suffix", suffix)
	return customer, nil
}

// Create adds a customer or staff account explicitly. Passwords are hashed
// with bcrypt; duplicate username or phone surfaces as entity.ErrConflict.
func (s *customerServiceImpl) Create(ctx context.Context, input CreateCustomerInput) (*entity.Customer, error) {
	role := input.Role
	if role == "" {
		role = entity.RoleCustomer
	}

	customer := &entity.Customer{
		Username:  input.Username,
		FullName:  input.FullName,
		Phone:     input.Phone,
		Role:      role,
		StationID: input.StationID,
		IsActive:  true,
		CreatedAt: s.now(),
	}

	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		customer.PasswordHash = string(hash)
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		s.logger.Error("Failed to create customer", "error", err, "username", input.Username)
		return nil, err
	}

	s.logger.Info("Customer created", "id", customer.ID, "role", customer.Role)
	return customer, nil
}

// Update applies partial changes to a customer record
func (s *customerServiceImpl) Update(ctx context.Context, id int64, input UpdateCustomerInput) (*entity.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Password != nil && *input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		customer.PasswordHash = string(hash)
	}
	if input.FullName != nil {
		customer.FullName = *input.FullName
	}
	if input.Phone != nil {
		customer.Phone = *input.Phone
	}
	if input.Role != nil {
		customer.Role = *input.Role
	}
	if input.StationID != nil {
		customer.StationID = input.StationID
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		s.logger.Error("Failed to update customer", "error", err, "id", id)
		return nil, err
	}

	s.logger.Info("Customer updated", "id", id)
	return customer, nil
}

// Delete removes a customer record. This is an administrative action; the
// check lifecycle never deletes customers.
func (s *customerServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.customerRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete customer", "error", err, "id", id)
		return err
	}
	s.logger.Info("Customer deleted", "id", id)
	return nil
}

// GetByID retrieves a customer by ID
func (s *customerServiceImpl) GetByID(ctx context.Context, id int64) (*entity.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

// GetByTelegramID retrieves a customer by telegram identity
func (s *customerServiceImpl) GetByTelegramID(ctx context.Context, telegramID string) (*entity.Customer, error) {
	return s.customerRepo.GetByTelegramID(ctx, telegramID)
}

// List retrieves customers matching the filter plus a total count
func (s *customerServiceImpl) List(ctx context.Context, filter port.CustomerListFilter) ([]*entity.Customer, int, error) {
	return s.customerRepo.List(ctx, filter)
}

// RegisterViaTelegram creates a customer from the bot sign-up flow.
// Idempotent on telegram id: a repeated registration returns the existing
// account unchanged.
func (s *customerServiceImpl) RegisterViaTelegram(ctx context.Context, reg TelegramRegistration) (*entity.Customer, error) {
	existing, err := s.customerRepo.GetByTelegramID(ctx, reg.TelegramID)
	if err == nil {
		return existing, nil
	}

	customer := &entity.Customer{
		TelegramID:       reg.TelegramID,
		TelegramUsername: reg.TelegramUsername,
		FullName:         reg.FullName,
		Phone:            reg.Phone,
		Role:             entity.RoleCustomer,
		IsActive:         true,
		CreatedAt:        s.now(),
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		s.logger.Error("Failed to register customer via telegram", "error", err, "telegram_id", reg.TelegramID)
		return nil, err
	}

	s.logger.Info("Customer registered via telegram", "id", customer.ID, "telegram_id", reg.TelegramID)
	return customer, nil
}

// Profile returns the bot-facing profile for a telegram identity
func (s *customerServiceImpl) Profile(ctx context.Context, telegramID string) (*CustomerProfile, error) {
	customer, err := s.customerRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	used, err := s.checkRepo.CountUsedByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("count used checks: %w", err)
	}

	return &CustomerProfile{
		FullName:           customer.FullName,
		Phone:              customer.Phone,
		BalanceCentiliters: customer.BalanceCentiliters,
		UsedChecks:         used,
	}, nil
}

// MonthlyStats returns the customer's redemptions since the first of the
// current month along with the current balance.
func (s *customerServiceImpl) MonthlyStats(ctx context.Context, telegramID string) (*port.CustomerPeriodStats, int64, error) {
	customer, err := s.customerRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats, err := s.checkRepo.CustomerStatsSince(ctx, customer.ID, monthStart)
	if err != nil {
		return nil, 0, fmt.Errorf("customer stats: %w", err)
	}
	return stats, customer.BalanceCentiliters, nil
}

// Ranking lists active customers by balance, highest first
func (s *customerServiceImpl) Ranking(ctx context.Context, limit int) ([]*port.RankedCustomer, error) {
	return s.customerRepo.Ranking(ctx, limit)
}

// TopByBalance lists active customers ordered by balance with check counts
func (s *customerServiceImpl) TopByBalance(ctx context.Context, ascending bool, limit int) ([]*port.RankedCustomer, error) {
	return s.customerRepo.TopByBalance(ctx, ascending, limit)
}

// RankOf returns the 1-based balance rank among active customers
func (s *customerServiceImpl) RankOf(ctx context.Context, id int64) (int, error) {
	return s.customerRepo.RankOf(ctx, id)
}

// StationCustomers lists customers who redeemed checks at a station
func (s *customerServiceImpl) StationCustomers(ctx context.Context, stationID int64) ([]*port.RankedCustomer, error) {
	return s.customerRepo.StationCustomers(ctx, stationID)
}
