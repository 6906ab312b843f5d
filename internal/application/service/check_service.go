package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/code"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
	"github.com/webgradeuz/fuelbonus/internal/domain/lifecycle"
	"github.com/webgradeuz/fuelbonus/internal/phone"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CustomerResolver finds or creates a customer by phone number
type CustomerResolver interface {
	ResolveByPhone(ctx context.Context, fullName, rawPhone string) (*entity.Customer, error)
}

// IssueInput carries everything needed to issue a new check
type IssueInput struct {
	AmountLiters    decimal.Decimal
	OperatorID      int64
	StationID       int64
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string

	// AutoUse redeems the check at issuance time (staff walk-up): the check
	// is created directly in used status and the balance credited in the
	// same transaction, skipping the pending window entirely.
	AutoUse bool
}

// RedeemResult is returned to the redeeming actor for display
type RedeemResult struct {
	Check                 *entity.Check
	AmountCentiliters     int64
	NewBalanceCentiliters int64
	StationName           string
}

// CheckService manages the check lifecycle: issuance, redemption,
// cancellation, reactivation and deletion.
type CheckService interface {
	Issue(ctx context.Context, input IssueInput) (*entity.Check, error)
	Redeem(ctx context.Context, checkCode string, customerID int64) (*RedeemResult, error)
	Cancel(ctx context.Context, id int64) (*entity.Check, error)
	Reactivate(ctx context.Context, id int64, amountLiters decimal.Decimal, operatorID int64) (*entity.Check, error)
	Delete(ctx context.Context, id int64) error
	MarkPrinted(ctx context.Context, id int64) error

	GetByID(ctx context.Context, id int64) (*entity.Check, error)
	GetByCode(ctx context.Context, checkCode string) (*entity.Check, error)
	List(ctx context.Context, filter port.CheckFilter) ([]*entity.Check, int, error)
	OperatorDailyStats(ctx context.Context, operatorID int64) (*port.OperatorDailyStats, error)
}

type checkServiceImpl struct {
	checkRepo    port.CheckRepository
	customerRepo port.CustomerRepository
	resolver     CustomerResolver
	txManager    port.TransactionManager
	codes        *code.Generator
	qrEncoder    port.QREncoder
	botUsername  string
	logger       Logger
	now          func() time.Time
}

// NewCheckService creates a new CheckService
func NewCheckService(
	checkRepo port.CheckRepository,
	customerRepo port.CustomerRepository,
	resolver CustomerResolver,
	txManager port.TransactionManager,
	qrEncoder port.QREncoder,
	botUsername string,
	logger Logger,
) CheckService {
	return &checkServiceImpl{
		checkRepo:    checkRepo,
		customerRepo: customerRepo,
		resolver:     resolver,
		txManager:    txManager,
		codes:        code.NewGenerator(),
		qrEncoder:    qrEncoder,
		botUsername:  botUsername,
		logger:       logger,
		now:          time.Now,
	}
}

// DeepLink builds the redemption deep link embedded in the QR image
func DeepLink(botUsername, checkCode string) string {
	return fmt.Sprintf("https://t.me/%s?start=check_%s", botUsername, checkCode)
}

// Issue creates a new check. The QR image is rendered before any database
// write; a code collision surfaces as entity.ErrConflict and is not retried
// here, the caller regenerates and resubmits.
func (s *checkServiceImpl) Issue(ctx context.Context, input IssueInput) (*entity.Check, error) {
	checkCode, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	qrPNG, err := s.qrEncoder.Encode(DeepLink(s.botUsername, checkCode))
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	var customer *entity.Customer
	if phone.Normalize(input.CustomerPhone) != "" {
		customer, err = s.resolver.ResolveByPhone(ctx, input.CustomerName, input.CustomerPhone)
		if err != nil {
			return nil, fmt.Errorf("resolve customer: %w", err)
		}
	}

	now := s.now()
	check := &entity.Check{
		Code:              checkCode,
		QRCode:            base64.StdEncoding.EncodeToString(qrPNG),
		AmountCentiliters: entity.LitersToCentiliters(input.AmountLiters),
		Status:            entity.CheckStatusPending,
		OperatorID:        input.OperatorID,
		StationID:         input.StationID,
		CustomerName:      input.CustomerName,
		CustomerPhone:     input.CustomerPhone,
		CustomerAddress:   input.CustomerAddress,
		ExpiresAt:         now.AddDate(0, 0, entity.ValidityDays),
		CreatedAt:         now,
	}
	if customer != nil {
		check.CustomerID = &customer.ID
	}

	if input.AutoUse && customer != nil {
		usedAt := now
		check.Status = entity.CheckStatusUsed
		check.UsedAt = &usedAt

		err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := s.checkRepo.Create(txCtx, check); err != nil {
				return fmt.Errorf("create check: %w", err)
			}
			if err := s.customerRepo.AdjustBalance(txCtx, customer.ID, check.AmountCentiliters); err != nil {
				return fmt.Errorf("credit balance: %w", err)
			}
			return nil
		})
		if err != nil {
			s.logger.Error("Failed to issue auto-used check", "error", err, "code", checkCode)
			return nil, err
		}

		s.logger.Info("Check issued and redeemed at counter",
			"id", check.ID, "code", check.Code, "customer_id", customer.ID,
			"centiliters", check.AmountCentiliters)
		return check, nil
	}

	if err := s.checkRepo.Create(ctx, check); err != nil {
		s.logger.Error("Failed to create check", "error", err, "code", checkCode)
		return nil, err
	}

	s.logger.Info("Check issued",
		"id", check.ID, "code", check.Code, "centiliters", check.AmountCentiliters,
		"operator_id", check.OperatorID, "station_id", check.StationID)
	return check, nil
}

// Redeem converts a pending check into a balance credit, exactly once.
//
// The status check and the compound status+balance write are split on
// purpose: the read produces user-facing failures without opening a
// transaction, and the conditional pending-only update inside the
// transaction is what guarantees at-most-once redemption under concurrency.
func (s *checkServiceImpl) Redeem(ctx context.Context, checkCode string, customerID int64) (*RedeemResult, error) {
	check, err := s.checkRepo.GetByCode(ctx, checkCode)
	if err != nil {
		return nil, err
	}

	machine := lifecycle.NewMachine(check.Status)
	if !machine.CanFire(lifecycle.TriggerRedeem) {
		return nil, &entity.InvalidStateError{Status: check.Status}
	}

	now := s.now()
	if check.IsExpiredAt(now) {
		// Lazily finalize: the check failed redemption but must not stay
		// pending forever. The pending-only guard makes this idempotent.
		if _, err := s.checkRepo.TransitionFromPending(ctx, check.ID, entity.CheckStatusExpired, nil, nil); err != nil {
			s.logger.Error("Failed to finalize expired check", "error", err, "id", check.ID)
		}
		return nil, entity.ErrCheckExpired
	}

	if check.CustomerPhone != "" {
		customer, err := s.customerRepo.GetByID(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if !phone.Matches(check.CustomerPhone, customer.Phone) {
			s.logger.Info("Redemption rejected, phone binding mismatch",
				"check_id", check.ID, "customer_id", customerID)
			return nil, entity.ErrNotAuthorized
		}
	}

	usedAt := now
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.checkRepo.TransitionFromPending(txCtx, check.ID, entity.CheckStatusUsed, &customerID, &usedAt)
		if err != nil {
			return fmt.Errorf("transition check: %w", err)
		}
		if !ok {
			// A concurrent redeemer won the race; report the state they left
			current, err := s.checkRepo.GetByID(txCtx, check.ID)
			if err != nil {
				return err
			}
			return &entity.InvalidStateError{Status: current.Status}
		}

		if err := s.customerRepo.AdjustBalance(txCtx, customerID, check.AmountCentiliters); err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	check.Status = entity.CheckStatusUsed
	check.CustomerID = &customerID
	check.UsedAt = &usedAt

	s.logger.Info("Check redeemed",
		"id", check.ID, "code", check.Code, "customer_id", customerID,
		"centiliters", check.AmountCentiliters, "new_balance", customer.BalanceCentiliters)

	return &RedeemResult{
		Check:                 check,
		AmountCentiliters:     check.AmountCentiliters,
		NewBalanceCentiliters: customer.BalanceCentiliters,
		StationName:           check.StationName,
	}, nil
}

// Cancel voids a pending check. Terminal checks cannot be cancelled.
func (s *checkServiceImpl) Cancel(ctx context.Context, id int64) (*entity.Check, error) {
	check, err := s.checkRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	machine := lifecycle.NewMachine(check.Status)
	if !machine.CanFire(lifecycle.TriggerCancel) {
		return nil, &entity.InvalidStateError{Status: check.Status}
	}

	ok, err := s.checkRepo.TransitionFromPending(ctx, id, entity.CheckStatusCancelled, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("cancel check: %w", err)
	}
	if !ok {
		current, err := s.checkRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &entity.InvalidStateError{Status: current.Status}
	}

	check.Status = entity.CheckStatusCancelled
	s.logger.Info("Check cancelled", "id", id, "code", check.Code)
	return check, nil
}

// Reactivate grants a manual bonus by issuing a brand-new check pre-set to
// used and crediting the linked customer, leaving the original record
// untouched as an audit trail.
func (s *checkServiceImpl) Reactivate(ctx context.Context, id int64, amountLiters decimal.Decimal, operatorID int64) (*entity.Check, error) {
	original, err := s.checkRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.CustomerID == nil {
		return nil, entity.ErrNoLinkedCustomer
	}

	checkCode, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	qrPNG, err := s.qrEncoder.Encode(DeepLink(s.botUsername, checkCode))
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	now := s.now()
	usedAt := now
	replacement := &entity.Check{
		Code:              checkCode,
		QRCode:            base64.StdEncoding.EncodeToString(qrPNG),
		AmountCentiliters: entity.LitersToCentiliters(amountLiters),
		Status:            entity.CheckStatusUsed,
		OperatorID:        operatorID,
		StationID:         original.StationID,
		CustomerID:        original.CustomerID,
		CustomerName:      original.CustomerName,
		CustomerPhone:     original.CustomerPhone,
		CustomerAddress:   original.CustomerAddress,
		ExpiresAt:         now.AddDate(0, 0, entity.ValidityDays),
		UsedAt:            &usedAt,
		CreatedAt:         now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.checkRepo.Create(txCtx, replacement); err != nil {
			return fmt.Errorf("create replacement check: %w", err)
		}
		if err := s.customerRepo.AdjustBalance(txCtx, *original.CustomerID, replacement.AmountCentiliters); err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to reactivate check", "error", err, "original_id", id)
		return nil, err
	}

	s.logger.Info("Check reactivated",
		"original_id", id, "new_id", replacement.ID, "new_code", replacement.Code,
		"customer_id", *original.CustomerID, "centiliters", replacement.AmountCentiliters)
	return replacement, nil
}

// Delete removes a check record. Deleting a used check reverses its balance
// credit in the same transaction, so no accounting leaks.
func (s *checkServiceImpl) Delete(ctx context.Context, id int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		check, err := s.checkRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		if err := s.checkRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("delete check: %w", err)
		}

		if check.Status == entity.CheckStatusUsed && check.CustomerID != nil {
			if err := s.customerRepo.AdjustBalance(txCtx, *check.CustomerID, -check.AmountCentiliters); err != nil {
				return fmt.Errorf("reverse balance: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete check", "error", err, "id", id)
		return err
	}

	s.logger.Info("Check deleted", "id", id)
	return nil
}

// MarkPrinted flips the physical-issuance flag. It is independent of the
// status machine and legal at any point in the lifecycle.
func (s *checkServiceImpl) MarkPrinted(ctx context.Context, id int64) error {
	if _, err := s.checkRepo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.checkRepo.MarkPrinted(ctx, id); err != nil {
		return fmt.Errorf("mark printed: %w", err)
	}
	s.logger.Info("Check marked printed", "id", id)
	return nil
}

// GetByID retrieves a check by ID
func (s *checkServiceImpl) GetByID(ctx context.Context, id int64) (*entity.Check, error) {
	return s.checkRepo.GetByID(ctx, id)
}

// GetByCode retrieves a check by its code
func (s *checkServiceImpl) GetByCode(ctx context.Context, checkCode string) (*entity.Check, error) {
	return s.checkRepo.GetByCode(ctx, checkCode)
}

// List retrieves checks matching the filter plus a total count
func (s *checkServiceImpl) List(ctx context.Context, filter port.CheckFilter) ([]*entity.Check, int, error) {
	return s.checkRepo.List(ctx, filter)
}

// OperatorDailyStats aggregates today's issuance activity for an operator
func (s *checkServiceImpl) OperatorDailyStats(ctx context.Context, operatorID int64) (*port.OperatorDailyStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.checkRepo.OperatorDailyStats(ctx, operatorID, dayStart)
}
