package service

import (
	"context"
	"time"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
)

// Function-field mocks: tests set only the methods they expect to be called,
// anything else panics with a nil-func dereference and fails the test.

type mockCheckRepo struct {
	createFn                func(ctx context.Context, check *entity.Check) error
	getByIDFn               func(ctx context.Context, id int64) (*entity.Check, error)
	getByCodeFn             func(ctx context.Context, code string) (*entity.Check, error)
	listFn                  func(ctx context.Context, filter port.CheckFilter) ([]*entity.Check, int, error)
	listBetweenFn           func(ctx context.Context, from, to time.Time) ([]*entity.Check, error)
	transitionFromPendingFn func(ctx context.Context, id int64, to entity.CheckStatus, customerID *int64, usedAt *time.Time) (bool, error)
	expireOverdueFn         func(ctx context.Context, now time.Time) (int64, error)
	markPrintedFn           func(ctx context.Context, id int64) error
	deleteFn                func(ctx context.Context, id int64) error
	operatorDailyStatsFn    func(ctx context.Context, operatorID int64, dayStart time.Time) (*port.OperatorDailyStats, error)
	customerStatsSinceFn    func(ctx context.Context, customerID int64, since time.Time) (*port.CustomerPeriodStats, error)
	countUsedByCustomerFn   func(ctx context.Context, customerID int64) (int, error)
}

func (m *mockCheckRepo) Create(ctx context.Context, check *entity.Check) error {
	return m.createFn(ctx, check)
}
func (m *mockCheckRepo) GetByID(ctx context.Context, id int64) (*entity.Check, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockCheckRepo) GetByCode(ctx context.Context, code string) (*entity.Check, error) {
	return m.getByCodeFn(ctx, code)
}
func (m *mockCheckRepo) List(ctx context.Context, filter port.CheckFilter) ([]*entity.Check, int, error) {
	return m.listFn(ctx, filter)
}
func (m *mockCheckRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*entity.Check, error) {
	return m.listBetweenFn(ctx, from, to)
}
func (m *mockCheckRepo) TransitionFromPending(ctx context.Context, id int64, to entity.CheckStatus, customerID *int64, usedAt *time.Time) (bool, error) {
	return m.transitionFromPendingFn(ctx, id, to, customerID, usedAt)
}
func (m *mockCheckRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return m.expireOverdueFn(ctx, now)
}
func (m *mockCheckRepo) MarkPrinted(ctx context.Context, id int64) error {
	return m.markPrintedFn(ctx, id)
}
func (m *mockCheckRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}
func (m *mockCheckRepo) OperatorDailyStats(ctx context.Context, operatorID int64, dayStart time.Time) (*port.OperatorDailyStats, error) {
	return m.operatorDailyStatsFn(ctx, operatorID, dayStart)
}
func (m *mockCheckRepo) CustomerStatsSince(ctx context.Context, customerID int64, since time.Time) (*port.CustomerPeriodStats, error) {
	return m.customerStatsSinceFn(ctx, customerID, since)
}
func (m *mockCheckRepo) CountUsedByCustomer(ctx context.Context, customerID int64) (int, error) {
	return m.countUsedByCustomerFn(ctx, customerID)
}

type mockCustomerRepo struct {
	createFn              func(ctx context.Context, customer *entity.Customer) error
	getByIDFn             func(ctx context.Context, id int64) (*entity.Customer, error)
	getByUsernameFn       func(ctx context.Context, username string) (*entity.Customer, error)
	getByTelegramIDFn     func(ctx context.Context, telegramID string) (*entity.Customer, error)
	getByPhoneFn          func(ctx context.Context, phone string) (*entity.Customer, error)
	findByPhoneVariantsFn func(ctx context.Context, variants []string, suffix string) (*entity.Customer, error)
	updateFn              func(ctx context.Context, customer *entity.Customer) error
	deleteFn              func(ctx context.Context, id int64) error
	adjustBalanceFn       func(ctx context.Context, id int64, deltaCentiliters int64) error
	listFn                func(ctx context.Context, filter port.CustomerListFilter) ([]*entity.Customer, int, error)
	rankingFn             func(ctx context.Context, limit int) ([]*port.RankedCustomer, error)
	topByBalanceFn        func(ctx context.Context, ascending bool, limit int) ([]*port.RankedCustomer, error)
	rankOfFn              func(ctx context.Context, id int64) (int, error)
	stationCustomersFn    func(ctx context.Context, stationID int64) ([]*port.RankedCustomer, error)
	reportFn              func(ctx context.Context, ascending bool) ([]*port.RankedCustomer, error)
	broadcastTargetsFn    func(ctx context.Context) ([]string, error)
}

func (m *mockCustomerRepo) Create(ctx context.Context, customer *entity.Customer) error {
	return m.createFn(ctx, customer)
}
func (m *mockCustomerRepo) GetByID(ctx context.Context, id int64) (*entity.Customer, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockCustomerRepo) GetByUsername(ctx context.Context, username string) (*entity.Customer, error) {
	return m.getByUsernameFn(ctx, username)
}
func (m *mockCustomerRepo) GetByTelegramID(ctx context.Context, telegramID string) (*entity.Customer, error) {
	return m.getByTelegramIDFn(ctx, telegramID)
}
func (m *mockCustomerRepo) GetByPhone(ctx context.Context, phone string) (*entity.Customer, error) {
	return m.getByPhoneFn(ctx, phone)
}
func (m *mockCustomerRepo) FindByPhoneVariants(ctx context.Context, variants []string, suffix string) (*entity.Customer, error) {
	return m.findByPhoneVariantsFn(ctx, variants, suffix)
}
func (m *mockCustomerRepo) Update(ctx context.Context, customer *entity.Customer) error {
	return m.updateFn(ctx, customer)
}
func (m *mockCustomerRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}
func (m *mockCustomerRepo) AdjustBalance(ctx context.Context, id int64, deltaCentiliters int64) error {
	return m.adjustBalanceFn(ctx, id, deltaCentiliters)
}
func (m *mockCustomerRepo) List(ctx context.Context, filter port.CustomerListFilter) ([]*entity.Customer, int, error) {
	return m.listFn(ctx, filter)
}
func (m *mockCustomerRepo) Ranking(ctx context.Context, limit int) ([]*port.RankedCustomer, error) {
	return m.rankingFn(ctx, limit)
}
func (m *mockCustomerRepo) TopByBalance(ctx context.Context, ascending bool, limit int) ([]*port.RankedCustomer, error) {
	return m.topByBalanceFn(ctx, ascending, limit)
}
func (m *mockCustomerRepo) RankOf(ctx context.Context, id int64) (int, error) {
	return m.rankOfFn(ctx, id)
}
func (m *mockCustomerRepo) StationCustomers(ctx context.Context, stationID int64) ([]*port.RankedCustomer, error) {
	return m.stationCustomersFn(ctx, stationID)
}
func (m *mockCustomerRepo) Report(ctx context.Context, ascending bool) ([]*port.RankedCustomer, error) {
	return m.reportFn(ctx, ascending)
}
func (m *mockCustomerRepo) BroadcastTargets(ctx context.Context) ([]string, error) {
	return m.broadcastTargetsFn(ctx)
}

// mockTxManager runs the callback directly, no real transaction
type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockQREncoder struct {
	encodeFn func(payload string) ([]byte, error)
}

func (m *mockQREncoder) Encode(payload string) ([]byte, error) {
	if m.encodeFn != nil {
		return m.encodeFn(payload)
	}
	return []byte("png"), nil
}

type mockMessenger struct {
	sendFn func(ctx context.Context, recipientID, text string) error
}

func (m *mockMessenger) SendMessage(ctx context.Context, recipientID, text string) error {
	return m.sendFn(ctx, recipientID, text)
}

type mockResolver struct {
	resolveFn func(ctx context.Context, fullName, rawPhone string) (*entity.Customer, error)
}

func (m *mockResolver) ResolveByPhone(ctx context.Context, fullName, rawPhone string) (*entity.Customer, error) {
	return m.resolveFn(ctx, fullName, rawPhone)
}

// noopLogger discards log output in tests
type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}
