package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
	"github.com/webgradeuz/fuelbonus/internal/infrastructure/persistence/sqlite"
	"github.com/webgradeuz/fuelbonus/pkg/database"
)

type testEnv struct {
	db           *database.DB
	txManager    *sqlite.DB
	checkRepo    port.CheckRepository
	customerRepo port.CustomerRepository
	stationRepo  port.StationRepository

	stationID  int64
	operatorID int64
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../../../migrations"))

	env := &testEnv{
		db:           db,
		txManager:    sqlite.NewDB(db.DB, logger),
		checkRepo:    NewCheckRepository(db.DB, logger),
		customerRepo: NewCustomerRepository(db.DB, logger),
		stationRepo:  NewStationRepository(db.DB, logger),
	}

	ctx := context.Background()
	station := &entity.Station{Name: "Station One", Address: "Tashkent", CreatedAt: time.Now()}
	require.NoError(t, env.stationRepo.Create(ctx, station))
	env.stationID = station.ID

	operator := &entity.Customer{
		Username:  "op1",
		FullName:  "Operator One",
		Role:      entity.RoleOperator,
		StationID: &station.ID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, env.customerRepo.Create(ctx, operator))
	env.operatorID = operator.ID

	return env
}

func (e *testEnv) newCheck(t *testing.T, code string, centiliters int64) *entity.Check {
	t.Helper()
	check := &entity.Check{
		Code:              code,
		AmountCentiliters: centiliters,
		Status:            entity.CheckStatusPending,
		OperatorID:        e.operatorID,
		StationID:         e.stationID,
		ExpiresAt:         time.Now().Add(30 * 24 * time.Hour),
		CreatedAt:         time.Now(),
	}
	require.NoError(t, e.checkRepo.Create(context.Background(), check))
	return check
}

func (e *testEnv) newCustomer(t *testing.T, fullName, phone string) *entity.Customer {
	t.Helper()
	customer := &entity.Customer{
		FullName:  fullName,
		Phone:     phone,
		Role:      entity.RoleCustomer,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, e.customerRepo.Create(context.Background(), customer))
	return customer
}

func TestCheckRepository_CreateAndGet(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	check := env.newCheck(t, "AAAA2222", 1250)
	require.NotZero(t, check.ID)

	loaded, err := env.checkRepo.GetByCode(ctx, "AAAA2222")
	require.NoError(t, err)
	assert.Equal(t, check.ID, loaded.ID)
	assert.Equal(t, int64(1250), loaded.AmountCentiliters)
	assert.Equal(t, entity.CheckStatusPending, loaded.Status)
	assert.Equal(t, "Station One", loaded.StationName)
	assert.Equal(t, "Operator One", loaded.OperatorName)

	_, err = env.checkRepo.GetByCode(ctx, "MISSING1")
	assert.ErrorIs(t, err, entity.ErrCheckNotFound)
}

func TestCheckRepository_DuplicateCodeConflict(t *testing.T) {
	env := setupEnv(t)

	env.newCheck(t, "DUPL2222", 100)
	dup := &entity.Check{
		Code:              "DUPL2222",
		AmountCentiliters: 100,
		Status:            entity.CheckStatusPending,
		OperatorID:        env.operatorID,
		StationID:         env.stationID,
		ExpiresAt:         time.Now().Add(time.Hour),
		CreatedAt:         time.Now(),
	}
	err := env.checkRepo.Create(context.Background(), dup)
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestCheckRepository_TransitionGuard(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	check := env.newCheck(t, "TRAN2222", 500)
	customer := env.newCustomer(t, "Aziz", "901234567")
	usedAt := time.Now()

	ok, err := env.checkRepo.TransitionFromPending(ctx, check.ID, entity.CheckStatusUsed, &customer.ID, &usedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	// already used; the pending-only guard refuses a second transition
	ok, err = env.checkRepo.TransitionFromPending(ctx, check.ID, entity.CheckStatusCancelled, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, err := env.checkRepo.GetByID(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusUsed, loaded.Status)
	require.NotNil(t, loaded.CustomerID)
	assert.Equal(t, customer.ID, *loaded.CustomerID)
	require.NotNil(t, loaded.UsedAt)
}

func TestCheckRepository_ConcurrentRedemptionSingleWinner(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	check := env.newCheck(t, "RACE2222", 1000)
	customer := env.newCustomer(t, "Aziz", "901234567")

	const attempts = 10
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
				usedAt := time.Now()
				ok, err := env.checkRepo.TransitionFromPending(txCtx, check.ID, entity.CheckStatusUsed, &customer.ID, &usedAt)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := env.customerRepo.AdjustBalance(txCtx, customer.ID, check.AmountCentiliters); err != nil {
					return err
				}
				wins <- struct{}{}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	assert.Equal(t, 1, winners)

	loaded, err := env.customerRepo.GetByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), loaded.BalanceCentiliters)
}

func TestCheckRepository_ExpireOverdue(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	overdue := env.newCheck(t, "OVER2222", 100)
	_, err := env.db.Exec("UPDATE checks SET expires_at = ? WHERE id = ?",
		time.Now().Add(-time.Hour), overdue.ID)
	require.NoError(t, err)

	fresh := env.newCheck(t, "FRSH2222", 100)

	count, err := env.checkRepo.ExpireOverdue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	loaded, err := env.checkRepo.GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusExpired, loaded.Status)

	loaded, err = env.checkRepo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusPending, loaded.Status)

	// second sweep finds nothing
	count, err = env.checkRepo.ExpireOverdue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCheckRepository_ListFilters(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	a := env.newCheck(t, "LSTA2222", 100)
	env.newCheck(t, "LSTB2222", 200)
	require.NoError(t, env.checkRepo.MarkPrinted(ctx, a.ID))

	printed := true
	checks, total, err := env.checkRepo.List(ctx, port.CheckFilter{IsPrinted: &printed, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, checks, 1)
	assert.Equal(t, "LSTA2222", checks[0].Code)

	status := entity.CheckStatusPending
	_, total, err = env.checkRepo.List(ctx, port.CheckFilter{Status: &status, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCheckRepository_DeleteMissing(t *testing.T) {
	env := setupEnv(t)
	err := env.checkRepo.Delete(context.Background(), 9999)
	assert.ErrorIs(t, err, entity.ErrCheckNotFound)
}

func TestCustomerRepository_FindByPhoneVariants(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.newCustomer(t, "Aziz", "+998901234567")

	found, err := env.customerRepo.FindByPhoneVariants(ctx,
		[]string{"901234567", "998901234567", "+998901234567"}, "901234567")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Aziz", found.FullName)

	// suffix match alone is enough
	found, err = env.customerRepo.FindByPhoneVariants(ctx, nil, "901234567")
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = env.customerRepo.FindByPhoneVariants(ctx, []string{"900000000"}, "900000000")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCustomerRepository_AdjustBalance(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "Aziz", "901234567")

	require.NoError(t, env.customerRepo.AdjustBalance(ctx, customer.ID, 700))
	require.NoError(t, env.customerRepo.AdjustBalance(ctx, customer.ID, -200))

	loaded, err := env.customerRepo.GetByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), loaded.BalanceCentiliters)

	err = env.customerRepo.AdjustBalance(ctx, 9999, 100)
	assert.ErrorIs(t, err, entity.ErrCustomerNotFound)
}

func TestCustomerRepository_UniqueTelegramID(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first := &entity.Customer{
		FullName: "A", Role: entity.RoleCustomer, TelegramID: "111",
		IsActive: true, CreatedAt: time.Now(),
	}
	require.NoError(t, env.customerRepo.Create(ctx, first))

	dup := &entity.Customer{
		FullName: "B", Role: entity.RoleCustomer, TelegramID: "111",
		IsActive: true, CreatedAt: time.Now(),
	}
	assert.ErrorIs(t, env.customerRepo.Create(ctx, dup), entity.ErrConflict)

	// empty telegram ids do not collide
	for _, name := range []string{"C", "D"} {
		c := &entity.Customer{FullName: name, Role: entity.RoleCustomer, IsActive: true, CreatedAt: time.Now()}
		require.NoError(t, env.customerRepo.Create(ctx, c))
	}
}

func TestCustomerRepository_RankingAndReport(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	rich := env.newCustomer(t, "Rich", "901111111")
	poor := env.newCustomer(t, "Poor", "902222222")
	require.NoError(t, env.customerRepo.AdjustBalance(ctx, rich.ID, 5000))
	require.NoError(t, env.customerRepo.AdjustBalance(ctx, poor.ID, 100))

	check := env.newCheck(t, "RANK2222", 5000)
	usedAt := time.Now()
	ok, err := env.checkRepo.TransitionFromPending(ctx, check.ID, entity.CheckStatusUsed, &rich.ID, &usedAt)
	require.NoError(t, err)
	require.True(t, ok)

	ranked, err := env.customerRepo.Ranking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Rich", ranked[0].FullName)
	assert.Equal(t, 1, ranked[0].UsedChecks)
	assert.Equal(t, "Poor", ranked[1].FullName)
	assert.Equal(t, 0, ranked[1].UsedChecks)

	rank, err := env.customerRepo.RankOf(ctx, poor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	ascending, err := env.customerRepo.TopByBalance(ctx, true, 10)
	require.NoError(t, err)
	assert.Equal(t, "Poor", ascending[0].FullName)

	report, err := env.customerRepo.Report(ctx, false)
	require.NoError(t, err)
	// staff accounts are excluded from the customer report
	assert.Len(t, report, 2)
}

func TestCustomerRepository_BroadcastTargets(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	withTG := &entity.Customer{
		FullName: "Reachable", Role: entity.RoleCustomer, TelegramID: "123",
		IsActive: true, CreatedAt: time.Now(),
	}
	require.NoError(t, env.customerRepo.Create(ctx, withTG))

	inactive := &entity.Customer{
		FullName: "Gone", Role: entity.RoleCustomer, TelegramID: "456",
		IsActive: false, CreatedAt: time.Now(),
	}
	require.NoError(t, env.customerRepo.Create(ctx, inactive))

	env.newCustomer(t, "NoTelegram", "903333333")

	targets, err := env.customerRepo.BroadcastTargets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"123"}, targets)
}

func TestStationRepository_CreateAndList(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	second := &entity.Station{Name: "Station Two", Address: "Samarkand", CreatedAt: time.Now()}
	require.NoError(t, env.stationRepo.Create(ctx, second))

	dup := &entity.Station{Name: "Station Two", CreatedAt: time.Now()}
	assert.ErrorIs(t, env.stationRepo.Create(ctx, dup), entity.ErrConflict)

	stations, err := env.stationRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stations, 2)

	_, err = env.stationRepo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, entity.ErrStationNotFound)
}

func TestTransactionRollback(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	customer := env.newCustomer(t, "Aziz", "901234567")
	check := env.newCheck(t, "ROLL2222", 400)

	err := env.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		usedAt := time.Now()
		if _, err := env.checkRepo.TransitionFromPending(txCtx, check.ID, entity.CheckStatusUsed, &customer.ID, &usedAt); err != nil {
			return err
		}
		if err := env.customerRepo.AdjustBalance(txCtx, customer.ID, check.AmountCentiliters); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	loaded, err := env.checkRepo.GetByID(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusPending, loaded.Status)

	balance, err := env.customerRepo.GetByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Zero(t, balance.BalanceCentiliters)
}
