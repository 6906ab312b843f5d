package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
)

func newTestCustomerService(customerRepo *mockCustomerRepo, checkRepo *mockCheckRepo) *customerServiceImpl {
	svc := NewCustomerService(customerRepo, checkRepo, noopLogger{})
	return svc.(*customerServiceImpl)
}

func TestResolveByPhone_BlankPhoneResolvesToNoCustomer(t *testing.T) {
	svc := newTestCustomerService(&mockCustomerRepo{}, &mockCheckRepo{})

	for _, raw := range []string{"", "   ", "abc"} {
		customer, err := svc.ResolveByPhone(context.Background(), "Aziz", raw)
		require.NoError(t, err)
		assert.Nil(t, customer)
	}
}

func TestResolveByPhone_FindsExistingAcrossFormats(t *testing.T) {
	existing := &entity.Customer{ID: 3, Phone: "998901234567"}
	customerRepo := &mockCustomerRepo{
		findByPhoneVariantsFn: func(ctx context.Context, variants []string, suffix string) (*entity.Customer, error) {
			assert.Equal(t, "901234567", suffix)
			assert.Contains(t, variants, "+998901234567")
			assert.Contains(t, variants, "998901234567")
			assert.Contains(t, variants, "901234567")
			return existing, nil
		},
	}
	svc := newTestCustomerService(customerRepo, &mockCheckRepo{})

	customer, err := svc.ResolveByPhone(context.Background(), "Aziz", "+998 90 123-45-67")
	require.NoError(t, err)
	assert.Same(t, existing, customer)
}

func TestResolveByPhone_CreatesWhenMissing(t *testing.T) {
	customerRepo := &mockCustomerRepo{
		findByPhoneVariantsFn: func(ctx context.Context, variants []string, suffix string) (*entity.Customer, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, customer *entity.Customer) error {
			customer.ID = 11
			return nil
		},
	}
	svc := newTestCustomerService(customerRepo, &mockCheckRepo{})

	customer, err := svc.ResolveByPhone(context.Background(), "Aziz", "901234567")
	require.NoError(t, err)
	assert.Equal(t, int64(11), customer.ID)
	assert.Equal(t, entity.RoleCustomer, customer.Role)
	assert.Equal(t, "901234567", customer.Phone)
	assert.True(t, customer.IsActive)
	assert.Zero(t, customer.BalanceCentiliters)
}

func TestCreate_HashesPassword(t *testing.T) {
	var created *entity.Customer
	customerRepo := &mockCustomerRepo{
		createFn: func(ctx context.Context, customer *entity.Customer) error {
			created = customer
			return nil
		},
	}
	svc := newTestCustomerService(customerRepo, &mockCheckRepo{})

	_, err := svc.Create(context.Background(), CreateCustomerInput{
		Username: "operator1",
		Password: "secret",
		FullName: "Operator One",
		Role:     entity.RoleOperator,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEqual(t, "secret", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret")))
}

func TestCreate_DefaultsToCustomerRole(t *testing.T) {
	customerRepo := &mockCustomerRepo{
		createFn: func(ctx context.Context, customer *entity.Customer) error { return nil },
	}
	svc := newTestCustomerService(customerRepo, &mockCheckRepo{})

	customer, err := svc.Create(context.Background(), CreateCustomerInput{FullName: "Aziz"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleCustomer, customer.Role)
}

func TestCreate_ConflictPropagates(t *testing.T) {
	customerRepo := &mockCustomerRepo{
		createFn: func(ctx context.Context, customer *entity.Customer) error {
			return entity.ErrConflict
		},
	}
	svc := newTestCustomerService(customerRepo, &mockCheckRepo{})

	_, err := svc.Create(context.Background(), CreateCustomerInput{Username: "dup", FullName: "Dup"})
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestUpdate_PartialFields(t *testing.T) {
	stored := &entity.Customer{ID: 5, FullName: "Old Name", Phone: "901111111", IsActive: true}
	var updated *entity.Customer
	customerRepo := &mockCustomerRepo{
		getByIDFn: func(ctx context.Context, id int64) (*entity.Customer, error) {
			return stored, nil
		},
		updateFn: func(ctx context.Context, customer *entity.Customer) error {
			updated = customer
			return nil
		},
	}
	svc := newTestCustomerService(customerRepo, &mockCheckRepo{})

	newName := "New Name"
	inactive := false
	_, err := svc.Update(context.Background(), 5, UpdateCustomerInput{
		FullName: &newName,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)
	assert.Equal(t, "901111111", updated.Phone)
	assert.False(t, updated.IsActive)
}

func TestRegisterViaTelegram_IdempotentOnTelegramID(t *testing.T) {
	existing := &entity.Customer{ID: 7, TelegramID: "12345", FullName: "Aziz"}
	customerRepo := &mockCustomerRepo{
		getByTelegramIDFn: func(ctx context.Context, telegramID string) (*entity.Customer, error) {
			return existing, nil
		},
	}
	svc := newTestCustomerService(customerRepo, &mockCheckRepo{})

	customer, err := svc.RegisterViaTelegram(context.Background(), TelegramRegistration{
		TelegramID: "12345", FullName: "Other Name",
	})
	require.NoError(t, err)
	assert.Same(t, existing, customer)
}

func TestRegisterViaTelegram_CreatesNew(t *testing.T) {
	customerRepo := &mockCustomerRepo{
		getByTelegramIDFn: func(ctx context.Context, telegramID string) (*entity.Customer, error) {
			return nil, entity.ErrCustomerNotFound
		},
		createFn: func(ctx context.Context, customer *entity.Customer) error {
			customer.ID = 8
			return nil
		},
	}
	svc := newTestCustomerService(customerRepo, &mockCheckRepo{})

	customer, err := svc.RegisterViaTelegram(context.Background(), TelegramRegistration{
		TelegramID:       "777",
		TelegramUsername: "aziz_uz",
		FullName:         "Aziz",
		Phone:            "+998901234567",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), customer.ID)
	assert.Equal(t, "777", customer.TelegramID)
	assert.Equal(t, entity.RoleCustomer, customer.Role)
	assert.True(t, customer.IsActive)
}

func TestProfile(t *testing.T) {
	customerRepo := &mockCustomerRepo{
		getByTelegramIDFn: func(ctx context.Context, telegramID string) (*entity.Customer, error) {
			return &entity.Customer{ID: 2, FullName: "Aziz", Phone: "901234567", BalanceCentiliters: 1234}, nil
		},
	}
	checkRepo := &mockCheckRepo{
		countUsedByCustomerFn: func(ctx context.Context, customerID int64) (int, error) {
			assert.Equal(t, int64(2), customerID)
			return 6, nil
		},
	}
	svc := newTestCustomerService(customerRepo, checkRepo)

	profile, err := svc.Profile(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, "Aziz", profile.FullName)
	assert.Equal(t, int64(1234), profile.BalanceCentiliters)
	assert.Equal(t, 6, profile.UsedChecks)
}

func TestMonthlyStats_SinceFirstOfMonth(t *testing.T) {
	now := time.Date(2026, 9, 18, 15, 0, 0, 0, time.UTC)
	customerRepo := &mockCustomerRepo{
		getByTelegramIDFn: func(ctx context.Context, telegramID string) (*entity.Customer, error) {
			return &entity.Customer{ID: 2, BalanceCentiliters: 500}, nil
		},
	}
	checkRepo := &mockCheckRepo{
		customerStatsSinceFn: func(ctx context.Context, customerID int64, since time.Time) (*port.CustomerPeriodStats, error) {
			assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), since)
			return &port.CustomerPeriodStats{Checks: 3, Centiliters: 450}, nil
		},
	}
	svc := newTestCustomerService(customerRepo, checkRepo)
	svc.now = func() time.Time { return now }

	stats, balance, err := svc.MonthlyStats(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Checks)
	assert.Equal(t, int64(450), stats.Centiliters)
	assert.Equal(t, int64(500), balance)
}
