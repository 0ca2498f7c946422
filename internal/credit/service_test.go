package credit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/parties"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type mockCustomers map[int64]parties.Customer

func (m mockCustomers) GetCustomer(ctx context.Context, id int64) (parties.Customer, error) {
	c, ok := m[id]
	if !ok {
		return parties.Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func TestCheckAvailableWithinLimit(t *testing.T) {
	svc := NewService(mockCustomers{
		7: {ID: 7, CreditLimit: 5000, CurrentBalance: 4000},
	})

	decision, err := svc.CheckAvailable(context.Background(), 7, 900)
	require.NoError(t, err)
	assert.True(t, decision.CanProceed)
	assert.Equal(t, 1000.0, decision.Available)
	assert.Empty(t, decision.Reason)
}

func TestCheckAvailableOverLimit(t *testing.T) {
	svc := NewService(mockCustomers{
		7: {ID: 7, CreditLimit: 5000, CurrentBalance: 4000},
	})

	// 4000 + 6000 > 5000: the gate rejects with the figures in the reason.
	decision, err := svc.CheckAvailable(context.Background(), 7, 6000)
	require.NoError(t, err)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, 1000.0, decision.Available)
	assert.Contains(t, decision.Reason, "6000.00")
	assert.Contains(t, decision.Reason, "1000.00")
}

func TestCheckAvailableExactlyAtLimit(t *testing.T) {
	svc := NewService(mockCustomers{
		7: {ID: 7, CreditLimit: 5000, CurrentBalance: 4000},
	})

	decision, err := svc.CheckAvailable(context.Background(), 7, 1000)
	require.NoError(t, err)
	assert.True(t, decision.CanProceed)
}

func TestCheckAvailableNegativeAmount(t *testing.T) {
	svc := NewService(mockCustomers{})

	_, err := svc.CheckAvailable(context.Background(), 7, -1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCheckAvailableUnknownCustomer(t *testing.T) {
	svc := NewService(mockCustomers{})

	_, err := svc.CheckAvailable(context.Background(), 99, 100)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEnsureReturnsTypedError(t *testing.T) {
	customer := parties.Customer{ID: 7, CreditLimit: 5000, CurrentBalance: 4000}

	require.NoError(t, Ensure(customer, 1000))

	err := Ensure(customer, 6000)
	require.ErrorIs(t, err, shared.ErrCreditLimitExceeded)

	var limit *shared.CreditLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, int64(7), limit.CustomerID)
	assert.Equal(t, 6000.0, limit.Requested)
	assert.Equal(t, 1000.0, limit.Available)
}

func TestEvaluateOverdrawnCustomer(t *testing.T) {
	// Balance above the limit leaves negative availability; nothing passes.
	customer := parties.Customer{ID: 3, CreditLimit: 1000, CurrentBalance: 1200}

	decision := Evaluate(customer, 0)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, -200.0, decision.Available)
}

func TestUtilizationRiskFlag(t *testing.T) {
	svc := NewService(mockCustomers{
		1: {ID: 1, CreditLimit: 10000, CurrentBalance: 6999},
		2: {ID: 2, CreditLimit: 10000, CurrentBalance: 7000},
		3: {ID: 3, CreditLimit: 0, CurrentBalance: 500},
	})
	ctx := context.Background()

	below, err := svc.Utilization(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 69.99, below.Percent)
	assert.False(t, below.AtRisk)

	at, err := svc.Utilization(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 70.0, at.Percent)
	assert.True(t, at.AtRisk)

	// Zero limit avoids division and reports zero utilization.
	zero, err := svc.Utilization(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, zero.Percent)
	assert.False(t, zero.AtRisk)
}
