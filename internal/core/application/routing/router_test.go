package routing_test

import (
	"io"
	"log/slog"
	"testing"

	"ordering/internal/core/application/routing"
	"ordering/internal/core/application/strategies/strategytest"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/services"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, rollout services.RolloutConfig, store *strategytest.Store) *routing.Router {
	t.Helper()
	r, err := routing.NewRouter(rollout, store.Routing(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return r
}

func TestRouter_AssignIsSticky(t *testing.T) {
	ctx := t.Context()
	store := strategytest.NewStore()
	router := newRouter(t, services.RolloutConfig{EntityPercent: 50, KeyedStorePercent: 50}, store)

	orderID := kernel.NewUUID()

	first, err := router.Assign(ctx, orderID)
	require.NoError(t, err)
	require.NoError(t, first.Validate())

	// Re-assigning after a retried creation changes nothing.
	second, err := router.Assign(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	found, err := router.Lookup(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, first, found)
}

func TestRouter_AssignmentSurvivesRolloutChange(t *testing.T) {
	ctx := t.Context()
	store := strategytest.NewStore()

	before := newRouter(t, services.RolloutConfig{EntityPercent: 100}, store)
	orderID := kernel.NewUUID()

	assigned, err := before.Assign(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, services.StrategyEntity, assigned)

	// The split flips completely; the existing order keeps its strategy.
	after := newRouter(t, services.RolloutConfig{DurablePercent: 100}, store)
	kept, err := after.Assign(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, services.StrategyEntity, kept)
}

func TestRouter_AssignIsDeterministic(t *testing.T) {
	ctx := t.Context()
	rollout := services.RolloutConfig{EntityPercent: 40, KeyedStorePercent: 30, DurablePercent: 30}

	orderID := kernel.NewUUID()

	// Two routers with empty stores stand in for two processes racing on the
	// same creation: both must pick the same strategy.
	a, err := newRouter(t, rollout, strategytest.NewStore()).Assign(ctx, orderID)
	require.NoError(t, err)
	b, err := newRouter(t, rollout, strategytest.NewStore()).Assign(ctx, orderID)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRouter_LookupUnroutedOrder(t *testing.T) {
	ctx := t.Context()
	router := newRouter(t, services.RolloutConfig{EntityPercent: 100}, strategytest.NewStore())

	_, err := router.Lookup(ctx, kernel.NewUUID())
	require.ErrorIs(t, err, errs.ErrRoutingNotFound)
}

func TestNewRouter_RejectsBadRollout(t *testing.T) {
	store := strategytest.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := routing.NewRouter(services.RolloutConfig{EntityPercent: 60, KeyedStorePercent: 60}, store.Routing(), logger)
	require.ErrorIs(t, err, services.ErrRolloutDoesNotSumTo100)

	_, err = routing.NewRouter(services.RolloutConfig{EntityPercent: -10, KeyedStorePercent: 110}, store.Routing(), logger)
	require.ErrorIs(t, err, services.ErrRolloutDoesNotSumTo100)
}
