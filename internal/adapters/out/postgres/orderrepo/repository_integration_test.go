package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"ordering/internal/adapters/out/postgres/orderrepo"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/core/domain/model/order"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockAggregateTracker is a mock implementation of aggregateTracker interface.
type MockAggregateTracker struct {
	mock.Mock
}

func (m *MockAggregateTracker) TrackAggregate(id kernel.UUID, aggregate any) {
	m.Called(id, aggregate)
}

// OrderRepositoryIntegrationTestSuite provides integration tests for
// OrderRepository using PostgreSQL containers to verify persistence behavior.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
	tracker    *MockAggregateTracker
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&orderrepo.OrderDTO{}, &orderrepo.ItemDTO{}))
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders, order_items").Error)

	suite.tracker = new(MockAggregateTracker)
	suite.repository = orderrepo.NewGormOrderRepository(suite.db, suite.tracker)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) newOrderWithItem(fulfillment order.Fulfillment) (*order.Order, kernel.UUID) {
	now := time.Now().UTC()
	o, err := order.NewOrder(kernel.NewUUID(), fulfillment, now)
	suite.Require().NoError(err)

	itemID := kernel.NewUUID()
	item, err := order.NewItem(itemID, "margherita", 2, 9.50, "extra basil")
	suite.Require().NoError(err)
	suite.Require().NoError(o.AddItem(item, now))
	o.PopEvents()
	return o, itemID
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAddAndGet_RoundTrip() {
	ctx := context.Background()

	o, itemID := suite.newOrderWithItem(order.DineIn)

	address, err := order.NewAddress("10 Downing St", "London", "SW1A")
	suite.Require().NoError(err)
	customer, err := order.RestoreCustomer("Ada", "Lovelace", "LOY-7", &address, nil)
	suite.Require().NoError(err)
	suite.Require().NoError(o.AssignCustomer(customer, time.Now().UTC()))
	o.PopEvents()

	suite.tracker.On("TrackAggregate", o.ID(), o).Once()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	suite.Equal(o.ID(), got.ID())
	suite.Equal(o.Reference(), got.Reference())
	suite.Equal(order.DineIn, got.FulfillmentType())
	suite.Equal(order.Creating, got.Status())
	suite.Require().Len(got.Items(), 1)
	suite.Equal(itemID, got.Items()[0].ID())
	suite.Equal("margherita", got.Items()[0].ProductRef())
	suite.Equal("extra basil", got.Items()[0].Comment())
	suite.Require().NotNil(got.Customer())
	suite.Equal("Ada", got.Customer().FirstName())
	suite.Equal("LOY-7", got.Customer().LoyaltyRef())
	suite.Require().NotNil(got.Customer().InvoiceAddress())
	suite.Equal("London", got.Customer().InvoiceAddress().City())
	suite.Nil(got.Customer().DeliveryAddress())

	suite.tracker.AssertExpectations(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAddAndGet_AddressOnlyCustomerRoundTrip() {
	ctx := context.Background()

	o, _ := suite.newOrderWithItem(order.Delivery)
	address, err := order.NewAddress("221B Baker St", "London", "NW1")
	suite.Require().NoError(err)
	suite.Require().NoError(o.AssignDeliveryAddress(address, time.Now().UTC()))
	o.PopEvents()

	suite.tracker.On("TrackAggregate", o.ID(), o).Once()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Require().NotNil(got.Customer())
	suite.Empty(got.Customer().FirstName())
	suite.Require().NotNil(got.Customer().DeliveryAddress())
	suite.Equal("221B Baker St", got.Customer().DeliveryAddress().Street())

	suite.tracker.AssertExpectations(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NonExistentOrder_ReturnsNotFoundError() {
	ctx := context.Background()

	got, err := suite.repository.Get(ctx, kernel.NewUUID())

	suite.Nil(got)
	suite.Require().Error(err)

	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
	suite.tracker.AssertExpectations(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_ReplacesItems() {
	ctx := context.Background()
	now := time.Now().UTC()

	o, itemID := suite.newOrderWithItem(order.TakeAway)
	suite.tracker.On("TrackAggregate", o.ID(), o).Twice()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	// Drop the first item and add a different one.
	suite.Require().NoError(o.RemoveItem(itemID, now))
	replacement, err := order.NewItem(kernel.NewUUID(), "cola", 1, 3.00, "")
	suite.Require().NoError(err)
	suite.Require().NoError(o.AddItem(replacement, now))
	o.PopEvents()

	suite.Require().NoError(suite.repository.Update(ctx, o))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Require().Len(got.Items(), 1)
	suite.Equal("cola", got.Items()[0].ProductRef())

	var itemCount int64
	suite.Require().NoError(suite.db.Model(&orderrepo.ItemDTO{}).Count(&itemCount).Error)
	suite.EqualValues(1, itemCount, "removed item rows must not linger")

	suite.tracker.AssertExpectations(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_PersistsLifecycleTimestamps() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	o, itemID := suite.newOrderWithItem(order.DineIn)
	suite.tracker.On("TrackAggregate", o.ID(), o).Twice()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	suite.Require().NoError(o.Confirm(now))
	suite.Require().NoError(o.ConfirmPayment(now))
	suite.Require().NoError(o.StartProcessing(now))
	suite.Require().NoError(o.FinishItem(itemID, now))
	o.PopEvents()

	suite.Require().NoError(suite.repository.Update(ctx, o))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Prepared, got.Status())
	suite.Require().NotNil(got.Snapshot().PaidAt)
	suite.Require().NotNil(got.Snapshot().PreparedAt)
	suite.True(got.Items()[0].IsFinished())

	suite.tracker.AssertExpectations(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_NonExistentOrder_ReturnsError() {
	ctx := context.Background()

	o, _ := suite.newOrderWithItem(order.Delivery)

	err := suite.repository.Update(ctx, o)
	suite.Require().Error(err)

	var notFoundErr *errs.ObjectNotFoundError
	suite.Require().ErrorAs(err, &notFoundErr)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetAllCreatingBefore() {
	ctx := context.Background()
	now := time.Now().UTC()

	stale, _ := suite.newOrderWithItem(order.DineIn)
	fresh, err := order.NewOrder(kernel.NewUUID(), order.TakeAway, now)
	suite.Require().NoError(err)
	fresh.PopEvents()
	confirmed, confirmedItem := suite.newOrderWithItem(order.DineIn)
	_ = confirmedItem
	suite.Require().NoError(confirmed.Confirm(now))
	confirmed.PopEvents()

	suite.tracker.On("TrackAggregate", mock.Anything, mock.Anything).Times(3)
	suite.Require().NoError(suite.repository.Add(ctx, stale))
	suite.Require().NoError(suite.repository.Add(ctx, fresh))
	suite.Require().NoError(suite.repository.Add(ctx, confirmed))

	// Age the stale order past the cutoff.
	agedAt := now.Add(-2 * time.Hour)
	suite.Require().NoError(suite.db.Model(&orderrepo.OrderDTO{}).
		Where("id = ?", stale.ID().Bytes()).
		Update("created_at", agedAt).Error)

	found, err := suite.repository.GetAllCreatingBefore(ctx, now.Add(-time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(found, 1)
	suite.Equal(stale.ID(), found[0].ID())

	suite.tracker.AssertExpectations(suite.T())
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
