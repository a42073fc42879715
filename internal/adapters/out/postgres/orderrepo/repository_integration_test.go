package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"ordersaga/internal/adapters/out/postgres/orderrepo"
	"ordersaga/internal/adapters/out/postgres/pgtest"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/order/ordertest"
	"ordersaga/internal/core/ports"
	"ordersaga/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// OrderRepositoryIntegrationTestSuite verifies the event log and snapshot
// persistence against PostgreSQL.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	database   *pgtest.Database
	repository *orderrepo.GormOrderRepository
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	suite.database = pgtest.Start(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.database.Truncate(suite.T())
	suite.repository = orderrepo.NewGormOrderRepository(suite.database.DB)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	suite.database.Stop(suite.T())
}

func (suite *OrderRepositoryIntegrationTestSuite) save(o *order.Order) {
	suite.Require().NoError(suite.repository.Save(context.Background(), o))
}

func (suite *OrderRepositoryIntegrationTestSuite) assertSnapshot(o *order.Order) {
	var dto orderrepo.OrderDTO
	suite.Require().NoError(suite.database.DB.First(&dto, "id = ?", o.ID().Bytes()).Error)
	suite.Equal(o.Status().String(), dto.Status)
	suite.Equal(o.Version(), dto.Version)
	suite.Equal(o.Pricing().Total.Cents(), dto.Total)
	suite.Equal(o.PaymentStatus().String(), dto.PaymentStatus)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSave_NewOrder() {
	o := ordertest.New(suite.T(), t0)

	suite.save(o)

	suite.Empty(o.Changes())
	suite.Equal(int64(1), o.PersistedVersion())
	suite.assertSnapshot(o)

	stored, err := suite.repository.Get(context.Background(), o.ID())
	suite.Require().NoError(err)
	suite.Equal(o.OrderNumber(), stored.OrderNumber())
	suite.Equal(o.Items(), stored.Items())
	suite.Equal(o.Pricing(), stored.Pricing())
	suite.True(o.CreatedAt().Equal(stored.CreatedAt()))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSave_AppendsToExistingLog() {
	driverID := kernel.NewUUID()
	o := ordertest.Ready(suite.T(), t0)
	suite.save(o)

	_, err := o.OfferDriver(driverID, t0.Add(30*time.Second), t0)
	suite.Require().NoError(err)
	suite.Require().NoError(o.AcceptAssignment(driverID, t0.Add(30*time.Minute), t0.Add(5*time.Second)))
	suite.save(o)
	suite.assertSnapshot(o)

	stored, err := suite.repository.Get(context.Background(), o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.DriverAssigned, stored.Status())
	suite.Require().NotNil(stored.Driver())
	suite.True(driverID.IsEqual(*stored.Driver()))
	suite.Equal(o.Assignments(), stored.Assignments())

	events, err := suite.repository.Events(context.Background(), o.ID())
	suite.Require().NoError(err)
	suite.Len(events, int(o.Version()))
	for i, e := range events {
		suite.Equal(int64(i+1), e.SequenceNo())
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSave_StaleVersionConflicts() {
	ctx := context.Background()
	o := ordertest.New(suite.T(), t0)
	suite.save(o)

	stale, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	suite.Require().NoError(o.RequestPayment(t0))
	suite.save(o)

	suite.Require().NoError(stale.Cancel(order.ActorCustomer, "too slow", t0))
	err = suite.repository.Save(ctx, stale)
	suite.Require().ErrorIs(err, ports.ErrConcurrencyConflict)
	suite.NotEmpty(stale.Changes())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSave_SameOrderTwiceConflicts() {
	ctx := context.Background()
	o := ordertest.New(suite.T(), t0)
	events := o.Changes()
	suite.save(o)

	replay, err := order.RestoreOrder(events)
	suite.Require().NoError(err)
	suite.Require().NoError(replay.RequestPayment(t0))
	suite.save(replay)

	clone, err := order.RestoreOrder(events)
	suite.Require().NoError(err)
	suite.Require().NoError(clone.Cancel(order.ActorSystem, "duplicate", t0))
	suite.Require().ErrorIs(suite.repository.Save(ctx, clone), ports.ErrConcurrencyConflict)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NotFound() {
	_, err := suite.repository.Get(context.Background(), kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)

	_, err = suite.repository.Events(context.Background(), kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestList() {
	ctx := context.Background()
	older := ordertest.New(suite.T(), t0)
	newer := ordertest.Paid(suite.T(), t0.Add(time.Minute))
	suite.save(older)
	suite.save(newer)

	all, err := suite.repository.List(ctx, ports.OrderFilter{})
	suite.Require().NoError(err)
	suite.Require().Len(all, 2)
	suite.True(all[0].IsEqual(newer))

	status := order.Paid
	paid, err := suite.repository.List(ctx, ports.OrderFilter{Status: &status})
	suite.Require().NoError(err)
	suite.Require().Len(paid, 1)
	suite.True(paid[0].IsEqual(newer))

	customer := older.CustomerID()
	byCustomer, err := suite.repository.List(ctx, ports.OrderFilter{CustomerID: &customer})
	suite.Require().NoError(err)
	suite.Require().Len(byCustomer, 1)
	suite.True(byCustomer[0].IsEqual(older))

	restaurant := kernel.NewUUID()
	none, err := suite.repository.List(ctx, ports.OrderFilter{RestaurantID: &restaurant})
	suite.Require().NoError(err)
	suite.Empty(none)

	paged, err := suite.repository.List(ctx, ports.OrderFilter{Limit: 1, Offset: 1})
	suite.Require().NoError(err)
	suite.Require().Len(paged, 1)
	suite.True(paged[0].IsEqual(older))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestFindStalled() {
	ctx := context.Background()
	grace := 2 * time.Minute

	pending := ordertest.PaymentPending(suite.T(), t0)
	preparing := ordertest.Preparing(suite.T(), t0)
	retrying := ordertest.PaymentPending(suite.T(), t0)
	suite.Require().NoError(retrying.RecordPaymentAttemptFailure("timeout", t0.Add(10*time.Second), t0))
	for _, o := range []*order.Order{pending, preparing, retrying} {
		suite.save(o)
	}

	ids, err := suite.repository.FindStalled(ctx, t0.Add(10*time.Second), grace, 10)
	suite.Require().NoError(err)
	suite.Require().Len(ids, 1)
	suite.True(ids[0].IsEqual(retrying.ID()))

	ids, err = suite.repository.FindStalled(ctx, t0.Add(grace), grace, 10)
	suite.Require().NoError(err)
	suite.Len(ids, 2)
	suite.NotContains(ids, preparing.ID())

	ids, err = suite.repository.FindStalled(ctx, t0.Add(grace), grace, 1)
	suite.Require().NoError(err)
	suite.Len(ids, 1)
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
