package trackingrepo_test

import (
	"context"
	"testing"
	"time"

	"ordersaga/internal/adapters/out/postgres/pgtest"
	"ordersaga/internal/adapters/out/postgres/trackingrepo"
	"ordersaga/internal/core/domain/model/kernel"
	"ordersaga/internal/core/domain/model/order"
	"ordersaga/internal/core/domain/model/tracking"
	"ordersaga/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type TrackingRepositoryIntegrationTestSuite struct {
	suite.Suite
	database   *pgtest.Database
	repository *trackingrepo.GormTrackingRepository
}

func (suite *TrackingRepositoryIntegrationTestSuite) SetupSuite() {
	suite.database = pgtest.Start(suite.T())
}

func (suite *TrackingRepositoryIntegrationTestSuite) SetupTest() {
	suite.database.Truncate(suite.T())
	suite.repository = trackingrepo.NewGormTrackingRepository(suite.database.DB)
}

func (suite *TrackingRepositoryIntegrationTestSuite) TearDownSuite() {
	suite.database.Stop(suite.T())
}

func (suite *TrackingRepositoryIntegrationTestSuite) TestDelivery_RoundTrip() {
	ctx := context.Background()
	orderID, driverID := kernel.NewUUID(), kernel.NewUUID()

	_, err := suite.repository.GetDelivery(ctx, orderID)
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)

	d := tracking.NewDelivery(orderID)
	suite.Require().NoError(suite.repository.SaveDelivery(ctx, d))
	stored, err := suite.repository.GetDelivery(ctx, orderID)
	suite.Require().NoError(err)
	suite.Equal(order.Unknown, stored.Status)
	suite.Nil(stored.DriverID)
	suite.Nil(stored.Position)

	d.DriverID = &driverID
	d.Status = order.PickedUp
	d.Version = 9
	sample, err := tracking.NewSample(orderID, driverID, kernel.MustNewLocation(52.52, 13.405), t0)
	suite.Require().NoError(err)
	suite.True(d.Mirror(sample))
	suite.Require().NoError(suite.repository.SaveDelivery(ctx, d))

	stored, err = suite.repository.GetDelivery(ctx, orderID)
	suite.Require().NoError(err)
	suite.Equal(order.PickedUp, stored.Status)
	suite.Equal(int64(9), stored.Version)
	suite.Require().NotNil(stored.DriverID)
	suite.True(driverID.IsEqual(*stored.DriverID))
	suite.Require().NotNil(stored.Position)
	suite.Equal(sample.Location, stored.Position.Location)
	suite.True(t0.Equal(stored.Position.RecordedAt))
}

func (suite *TrackingRepositoryIntegrationTestSuite) TestTrail_OrderedByRecordedTime() {
	ctx := context.Background()
	orderID, driverID := kernel.NewUUID(), kernel.NewUUID()

	for _, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		s, err := tracking.NewSample(orderID, driverID, kernel.MustNewLocation(52.52, 13.405), t0.Add(offset))
		suite.Require().NoError(err)
		suite.Require().NoError(suite.repository.AppendSample(ctx, s))
	}

	trail, err := suite.repository.Trail(ctx, orderID)
	suite.Require().NoError(err)
	suite.Require().Len(trail, 3)
	for i, s := range trail {
		suite.True(t0.Add(time.Duration(i) * time.Second).Equal(s.RecordedAt))
	}

	empty, err := suite.repository.Trail(ctx, kernel.NewUUID())
	suite.Require().NoError(err)
	suite.Empty(empty)
}

func TestTrackingRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(TrackingRepositoryIntegrationTestSuite))
}
