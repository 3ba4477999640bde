package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodDeliveryMarketplace/internal/auth"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/models"
)

var allStatuses = []models.ShopOrderStatus{
	models.StatusPending,
	models.StatusPreparing,
	models.StatusOutOfDelivery,
	models.StatusDelivered,
	models.StatusCancelled,
}

func TestCanTransition_Table(t *testing.T) {
	allowed := map[[2]models.ShopOrderStatus]bool{
		{models.StatusPending, models.StatusPreparing}:       true,
		{models.StatusPreparing, models.StatusOutOfDelivery}: true,
		{models.StatusOutOfDelivery, models.StatusDelivered}: true,
		{models.StatusPending, models.StatusCancelled}:       true,
		{models.StatusPreparing, models.StatusCancelled}:     true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[[2]models.ShopOrderStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestUpdateStatus_NonEdgesFailAndLeaveStateUnchanged(t *testing.T) {
	env := newEnv(t)
	admin := &auth.Principal{UserID: "root", Role: models.RoleSuperAdmin}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if CanTransition(from, to) {
				continue
			}
			o, so := env.seedOrder(t, from)
			before := env.shopOrder(t, so.ID)

			_, err := env.svc.UpdateStatus(context.Background(), admin, o.ID, so.ShopID, to)
			requireKind(t, err, KindInvalidTransition)

			after := env.shopOrder(t, so.ID)
			assert.Equal(t, before, after, "%s -> %s changed state", from, to)
		}
	}
}

func TestUpdateStatus_OutForDeliveryIssuesCodeAndCandidates(t *testing.T) {
	env := newEnv(t)
	near := env.addAgent(t, "agent-near", 0.01)
	env.addAgent(t, "agent-mid", 0.02)
	env.addAgent(t, "agent-far", 0.2)
	env.addUser(t, "agent-off", models.RoleDeliveryBoy, shopLat, shopLng, false)

	o, so := env.seedOrder(t, models.StatusPreparing)
	res, err := env.svc.UpdateStatus(context.Background(), principal(env.owner), o.ID, so.ShopID, models.StatusOutOfDelivery)
	require.NoError(t, err)

	stored := env.shopOrder(t, so.ID)
	assert.Equal(t, models.StatusOutOfDelivery, stored.Status)
	require.NotNil(t, stored.DeliveryOTP)
	assert.Len(t, *stored.DeliveryOTP, 4)
	require.NotNil(t, stored.OTPExpiresAt)
	assert.True(t, stored.OTPExpiresAt.Equal(env.clock.Now().Add(time.Hour)))

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, near.ID, res.Candidates[0].AgentID)
	assert.Equal(t, "agent-mid", res.Candidates[1].AgentID)
	assert.Less(t, res.Candidates[0].DistanceKm, res.Candidates[1].DistanceKm)

	// The owner never sees the code.
	assert.Nil(t, res.ShopOrder.DeliveryOTP)
	for _, v := range res.Order.ShopOrders {
		assert.Nil(t, v.DeliveryOTP)
	}
}

func TestUpdateStatus_NotificationsRedactCodeForNonBuyers(t *testing.T) {
	env := newEnv(t)
	env.addAgent(t, "agent-1", 0.01)
	o, so := env.seedOrder(t, models.StatusPreparing)

	_, err := env.svc.UpdateStatus(context.Background(), principal(env.owner), o.ID, so.ShopID, models.StatusOutOfDelivery)
	require.NoError(t, err)
	env.dispatcher.Wait()

	updates := env.rec.Of(notify.EventStatusUpdated)
	require.Len(t, updates, 2)
	for _, c := range updates {
		ev := c.Payload.(ShopOrderEvent)
		if c.Recipients[0] == env.buyer.ID {
			require.NotNil(t, ev.ShopOrder.DeliveryOTP, "buyer must receive the code")
		} else {
			assert.Equal(t, []string{env.owner.ID}, c.Recipients)
			assert.Nil(t, ev.ShopOrder.DeliveryOTP)
		}
	}
	offers := env.rec.Of(notify.EventDeliveryOffered)
	require.Len(t, offers, 1)
	assert.Equal(t, []string{"agent-1"}, offers[0].Recipients)
	assert.Nil(t, offers[0].Payload.(ShopOrderEvent).ShopOrder.DeliveryOTP)
}

func TestUpdateStatus_NotificationFailureDoesNotRollBack(t *testing.T) {
	env := newEnv(t)
	env.rec.Err = assert.AnError
	o, so := env.seedOrder(t, models.StatusPending)

	_, err := env.svc.UpdateStatus(context.Background(), principal(env.owner), o.ID, so.ShopID, models.StatusPreparing)
	require.NoError(t, err)
	env.dispatcher.Wait()
	assert.Equal(t, models.StatusPreparing, env.shopOrder(t, so.ID).Status)
}

func TestUpdateStatus_Authority(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	stranger := env.addUser(t, "stranger", models.RoleOwner, 0, 0, false)
	o, so := env.seedOrder(t, models.StatusPending)

	_, err := env.svc.UpdateStatus(ctx, principal(stranger), o.ID, so.ShopID, models.StatusPreparing)
	requireKind(t, err, KindForbidden)

	_, err = env.svc.UpdateStatus(ctx, principal(env.buyer), o.ID, so.ShopID, models.StatusPreparing)
	requireKind(t, err, KindForbidden)

	_, err = env.svc.UpdateStatus(ctx, principal(env.owner), o.ID, so.ShopID, models.StatusPreparing)
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(ctx, principal(env.owner), o.ID, so.ShopID, models.StatusOutOfDelivery)
	require.NoError(t, err)

	// Only code verification delivers.
	_, err = env.svc.UpdateStatus(ctx, principal(env.owner), o.ID, so.ShopID, models.StatusDelivered)
	requireKind(t, err, KindForbidden)

	_, err = env.svc.UpdateStatus(ctx, nil, o.ID, so.ShopID, models.StatusPreparing)
	requireKind(t, err, KindUnauthenticated)
}

func TestUpdateStatus_ValidationAndNotFound(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	o, so := env.seedOrder(t, models.StatusPending)
	owner := principal(env.owner)

	_, err := env.svc.UpdateStatus(ctx, owner, o.ID, so.ShopID, "shipped")
	requireKind(t, err, KindValidation)
	_, err = env.svc.UpdateStatus(ctx, owner, "", so.ShopID, models.StatusPreparing)
	requireKind(t, err, KindValidation)
	_, err = env.svc.UpdateStatus(ctx, owner, "missing", so.ShopID, models.StatusPreparing)
	requireKind(t, err, KindNotFound)
	_, err = env.svc.UpdateStatus(ctx, owner, o.ID, "other-shop", models.StatusPreparing)
	requireKind(t, err, KindNotFound)
}

func TestUpdateStatus_SkippingPreparingIsRejected(t *testing.T) {
	env := newEnv(t)
	o, so := env.seedOrder(t, models.StatusPending)
	_, err := env.svc.UpdateStatus(context.Background(), principal(env.owner), o.ID, so.ShopID, models.StatusOutOfDelivery)
	requireKind(t, err, KindInvalidTransition)
	assert.Nil(t, env.shopOrder(t, so.ID).DeliveryOTP)
}

func TestCancel_ByBuyerThenEverythingFails(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	o, so := env.seedOrder(t, models.StatusPending)

	res, err := env.svc.Cancel(ctx, principal(env.buyer), o.ID, so.ShopID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, res.ShopOrder.Status)
	env.dispatcher.Wait()
	assert.NotEmpty(t, env.rec.Of(notify.EventCancelled))

	admin := &auth.Principal{UserID: "root", Role: models.RoleSuperAdmin}
	for _, to := range allStatuses {
		_, err := env.svc.UpdateStatus(ctx, admin, o.ID, so.ShopID, to)
		requireKind(t, err, KindInvalidTransition)
	}
	assert.Equal(t, models.StatusCancelled, env.shopOrder(t, so.ID).Status)
}

func TestUpdateStatus_ConcurrentRequestsApplyOnce(t *testing.T) {
	env := newEnv(t)
	o, so := env.seedOrder(t, models.StatusPending)

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.UpdateStatus(context.Background(), principal(env.owner), o.ID, so.ShopID, models.StatusPreparing)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, KindInvalidTransition, KindOf(err))
	}
	assert.Equal(t, 1, ok)
}
