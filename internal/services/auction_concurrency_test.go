package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/testutil"
)

// SQLite ignores FOR UPDATE and the in-memory test database has one connection, so
// concurrent bidding is only meaningful against PostgreSQL.
func requirePostgres(t *testing.T) {
	t.Helper()
	if testutil.GetTestDatabaseURL() == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
}

func TestAuctionService_ConcurrentBids(t *testing.T) {
	requirePostgres(t)
	svc, gdb, _, _ := newTestAuctionService(t)
	ctx := context.Background()

	p := createProperty(t, gdb, models.PropertyTypeAuction, models.PropertyStatusAvailable)
	auction, err := svc.Setup(ctx, p.ID, 1000)
	require.NoError(t, err)

	const bidders = 20
	users := make([]*models.User, bidders)
	for i := range users {
		users[i] = createUser(t, gdb, models.RoleClient)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		topBid   float64
		topUser  uint
	)
	for i, u := range users {
		wg.Add(1)
		go func(amount float64, userID uint) {
			defer wg.Done()
			_, err := svc.PlaceBid(ctx, auction.ID, userID, amount)
			if err != nil {
				assert.True(t, errors.Is(err, ErrValidation), "unexpected bid error: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			accepted++
			if amount > topBid {
				topBid, topUser = amount, userID
			}
		}(float64(1000+(i%7+1)*100+i), u.ID)
	}
	wg.Wait()

	require.NotZero(t, accepted)
	assertPriceInvariant(t, gdb, auction.ID)
	a := reloadAuction(t, gdb, auction.ID)
	assert.Equal(t, topBid, a.CurrentPrice)
	require.NotNil(t, a.HighestBidderID)
	assert.Equal(t, topUser, *a.HighestBidderID)
	assert.Equal(t, int64(accepted), countRows(t, gdb, &models.AuctionBid{}, "auction_id = ?", auction.ID))
}

func TestAuctionService_ConcurrentBidsAndEnd(t *testing.T) {
	requirePostgres(t)
	svc, gdb, _, _ := newTestAuctionService(t)
	ctx := context.Background()

	p := createProperty(t, gdb, models.PropertyTypeAuction, models.PropertyStatusAvailable)
	auction, err := svc.Setup(ctx, p.ID, 1000)
	require.NoError(t, err)
	opener := createUser(t, gdb, models.RoleClient)
	_, err = svc.PlaceBid(ctx, auction.ID, opener.ID, 1100)
	require.NoError(t, err)

	const bidders = 15
	users := make([]*models.User, bidders)
	for i := range users {
		users[i] = createUser(t, gdb, models.RoleClient)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted = 1
		res      *models.AuctionResolution
		endErr   error
	)
	start := make(chan struct{})
	for i, u := range users {
		wg.Add(1)
		go func(amount float64, userID uint) {
			defer wg.Done()
			<-start
			_, err := svc.PlaceBid(ctx, auction.ID, userID, amount)
			if err != nil {
				assert.True(t, errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidState), "unexpected bid error: %v", err)
				return
			}
			mu.Lock()
			accepted++
			mu.Unlock()
		}(float64(1200+i*50), u.ID)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		res, endErr = svc.End(ctx, auction.ID)
	}()
	close(start)
	wg.Wait()

	require.NoError(t, endErr)
	require.NotNil(t, res.Winner)

	// Every bid must exceed the price at its time, so a bid committed after End
	// would push MAX(bid_amount) above the resolved price.
	var maxBid float64
	require.NoError(t, gdb.Model(&models.AuctionBid{}).Where("auction_id = ?", auction.ID).
		Select("MAX(bid_amount)").Scan(&maxBid).Error)
	assert.Equal(t, res.Auction.CurrentPrice, maxBid)
	assert.Equal(t, int64(accepted), countRows(t, gdb, &models.AuctionBid{}, "auction_id = ?", auction.ID))

	a := reloadAuction(t, gdb, auction.ID)
	assert.Equal(t, models.AuctionStatusEnded, a.Status)
	assert.Equal(t, res.Auction.CurrentPrice, a.CurrentPrice)
	assert.Equal(t, int64(1), countRows(t, gdb, &models.UserPurchase{}, "property_id = ?", p.ID))
}
