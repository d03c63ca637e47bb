package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
)

var fixtureSeq int

// fixedClock returns a settable clock starting at a whole-second UTC instant.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	var mu sync.Mutex
	now := start.UTC().Truncate(time.Second)
	get := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
	return get, advance
}

func createUser(t *testing.T, gdb *gorm.DB, role models.Role) *models.User {
	t.Helper()
	fixtureSeq++
	u := &models.User{
		Name:  fmt.Sprintf("User %d", fixtureSeq),
		Email: fmt.Sprintf("user%d@example.com", fixtureSeq),
		Phone: "+33 1 23 45 67 89",
		Role:  role,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func createAgent(t *testing.T, gdb *gorm.DB) *models.Agent {
	t.Helper()
	u := createUser(t, gdb, models.RoleAgent)
	a := &models.Agent{UserID: u.ID, Specialty: "residential"}
	require.NoError(t, gdb.Create(a).Error)
	return a
}

func createClient(t *testing.T, gdb *gorm.DB) *models.Client {
	t.Helper()
	u := createUser(t, gdb, models.RoleClient)
	c := &models.Client{UserID: u.ID}
	require.NoError(t, gdb.Create(c).Error)
	return c
}

func createProperty(t *testing.T, gdb *gorm.DB, ptype models.PropertyType, status models.PropertyStatus) *models.Property {
	t.Helper()
	fixtureSeq++
	p := &models.Property{
		Title:        fmt.Sprintf("Maison %d", fixtureSeq),
		Price:        300000,
		PropertyType: ptype,
		Status:       status,
		City:         "Paris",
		Images:       models.EncodeImages([]string{"front.jpg", "garden.jpg"}),
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func createAppointment(t *testing.T, gdb *gorm.DB, agent *models.Agent, client *models.Client, at time.Time, status models.AppointmentStatus) *models.Appointment {
	t.Helper()
	p := createProperty(t, gdb, models.PropertyTypeHouse, models.PropertyStatusAvailable)
	a := &models.Appointment{
		AgentID:         agent.ID,
		ClientID:        client.ID,
		PropertyID:      p.ID,
		AppointmentDate: at.UTC(),
		Status:          status,
		Location:        "On site",
	}
	require.NoError(t, gdb.Create(a).Error)
	return a
}

func reloadAuction(t *testing.T, gdb *gorm.DB, id uint) models.PropertyAuction {
	t.Helper()
	var a models.PropertyAuction
	require.NoError(t, gdb.First(&a, id).Error)
	return a
}

func reloadProperty(t *testing.T, gdb *gorm.DB, id uint) models.Property {
	t.Helper()
	var p models.Property
	require.NoError(t, gdb.First(&p, id).Error)
	return p
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := gdb.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func dateOf(t time.Time) *datatypes.Date {
	d := datatypes.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
	return &d
}

// recordingNotifier captures notifications instead of queueing them.
type recordingNotifier struct {
	mu        sync.Mutex
	won       []*models.AuctionResolution
	cancelled []uint
	err       error
}

func (n *recordingNotifier) AuctionWon(ctx context.Context, res *models.AuctionResolution) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.won = append(n.won, res)
	return n.err
}

func (n *recordingNotifier) AuctionCancelled(ctx context.Context, auction *models.PropertyAuction, propertyTitle string, bidder *models.Winner) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, auction.ID)
	return n.err
}
