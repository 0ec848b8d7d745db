package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db/dbtest"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/realtime"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Notify(_ context.Context, ev realtime.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	clock  *clock
	events *recorder
	pro    *models.ProfessionalProfile
	proAct authz.Actor
}

func setup(t *testing.T) *fixture {
	gdb := dbtest.New(t)
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	svc := NewService(gdb, nil, rec)
	svc.Now = c.Now

	pro := dbtest.Professional(t, gdb, "pro@example.com", dbtest.Verified)
	return &fixture{
		svc:    svc,
		db:     gdb,
		clock:  c,
		events: rec,
		pro:    pro,
		proAct: authz.Actor{UserID: pro.UserID, Role: models.RoleProfessional},
	}
}

func (f *fixture) client(t *testing.T, name string) authz.Actor {
	u := dbtest.User(t, f.db, name+"@example.com", models.RoleClient)
	return authz.Actor{UserID: u.ID, Role: models.RoleClient}
}

func (f *fixture) accepted(t *testing.T, client authz.Actor) *models.Booking {
	ctx := context.Background()
	b, err := f.svc.Create(ctx, client, f.pro.ID)
	require.NoError(t, err)
	b, err = f.svc.Resolve(ctx, f.proAct, b.ID, "accepted")
	require.NoError(t, err)
	return b
}

func TestCreatePendingBooking(t *testing.T) {
	f := setup(t)
	c := f.client(t, "c1")

	b, err := f.svc.Create(context.Background(), c, f.pro.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, c.UserID, b.ClientID)
	assert.Equal(t, f.pro.ID, b.ProfessionalID)

	var p models.ProfessionalProfile
	require.NoError(t, f.db.First(&p, "id = ?", f.pro.ID).Error)
	assert.Equal(t, 1, p.DailyRequestCount)
	require.NotNil(t, p.RequestWindowStart)
	assert.True(t, p.RequestWindowStart.Equal(f.clock.Now()))

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, realtime.EventBookingCreated, ev.Type)
	assert.ElementsMatch(t, []uuid.UUID{c.UserID, f.pro.UserID}, ev.Recipients)
}

func TestCreateRequiresBookableProfessional(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.client(t, "c1")

	pending := dbtest.Professional(t, f.db, "new@example.com")
	_, err := f.svc.Create(ctx, c, pending.ID)
	assert.ErrorIs(t, err, apperr.ErrNotVerified)

	suspended := dbtest.Professional(t, f.db, "gone@example.com", dbtest.Verified, dbtest.Suspended)
	_, err = f.svc.Create(ctx, c, suspended.ID)
	assert.ErrorIs(t, err, apperr.ErrNotVerified)

	_, err = f.svc.Create(ctx, c, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Create(ctx, f.proAct, f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Create(ctx, authz.Anonymous, f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreateRejectsSecondOpenRequestForPair(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.client(t, "c1")

	b, err := f.svc.Create(ctx, c, f.pro.ID)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, c, f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrDuplicatePendingRequest)

	// accepted still counts as open
	_, err = f.svc.Resolve(ctx, f.proAct, b.ID, "approved")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, c, f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrDuplicatePendingRequest)
}

func TestCreateAllowedAgainAfterRejection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.client(t, "c1")

	b, err := f.svc.Create(ctx, c, f.pro.ID)
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, f.proAct, b.ID, "reject")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, c, f.pro.ID)
	assert.NoError(t, err)
}

func TestDailyLimitSlidingWindow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b, err := f.svc.Create(ctx, f.client(t, fmt.Sprintf("c%d", i)), f.pro.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingPending, b.Status)
		f.clock.Advance(time.Minute)
	}

	late := f.client(t, "late")
	f.clock.Advance(10 * time.Hour)
	_, err := f.svc.Create(ctx, late, f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrDailyLimitExceeded)

	// first booking at 09:00 leaves the window just after 09:00 next day
	f.clock.Advance(14*time.Hour - 3*time.Minute + time.Second)
	_, err = f.svc.Create(ctx, late, f.pro.ID)
	require.NoError(t, err)

	// the other two are still inside the window
	_, err = f.svc.Create(ctx, f.client(t, "later"), f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrDailyLimitExceeded)
}

func TestDailyLimitCountsResolvedBookings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b, err := f.svc.Create(ctx, f.client(t, fmt.Sprintf("c%d", i)), f.pro.ID)
		require.NoError(t, err)
		_, err = f.svc.Resolve(ctx, f.proAct, b.ID, "rejected")
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, f.client(t, "c4"), f.pro.ID)
	assert.ErrorIs(t, err, apperr.ErrDailyLimitExceeded)
}

func TestConcurrentCreatesNeverExceedLimit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const n = 8
	clients := make([]authz.Actor, n)
	for i := range clients {
		clients[i] = f.client(t, fmt.Sprintf("c%d", i))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		limited int
	)
	for _, c := range clients {
		wg.Add(1)
		go func(c authz.Actor) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, c, f.pro.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperr.KindOf(err) == apperr.KindDailyLimitExceeded:
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 3, created)
	assert.Equal(t, n-3, limited)

	var count int64
	require.NoError(t, f.db.Model(&models.Booking{}).Where("professional_id = ?", f.pro.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestResolve(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.client(t, "c1")

	b, err := f.svc.Create(ctx, c, f.pro.ID)
	require.NoError(t, err)

	other := dbtest.Professional(t, f.db, "other@example.com", dbtest.Verified)
	_, err = f.svc.Resolve(ctx, authz.Actor{UserID: other.UserID, Role: models.RoleProfessional}, b.ID, "accepted")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Resolve(ctx, c, b.ID, "accepted")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Resolve(ctx, f.proAct, b.ID, "done")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.Resolve(ctx, f.proAct, uuid.New(), "accepted")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.Resolve(ctx, f.proAct, b.ID, "accepted")
	require.NoError(t, err)
	assert.Equal(t, models.BookingAccepted, got.Status)
	assert.NotNil(t, got.ResolvedAt)

	_, err = f.svc.Resolve(ctx, f.proAct, b.ID, "rejected")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.svc.Resolve(ctx, f.proAct, b.ID, "pending")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestResolveRequiresVerifiedProfessional(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.client(t, "c1")

	b, err := f.svc.Create(ctx, c, f.pro.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.ProfessionalProfile{}).Where("id = ?", f.pro.ID).Update("is_verified", false).Error)

	_, err = f.svc.Resolve(ctx, f.proAct, b.ID, "accepted")
	assert.ErrorIs(t, err, apperr.ErrNotVerified)
}

func TestRateScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.client(t, "c1")
	b := f.accepted(t, c)

	rated, err := f.svc.Rate(ctx, c, b.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 5, *rated.Rating)

	var p models.ProfessionalProfile
	require.NoError(t, f.db.First(&p, "id = ?", f.pro.ID).Error)
	assert.Equal(t, 5.0, p.Rating)
	assert.Equal(t, 1, p.ReviewCount)

	_, err = f.svc.Rate(ctx, c, b.ID, 4)
	assert.ErrorIs(t, err, apperr.ErrAlreadyRated)

	require.NoError(t, f.db.First(&p, "id = ?", f.pro.ID).Error)
	assert.Equal(t, 1, p.ReviewCount)

	assert.Equal(t, []string{
		realtime.EventBookingCreated,
		realtime.EventBookingResolved,
		realtime.EventBookingRated,
	}, f.events.Types())
}

func TestRateAggregatesAcrossBookings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c1, c2 := f.client(t, "c1"), f.client(t, "c2")
	b1, b2 := f.accepted(t, c1), f.accepted(t, c2)

	_, err := f.svc.Rate(ctx, c1, b1.ID, 4)
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, c2, b2.ID, 2)
	require.NoError(t, err)

	var p models.ProfessionalProfile
	require.NoError(t, f.db.First(&p, "id = ?", f.pro.ID).Error)
	assert.Equal(t, 3.0, p.Rating)
	assert.Equal(t, 2, p.ReviewCount)
}

func TestRateRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.client(t, "c1")
	stranger := f.client(t, "c2")

	pending, err := f.svc.Create(ctx, c, f.pro.ID)
	require.NoError(t, err)

	for _, v := range []int{0, 6, -1} {
		_, err = f.svc.Rate(ctx, c, pending.ID, v)
		assert.ErrorIs(t, err, apperr.ErrInvalidRating, "value %d", v)
	}

	_, err = f.svc.Rate(ctx, c, pending.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrNotRateable)

	_, err = f.svc.Rate(ctx, stranger, pending.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Rate(ctx, f.proAct, pending.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Rate(ctx, c, uuid.New(), 3)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Resolve(ctx, f.proAct, pending.ID, "rejected")
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, c, pending.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrNotRateable)

	var p models.ProfessionalProfile
	require.NoError(t, f.db.First(&p, "id = ?", f.pro.ID).Error)
	assert.False(t, p.Rated())
}

func TestGetAndListMine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c1, c2 := f.client(t, "c1"), f.client(t, "c2")

	b1, err := f.svc.Create(ctx, c1, f.pro.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	b2, err := f.svc.Create(ctx, c2, f.pro.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, c1, b1.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Professional)
	assert.Equal(t, f.pro.ID, got.Professional.ID)

	_, err = f.svc.Get(ctx, c2, b1.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Get(ctx, f.proAct, b1.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, c1, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	mine, err := f.svc.ListMine(ctx, c1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b1.ID, mine[0].ID)

	incoming, err := f.svc.ListMine(ctx, f.proAct)
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	assert.Equal(t, b2.ID, incoming[0].ID)

	admin := dbtest.User(t, f.db, "admin@example.com", models.RoleAdmin)
	all, err := f.svc.ListMine(ctx, authz.Actor{UserID: admin.ID, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListMine(ctx, authz.Anonymous)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSweepResetsExpiredWindows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Create(ctx, f.client(t, fmt.Sprintf("c%d", i)), f.pro.ID)
		require.NoError(t, err)
	}

	n, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.clock.Advance(25 * time.Hour)
	n, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var p models.ProfessionalProfile
	require.NoError(t, f.db.First(&p, "id = ?", f.pro.ID).Error)
	assert.Equal(t, 0, p.DailyRequestCount)
	assert.Nil(t, p.RequestWindowStart)

	n, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStartSweepWorkerStopsWithContext(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.svc.StartSweepWorker(ctx, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	cancel()
}
