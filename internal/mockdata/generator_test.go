package mockdata

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/catalog"
	"taskhub/internal/domain"
)

var fixedNow = time.Date(2025, 9, 1, 15, 0, 0, 0, time.UTC)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	return New(catalog.MustLoad(), WithSeed(42), WithClock(func() time.Time { return fixedNow }))
}

func TestDeliveries_Distribution(t *testing.T) {
	g := newGenerator(t)
	owner := uuid.New()

	deliveries := g.Deliveries(owner, 50)
	require.Len(t, deliveries, 50)

	counts := map[domain.DeliveryStatus]int{}
	for _, d := range deliveries {
		counts[d.Status]++
	}
	assert.Equal(t, 15, counts[domain.DeliveryStatusPending])
	assert.Equal(t, 10, counts[domain.DeliveryStatusActive])
	assert.Equal(t, 25, counts[domain.DeliveryStatusCompleted])
}

func TestDeliveries_FieldRanges(t *testing.T) {
	g := newGenerator(t)
	owner := uuid.New()
	orderID := regexp.MustCompile(`^ORD-2025-\d{4}$`)
	phone := regexp.MustCompile(`^\+234 \d{3} \d{3} \d{4}$`)

	deliveries := g.Deliveries(owner, 200)
	for i, d := range deliveries {
		assert.Equal(t, owner, d.FulfillerID)
		assert.Regexp(t, orderID, d.OrderID)
		assert.Regexp(t, phone, d.CustomerPhone)

		age := fixedNow.Sub(d.CreatedAt)
		assert.True(t, age >= time.Minute && age <= 180*time.Minute, "age %s", age)

		assert.True(t, d.Amount.GreaterThanOrEqual(decimal.NewFromInt(1500)))
		assert.True(t, d.Amount.LessThanOrEqual(decimal.NewFromInt(5000)))
		assert.True(t, d.Distance >= 1.5 && d.Distance <= 9.5, "distance %v", d.Distance)

		require.NotNil(t, d.EstimatedTime)
		assert.True(t, *d.EstimatedTime >= 20 && *d.EstimatedTime <= 40)

		for _, c := range []*domain.Coordinates{d.PickupLocation.Coordinates, d.DropOffLocation.Coordinates} {
			assert.True(t, c.Lat >= 6.454 && c.Lat <= 6.554)
			assert.True(t, c.Lng >= 3.384 && c.Lng <= 3.484)
		}

		switch d.Status {
		case domain.DeliveryStatusPending:
			assert.Nil(t, d.AcceptedAt)
			assert.Nil(t, d.CompletedAt)
		case domain.DeliveryStatusActive:
			require.NotNil(t, d.AcceptedAt)
			assert.Nil(t, d.CompletedAt)
		case domain.DeliveryStatusCompleted:
			require.NotNil(t, d.AcceptedAt)
			require.NotNil(t, d.CompletedAt)
			wait := d.AcceptedAt.Sub(d.CreatedAt)
			assert.True(t, wait >= 2*time.Minute && wait <= 10*time.Minute)
			trip := d.CompletedAt.Sub(*d.AcceptedAt)
			assert.True(t, trip >= 15*time.Minute && trip <= 45*time.Minute)
		}

		if i > 0 {
			assert.False(t, d.CreatedAt.After(deliveries[i-1].CreatedAt), "not sorted newest first")
		}
	}
}

func TestTasks_Distribution(t *testing.T) {
	g := newGenerator(t)

	tasks := g.Tasks(uuid.New(), 20)
	require.Len(t, tasks, 20)

	counts := map[domain.TaskStatus]int{}
	for _, task := range tasks {
		counts[task.Status]++
	}
	assert.Equal(t, 8, counts[domain.TaskStatusActive])
	assert.Equal(t, 7, counts[domain.TaskStatusCompleted])
	assert.Equal(t, 5, counts[domain.TaskStatusDraft])
}

func TestTasks_FieldRanges(t *testing.T) {
	g := newGenerator(t)
	cat := catalog.MustLoad()

	for _, task := range g.Tasks(uuid.New(), 100) {
		src, ok := cat.MockTasks[task.Category]
		require.True(t, ok, "unknown category %q", task.Category)
		assert.Contains(t, src.Titles, task.Title)

		assert.True(t, len(task.Skills) >= 2 && len(task.Skills) <= 4)
		for _, s := range task.Skills {
			assert.Contains(t, src.Skills, s)
		}
		assert.Len(t, task.Requirements, 4)
		assert.Contains(t, task.Requirements[0], task.Skills[0])

		budget := task.Budget.IntPart()
		assert.True(t, budget >= 50000 && budget <= 500000 && budget%1000 == 0)

		life := task.Deadline.Sub(task.CreatedAt)
		assert.True(t, life >= 7*24*time.Hour && life <= 60*24*time.Hour)

		if task.Status == domain.TaskStatusDraft {
			assert.Zero(t, task.ApplicationsCount)
		} else {
			assert.True(t, task.ApplicationsCount <= 45)
		}
		if task.Status == domain.TaskStatusCompleted {
			require.NotNil(t, task.CompletedAt)
		} else {
			assert.Nil(t, task.CompletedAt)
		}
	}
}

func TestSeedIsReproducible(t *testing.T) {
	owner := uuid.New()
	a := newGenerator(t).Deliveries(owner, 5)
	b := newGenerator(t).Deliveries(owner, 5)
	for i := range a {
		assert.Equal(t, a[i].OrderID, b[i].OrderID)
		assert.Equal(t, a[i].CreatedAt, b[i].CreatedAt)
	}
}

func TestProfiles(t *testing.T) {
	g := newGenerator(t)
	u := &domain.User{ID: uuid.New(), FirstName: "Ada", LastName: "Obi", CreatedAt: fixedNow}

	fp := g.FulfillerProfile(u)
	assert.Equal(t, "Ada Obi", fp.Name)
	assert.Equal(t, 4.8, fp.Rating)

	cp := g.CreatorProfile(u, 12)
	assert.Equal(t, 4.9, cp.Rating)
	assert.Equal(t, 12, cp.TotalTasksPosted)

	change := g.EarningsChange()
	assert.True(t, change >= 10 && change <= 25)
}
