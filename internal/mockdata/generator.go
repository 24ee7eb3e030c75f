// Package mockdata generates plausible deliveries, tasks and profiles for
// dashboards that have no real data yet.
package mockdata

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"taskhub/internal/catalog"
	"taskhub/internal/domain"
)

const (
	baseLat = 6.4540
	baseLng = 3.3840
	spread  = 0.1
)

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
	cat *catalog.Catalog
}

type Option func(*Generator)

// WithSeed makes output reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(cat *catalog.Catalog, opts ...Option) *Generator {
	g := &Generator{
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
		cat: cat,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// intn returns a uniform int in [min, max].
func (g *Generator) intn(min, max int) int {
	return min + g.rnd.IntN(max-min+1)
}

func (g *Generator) pick(list []string) string {
	return list[g.rnd.IntN(len(list))]
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }
func days(n int) time.Duration    { return time.Duration(n) * 24 * time.Hour }

// Deliveries returns count deliveries for a fulfiller: 30% pending, 20% active
// and the rest completed, newest first.
func (g *Generator) Deliveries(fulfillerID uuid.UUID, count int) []*domain.Delivery {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending := count * 3 / 10
	active := count * 2 / 10
	out := make([]*domain.Delivery, 0, count)
	for i := 0; i < count; i++ {
		status := domain.DeliveryStatusCompleted
		switch {
		case i < pending:
			status = domain.DeliveryStatusPending
		case i < pending+active:
			status = domain.DeliveryStatusActive
		}
		out = append(out, g.delivery(fulfillerID, status))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (g *Generator) delivery(fulfillerID uuid.UUID, status domain.DeliveryStatus) *domain.Delivery {
	src := g.cat.MockDeliveries
	now := g.now()
	createdAt := now.Add(-minutes(g.intn(1, 180)))

	d := &domain.Delivery{
		ID:          uuid.New(),
		FulfillerID: fulfillerID,
		OrderID:     fmt.Sprintf("ORD-2025-%04d", g.intn(1000, 9999)),
		PickupLocation: domain.Location{
			Address:     g.pick(src.PickupLocations),
			Coordinates: g.coordinates(),
		},
		DropOffLocation: domain.Location{
			Address:     g.pick(src.DropoffLocations),
			Coordinates: g.coordinates(),
		},
		Distance:      math.Round((g.rnd.Float64()*8+1.5)*10) / 10,
		Amount:        decimal.NewFromInt(int64(g.intn(1500, 5000))),
		Status:        status,
		CustomerName:  g.pick(src.CustomerNames),
		CustomerPhone: fmt.Sprintf("+234 %d %d %d", g.intn(700, 909), g.intn(100, 999), g.intn(1000, 9999)),
		Items:         append([]string(nil), src.ItemBundles[g.rnd.IntN(len(src.ItemBundles))]...),
		CreatedAt:     createdAt,
	}
	eta := g.intn(20, 40)
	d.EstimatedTime = &eta

	if status == domain.DeliveryStatusActive || status == domain.DeliveryStatusCompleted {
		accepted := createdAt.Add(minutes(g.intn(2, 10)))
		d.AcceptedAt = &accepted
	}
	if status == domain.DeliveryStatusCompleted {
		completed := d.AcceptedAt.Add(minutes(g.intn(15, 45)))
		d.CompletedAt = &completed
	}
	return d
}

func (g *Generator) coordinates() *domain.Coordinates {
	return &domain.Coordinates{
		Lat: baseLat + g.rnd.Float64()*spread,
		Lng: baseLng + g.rnd.Float64()*spread,
	}
}

// Tasks returns count tasks for a creator: 40% active, 35% completed and the
// rest drafts, newest first.
func (g *Generator) Tasks(creatorID uuid.UUID, count int) []*domain.Task {
	g.mu.Lock()
	defer g.mu.Unlock()

	active := count * 4 / 10
	completed := count * 35 / 100
	out := make([]*domain.Task, 0, count)
	for i := 0; i < count; i++ {
		status := domain.TaskStatusDraft
		switch {
		case i < active:
			status = domain.TaskStatusActive
		case i < active+completed:
			status = domain.TaskStatusCompleted
		}
		out = append(out, g.task(creatorID, status))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (g *Generator) task(creatorID uuid.UUID, status domain.TaskStatus) *domain.Task {
	categories := g.cat.MockTaskCategories()
	category := g.pick(categories)
	src := g.cat.MockTasks[category]
	title := g.pick(src.Titles)
	skills := g.sample(src.Skills, g.intn(2, 4))

	createdAt := g.now().Add(-days(g.intn(1, 30)))
	t := &domain.Task{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		Title:       title,
		Description: fmt.Sprintf("We are looking for an experienced professional to %s. This is a great opportunity to work on an exciting project with our team.", strings.ToLower(title)),
		Category:    category,
		Budget:      decimal.NewFromInt(int64(g.intn(50, 500) * 1000)),
		Status:      status,
		Deadline:    createdAt.Add(days(g.intn(7, 60))),
		CreatedAt:   createdAt,
		Skills:      skills,
		Requirements: []string{
			"Must have experience with " + skills[0],
			"Portfolio or previous work samples required",
			fmt.Sprintf("Available for %d hours per week", g.intn(10, 40)),
			"Good communication skills in English",
		},
	}
	if status != domain.TaskStatusDraft {
		t.ApplicationsCount = g.intn(0, 45)
	}
	if status == domain.TaskStatusCompleted {
		completed := createdAt.Add(days(g.intn(5, 30)))
		t.CompletedAt = &completed
	}
	return t
}

// sample picks n distinct elements.
func (g *Generator) sample(list []string, n int) []string {
	if n > len(list) {
		n = len(list)
	}
	idx := g.rnd.Perm(len(list))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = list[j]
	}
	return out
}

// EarningsChange is the mock day-over-day earnings change, 10 to 25 percent.
func (g *Generator) EarningsChange() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.intn(10, 25)
}

func (g *Generator) FulfillerProfile(u *domain.User) *domain.FulfillerProfile {
	p := g.cat.Profiles.Fulfiller
	return &domain.FulfillerProfile{
		ID:              u.ID,
		Name:            u.FullName(),
		Role:            p.Role,
		Location:        p.Location,
		Phone:           p.Phone,
		JoinedDate:      u.CreatedAt,
		Rating:          p.Rating,
		TotalDeliveries: p.Total,
	}
}

// CreatorProfile reports totalTasksPosted from the creator's real task count
// when one is known.
func (g *Generator) CreatorProfile(u *domain.User, tasksPosted int) *domain.CreatorProfile {
	p := g.cat.Profiles.Creator
	if tasksPosted <= 0 {
		tasksPosted = p.Total
	}
	return &domain.CreatorProfile{
		ID:               u.ID,
		Name:             u.FullName(),
		Role:             p.Role,
		Location:         p.Location,
		Phone:            p.Phone,
		JoinedDate:       u.CreatedAt,
		Rating:           p.Rating,
		TotalTasksPosted: tasksPosted,
	}
}
