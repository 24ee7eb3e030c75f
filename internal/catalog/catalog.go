// Package catalog exposes the static reference data baked into the binary:
// task categories, KYC industries, and the word lists the mock generators
// draw from.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var raw []byte

type Entry struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

type MockTaskCategory struct {
	Titles []string `yaml:"titles"`
	Skills []string `yaml:"skills"`
}

type MockDeliveries struct {
	PickupLocations  []string   `yaml:"pickup_locations"`
	DropoffLocations []string   `yaml:"dropoff_locations"`
	CustomerNames    []string   `yaml:"customer_names"`
	ItemBundles      [][]string `yaml:"item_bundles"`
}

type Profile struct {
	Role     string  `yaml:"role"`
	Location string  `yaml:"location"`
	Phone    string  `yaml:"phone"`
	Rating   float64 `yaml:"rating"`
	Total    int     `yaml:"total"`
}

type DemoNotification struct {
	Type    string        `yaml:"type"`
	Title   string        `yaml:"title"`
	Message string        `yaml:"message"`
	OrderID string        `yaml:"order_id"`
	Amount  string        `yaml:"amount"`
	Age     time.Duration `yaml:"age"`
}

type Catalog struct {
	TaskCategories []Entry                     `yaml:"task_categories"`
	Industries     []Entry                     `yaml:"industries"`
	MockTasks      map[string]MockTaskCategory `yaml:"mock_tasks"`
	MockDeliveries MockDeliveries              `yaml:"mock_deliveries"`
	Profiles       struct {
		Fulfiller Profile `yaml:"fulfiller"`
		Creator   Profile `yaml:"creator"`
	} `yaml:"profiles"`
	DemoNotifications []DemoNotification `yaml:"demo_notifications"`

	categoryIndex map[string]Entry
	industryIndex map[string]Entry
}

var (
	loadOnce sync.Once
	loaded   *Catalog
	loadErr  error
)

// Load parses the embedded catalog once and returns the shared copy.
// Callers must not mutate it.
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(raw)
	})
	return loaded, loadErr
}

// MustLoad is Load for process start-up, where a broken catalog is fatal.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.TaskCategories) == 0 {
		return nil, fmt.Errorf("parse catalog: no task categories")
	}
	for name, cat := range c.MockTasks {
		if len(cat.Titles) == 0 || len(cat.Skills) < 2 {
			return nil, fmt.Errorf("parse catalog: mock task category %q needs titles and at least two skills", name)
		}
	}

	c.categoryIndex = make(map[string]Entry, len(c.TaskCategories))
	for _, e := range c.TaskCategories {
		c.categoryIndex[e.ID] = e
	}
	c.industryIndex = make(map[string]Entry, len(c.Industries))
	for _, e := range c.Industries {
		c.industryIndex[e.ID] = e
	}
	return &c, nil
}

// Category looks up a create-task category by id.
func (c *Catalog) Category(id string) (Entry, bool) {
	e, ok := c.categoryIndex[id]
	return e, ok
}

func (c *Catalog) Industry(id string) (Entry, bool) {
	e, ok := c.industryIndex[id]
	return e, ok
}

// MockTaskCategories returns the mock category names in a stable order.
func (c *Catalog) MockTaskCategories() []string {
	names := make([]string, 0, len(c.MockTasks))
	for name := range c.MockTasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
