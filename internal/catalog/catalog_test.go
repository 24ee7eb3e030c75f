package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Len(t, c.TaskCategories, 8)
	assert.Len(t, c.Industries, 8)
	assert.ElementsMatch(t,
		[]string{"software", "design", "writing", "marketing", "other"},
		c.MockTaskCategories())
	assert.Len(t, c.DemoNotifications, 6)
	assert.Equal(t, 61*time.Minute, c.DemoNotifications[2].Age)
	assert.Equal(t, 4.8, c.Profiles.Fulfiller.Rating)
	assert.Equal(t, 4.9, c.Profiles.Creator.Rating)
}

func TestCategoryLookup(t *testing.T) {
	c := MustLoad()

	e, ok := c.Category("food")
	require.True(t, ok)
	assert.Equal(t, "Food & Catering", e.Title)

	_, ok = c.Category("tech")
	assert.False(t, ok, "tech is an industry id, not a task category")

	_, ok = c.Industry("tech")
	assert.True(t, ok)
}

func TestParseRejectsEmptyCatalog(t *testing.T) {
	_, err := Parse([]byte("industries: []"))
	assert.Error(t, err)

	_, err = Parse([]byte("task_categories: ["))
	assert.Error(t, err)
}
