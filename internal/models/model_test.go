package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdeaNormalize(t *testing.T) {
	now := time.Now()
	idea := Idea{
		ID:       "x",
		Headline: "h",
		Likes:    -1,
		Comments: -2,
		Clicks:   -3,
	}
	idea.Normalize(now)

	assert.NotNil(t, idea.Tags)
	assert.Empty(t, idea.Tags)
	assert.Equal(t, now, idea.CreatedAt)
	assert.Zero(t, idea.Likes)
	assert.Zero(t, idea.Comments)
	assert.Zero(t, idea.Clicks)
}

func TestIdeaNormalize_KeepsWellFormedFields(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	idea := Idea{
		Tags:      []string{"a"},
		CreatedAt: created,
		Likes:     3,
		Comments:  1,
		Clicks:    2,
	}
	idea.Normalize(time.Now())

	assert.Equal(t, []string{"a"}, idea.Tags)
	assert.Equal(t, created, idea.CreatedAt)
	assert.Equal(t, 3, idea.Likes)
}
