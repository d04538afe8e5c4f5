package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFixtures(t *testing.T) {
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(42))

	categories := buildCategories(now)
	require.Len(t, categories, len(categoryFixtures))
	for _, c := range categories {
		assert.False(t, c.ID.IsZero())
		assert.True(t, c.IsActive)
		assert.NotEmpty(t, c.Slug)
	}

	services := buildServices(categories, now)
	require.NotEmpty(t, services)
	catIDs := map[string]bool{}
	for _, c := range categories {
		catIDs[c.ID.Hex()] = true
	}
	for _, s := range services {
		assert.True(t, catIDs[s.CategoryID.Hex()], "service %q references a seeded category", s.Name)
		assert.Positive(t, s.BasePrice)
	}

	requests := buildWorkRequests(services, rng, now)
	require.Len(t, requests, len(services))
	for _, r := range requests {
		assert.Contains(t, []string{"open", "awarded", "closed"}, r.Status)
		assert.Greater(t, r.Budget, 0.0)
		assert.True(t, r.Deadline.After(now))
	}

	bids := buildBids(requests, rng, now)
	reqByID := map[string]WorkRequest{}
	for _, r := range requests {
		reqByID[r.ID.Hex()] = r
	}
	accepted := 0
	for _, b := range bids {
		req, ok := reqByID[b.WorkRequestID.Hex()]
		require.True(t, ok, "bid references a seeded work request")
		assert.NotEqual(t, "closed", req.Status, "closed requests take no bids")
		if b.Status == "accepted" {
			accepted++
			assert.Equal(t, "awarded", req.Status)
		}
	}
	assert.Positive(t, accepted, "awarded requests carry an accepted bid")
}
