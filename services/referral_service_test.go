package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/growvest/growvest_backend/models"
)

func TestDescendantsDepthCapped(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	root := env.addUser(nil, nil)
	parent := root
	for i := 0; i < 12; i++ {
		parent = env.addUser(&parent.ID, nil)
	}

	descendants, err := env.referrals.Descendants(context.Background(), root.ID, 0)
	require.NoError(t, err)
	require.Len(t, descendants, MaxReferralDepth)

	maxDepth := 0
	for _, d := range descendants {
		if d.Depth > maxDepth {
			maxDepth = d.Depth
		}
	}
	require.Equal(t, MaxReferralDepth, maxDepth)

	indirect, err := env.referrals.IndirectCount(context.Background(), root.ID, ReferralFilter{}, MaxReferralDepth)
	require.NoError(t, err)
	require.Equal(t, int64(MaxReferralDepth), indirect)
}

func TestDirectAndIndirectCounts(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	root := env.addUser(nil, nil)
	a := env.addUser(&root.ID, nil)
	env.addUser(&root.ID, nil)
	env.addUser(&a.ID, nil)

	direct, err := env.referrals.DirectCount(context.Background(), root.ID, ReferralFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), direct)

	indirect, err := env.referrals.IndirectCount(context.Background(), root.ID, ReferralFilter{}, MaxReferralDepth)
	require.NoError(t, err)
	require.Equal(t, int64(3), indirect)
}

func TestCountFiltersInactiveAndOld(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	root := env.addUser(nil, nil)
	old := env.addUser(&root.ID, nil)
	old.CreatedAt = old.CreatedAt.Add(-48 * time.Hour)
	inactive := env.addUser(&root.ID, nil)
	inactive.IsActive = false
	env.addUser(&root.ID, nil)

	active, err := env.referrals.DirectCount(context.Background(), root.ID, ReferralFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), active)

	cutoff := env.clock.Now().Add(-time.Hour)
	recent, err := env.referrals.DirectCount(context.Background(), root.ID, ReferralFilter{CreatedAfter: &cutoff})
	require.NoError(t, err)
	require.Equal(t, int64(2), recent)
}

func TestAssignReferrerRejectsSelfReferral(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	u := env.addUser(nil, nil)

	err := env.referrals.AssignReferrer(context.Background(), u.ID, u.ID)
	require.ErrorIs(t, err, models.ErrCycle)
}

func TestAssignReferrerRejectsCycle(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	root := env.addUser(nil, nil)
	a := env.addUser(&root.ID, nil)
	b := env.addUser(&a.ID, nil)

	// Pointing the root at its own grand-descendant would close a loop.
	err := env.referrals.AssignReferrer(context.Background(), root.ID, b.ID)
	require.ErrorIs(t, err, models.ErrCycle)

	// The graph is unchanged.
	got, err := env.users.Get(context.Background(), root.ID)
	require.NoError(t, err)
	require.Nil(t, got.ReferralID)
}

func TestAssignReferrerLinksValidEdge(t *testing.T) {
	env := newTestEnv(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	sponsor := env.addUser(nil, nil)
	newcomer := env.addUser(nil, nil)

	err := env.referrals.AssignReferrer(context.Background(), newcomer.ID, sponsor.ID)
	require.NoError(t, err)

	got, err := env.users.Get(context.Background(), newcomer.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReferralID)
	require.Equal(t, sponsor.ID, *got.ReferralID)
}
