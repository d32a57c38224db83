/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.watchforge.dev/watchforge/pathmodel"
	"go.watchforge.dev/watchforge/scheduler"
)

func TestNextRespectsMaxParallel(t *testing.T) {
	candidates := []scheduler.Candidate{
		{TargetName: "A", Manifest: "/m1", QueuedAt: time.Unix(1, 0)},
		{TargetName: "B", Manifest: "/m2", QueuedAt: time.Unix(2, 0)},
	}
	decisions := scheduler.Next(candidates, 2, 2, nil)
	assert.Empty(t, decisions)
}

func TestNextPrefersSessionedTargets(t *testing.T) {
	candidates := []scheduler.Candidate{
		{TargetName: "NoSession", Manifest: "/m1", QueuedAt: time.Unix(1, 0), HasSession: false},
		{TargetName: "Sessioned", Manifest: "/m2", QueuedAt: time.Unix(2, 0), HasSession: true},
	}
	decisions := scheduler.Next(candidates, 0, 1, nil)
	require.Len(t, decisions, 1)
	assert.Equal(t, "Sessioned", decisions[0].TargetName)
	assert.False(t, decisions[0].Typecheck)
}

func TestNextFIFOWithinSameSessionTier(t *testing.T) {
	candidates := []scheduler.Candidate{
		{TargetName: "Second", Manifest: "/m1", QueuedAt: time.Unix(2, 0)},
		{TargetName: "First", Manifest: "/m2", QueuedAt: time.Unix(1, 0)},
	}
	decisions := scheduler.Next(candidates, 0, 1, nil)
	require.Len(t, decisions, 1)
	assert.Equal(t, "First", decisions[0].TargetName)
}

func TestNextNoSessionDowngradesToTypecheck(t *testing.T) {
	candidates := []scheduler.Candidate{
		{TargetName: "A", Manifest: "/m1", QueuedAt: time.Unix(1, 0), HasSession: false},
	}
	decisions := scheduler.Next(candidates, 0, 1, nil)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Typecheck)
}

func TestNextFairShareOnePerGroupThenIdleCapacity(t *testing.T) {
	m := pathmodel.AbsolutePath("/shared")
	candidates := []scheduler.Candidate{
		{TargetName: "A", Manifest: m, QueuedAt: time.Unix(1, 0)},
		{TargetName: "B", Manifest: m, QueuedAt: time.Unix(2, 0)},
	}
	// only one slot: fair share picks the earliest from the group.
	decisions := scheduler.Next(candidates, 0, 1, nil)
	require.Len(t, decisions, 1)
	assert.Equal(t, "A", decisions[0].TargetName)

	// two slots and idle capacity: both may start even though same group.
	decisions = scheduler.Next(candidates, 0, 2, nil)
	require.Len(t, decisions, 2)
}

func TestNextSkipsGroupAlreadyActiveUnlessIdleCapacity(t *testing.T) {
	m := pathmodel.AbsolutePath("/shared")
	other := pathmodel.AbsolutePath("/other")
	candidates := []scheduler.Candidate{
		{TargetName: "InSameGroup", Manifest: m, QueuedAt: time.Unix(1, 0)},
		{TargetName: "OtherGroup", Manifest: other, QueuedAt: time.Unix(2, 0)},
	}
	active := map[pathmodel.AbsolutePath]int{m: 1}
	decisions := scheduler.Next(candidates, 1, 2, active)
	require.Len(t, decisions, 1)
	assert.Equal(t, "OtherGroup", decisions[0].TargetName)
}
