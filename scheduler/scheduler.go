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

// Package scheduler implements the build-scheduling policy of §4.3 as a
// pure decision function: given the set of targets eligible to start and
// the current in-flight count, it decides which targets to advance and in
// which compiler mode. It holds no state and performs no I/O; the
// supervisor's single control loop calls Next on every state change and
// acts on the returned decisions.
package scheduler

import (
	"sort"
	"time"

	"go.watchforge.dev/watchforge/output"
	"go.watchforge.dev/watchforge/pathmodel"
)

// Candidate is a target eligible to start building: it is dirty or already
// queued, and not currently in flight.
type Candidate struct {
	TargetName string
	Manifest   pathmodel.AbsolutePath
	QueuedAt   time.Time
	HasSession bool
	// PreferredMode is the compiler mode configured for this target
	// (debug/standard/optimize); it is downgraded to typecheck-only when
	// the target has no live session to consume the artifact.
	PreferredMode output.CompilationMode
}

// Decision is a target the scheduler has chosen to start, and in which mode.
type Decision struct {
	TargetName string
	Manifest   pathmodel.AbsolutePath
	Mode       output.CompilationMode
	Typecheck  bool
}

// Next implements the §4.3 policy. activePerManifest is the number of
// builds currently in flight per manifest group (for the fair-share rule);
// inFlight is the total count across all groups.
func Next(candidates []Candidate, inFlight, maxParallel int, activePerManifest map[pathmodel.AbsolutePath]int) []Decision {
	remaining := maxParallel - inFlight
	if remaining <= 0 {
		return nil
	}

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].HasSession != ordered[j].HasSession {
			return ordered[i].HasSession // sessioned targets first
		}
		return ordered[i].QueuedAt.Before(ordered[j].QueuedAt)
	})

	started := make(map[pathmodel.AbsolutePath]int, len(activePerManifest))
	for m, n := range activePerManifest {
		started[m] = n
	}

	var decisions []Decision
	var deferred []Candidate

	for _, c := range ordered {
		if remaining <= 0 {
			deferred = append(deferred, c)
			continue
		}
		if started[c.Manifest] > 0 {
			deferred = append(deferred, c)
			continue
		}
		decisions = append(decisions, decide(c))
		started[c.Manifest]++
		remaining--
	}

	// Idle-capacity pass: fair share yields to a second build in an
	// already-active group only if slots would otherwise go unused.
	for _, c := range deferred {
		if remaining <= 0 {
			break
		}
		decisions = append(decisions, decide(c))
		started[c.Manifest]++
		remaining--
	}

	return decisions
}

func decide(c Candidate) Decision {
	if !c.HasSession {
		return Decision{TargetName: c.TargetName, Manifest: c.Manifest, Mode: c.PreferredMode, Typecheck: true}
	}
	return Decision{TargetName: c.TargetName, Manifest: c.Manifest, Mode: c.PreferredMode, Typecheck: false}
}
