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

package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.watchforge.dev/watchforge/session"
)

func TestRegistryAddRemoveSymmetric(t *testing.T) {
	r := session.NewRegistry()
	s := session.NewSession(1, "Html", nil)
	r.Add(s)

	assert.True(t, r.HasSession("Html"))
	assert.Len(t, r.ForTarget("Html"), 1)

	r.Remove(1)
	assert.False(t, r.HasSession("Html"))
	assert.Empty(t, r.ForTarget("Html"))
}

func TestRegistryMultipleSessionsPerTarget(t *testing.T) {
	r := session.NewRegistry()
	r.Add(session.NewSession(1, "Html", nil))
	r.Add(session.NewSession(2, "Html", nil))

	assert.Len(t, r.ForTarget("Html"), 2)

	r.Remove(1)
	assert.Len(t, r.ForTarget("Html"), 1)
}
