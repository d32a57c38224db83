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

func baseFingerprint() session.ArtifactFingerprint {
	return session.ArtifactFingerprint{
		ProgramType:       "element",
		FlagsDecodeOK:     true,
		DebugMetadataHash: "d1",
		InitModelHash:     "i1",
	}
}

func TestComputeVerdictPatchWhenUnchanged(t *testing.T) {
	v := session.ComputeVerdict(baseFingerprint(), baseFingerprint())
	assert.False(t, v.FullReload)
}

func TestComputeVerdictFlagsTypeChanged(t *testing.T) {
	next := baseFingerprint()
	next.FlagsDecodeOK = false
	v := session.ComputeVerdict(baseFingerprint(), next)
	assert.True(t, v.FullReload)
	assert.Equal(t, session.ReasonFlagsTypeChanged, v.Reason)
}

func TestComputeVerdictProgramTypeChanged(t *testing.T) {
	next := baseFingerprint()
	next.ProgramType = "sandbox"
	v := session.ComputeVerdict(baseFingerprint(), next)
	assert.Equal(t, session.ReasonProgramTypeChanged, v.Reason)
}

func TestComputeVerdictDebugMetadataChanged(t *testing.T) {
	next := baseFingerprint()
	next.DebugMetadataHash = "d2"
	v := session.ComputeVerdict(baseFingerprint(), next)
	assert.Equal(t, session.ReasonDebugMetadataChanged, v.Reason)
}

func TestComputeVerdictOptimizeFieldsChanged(t *testing.T) {
	prev := baseFingerprint()
	prev.RecordFields = []string{"a", "b"}
	next := baseFingerprint()
	next.RecordFields = []string{"a", "c"}
	v := session.ComputeVerdict(prev, next)
	assert.Equal(t, session.ReasonOptimizeFieldsChanged, v.Reason)
}

func TestComputeVerdictInitChanged(t *testing.T) {
	next := baseFingerprint()
	next.InitModelHash = "i2"
	v := session.ComputeVerdict(baseFingerprint(), next)
	assert.Equal(t, session.ReasonInitChanged, v.Reason)
}

func TestHotReloadFailedVerdict(t *testing.T) {
	v := session.HotReloadFailed()
	assert.True(t, v.FullReload)
	assert.Equal(t, session.ReasonHotReloadFailed, v.Reason)
}
